// Package thorlabs provides control of Thorlabs laser diode and TEC
// controllers over USBTMC.
package thorlabs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mickp/deviceremotes/usbtmc"
)

// unlike the remotedevice types, the connection to the device is assumed
// to always be open; USB does not drop idle links the way lab ethernet does
const (
	// TLVID is the Thorlabs USB vendor ID
	TLVID = 0x1313

	// ITC4000PID is the product ID shared by the ITC4000/LDC4001 family
	ITC4000PID = 0x804a
)

// LDCError is an error code from the controller's error queue
type LDCError struct {
	code int
}

// Error satisfies the error interface
func (e LDCError) Error() string {
	if s, ok := ITC4000Errors[e.code]; ok {
		return fmt.Sprintf("%d - %s", e.code, s)
	}
	return fmt.Sprintf("%d - UNKNOWN ERROR CODE", e.code)
}

var (
	// ITC4000Errors maps ITC4000 error codes to strings
	ITC4000Errors = map[int]string{
		-100: "COMMAND ERROR",
		-101: "INVALID CHARACTER",
		-102: "SYNTAX ERROR",
		-103: "INVALID SEPARATOR",
		-104: "DATA TYPE ERROR",
		-105: "GROUP EXECUTE TRIGGER NOT ALLOWED",
		//106, 107 skipped
		-108: "PARAMETER NOT ALLOWED",
		-109: "MISSING PARAMETER",
		-110: "COMMAND HEADER ERROR",
		-113: "UNDEFINED HEADER (UNKNOWN COMMAND)",
		-115: "UNEXPECTED NUMBER OF PARAMETERS",
		-120: "NUMERIC DATA ERROR",
		-130: "SUFFIX ERROR",
		-131: "INVALID SUFFIX",
		-151: "INVALID STRING DATA",

		-220: "PARAMETER ERROR",
		-221: "SETTINGS CONFLICT",
		-222: "DATA OUT OF RANGE",
		-230: "DATA CORRUPT OR STALE",
		-231: "DATA QUESTIONABLE",
		-240: "HARDWARE ERROR",
		-241: "HARDWARE MISSING",
		-250: "MASS STORAGE ERROR",
		-251: "MISSING MASS STORAGE",
		-252: "MISSING MEDIA",
		-253: "CORRUPT MEDIA",
		-254: "MEDIA FULL",
		-255: "DIRECTORY FULL",
		-256: "FILE NAME NOT FOUND",
		-257: "FILE NAME ERROR",
		-258: "MEDIA PROTECTED",

		-310: "SYSTEM ERROR",
		-311: "MEMORY ERROR",
		-313: "CALIBRATION MEMORY LOST",
		-314: "SAVE/RECALL MEMORY LOST",
		-315: "CONFIGURATION MEMORY LOST",
		-321: "OUT OF MEMORY",
		-330: "SELF-TEST FAILED",
		-340: "CALIBRATION FAILURE",
		-350: "QUEUE OVERFLOW",
		-363: "INPUT BUFFER OVERRUN",

		-400: "QUERY ERROR",
		-410: "QUERY INTERRUPTED",

		3:  "INSTRUMENT IS OVERHEATED",
		20: "NOT PERMITTED WITH LD OUTPUT ON",
		22: "INTERLOCK CIRCUIT IS OPEN",
		23: "KEY SWITCH IN LOCKED POSITION",
		24: "LD OPEN CIRCUIT DETECTED",
		25: "LD-ENABLE INPUT IS DE-ASSERTED",
		26: "LD TEMPERATURE PROTECTION IS ACTIVE",
		27: "NOT PERMITTED WITH PHOTODIODE BIAS ON",
		28: "NOT PERMITTED WITH QCW MODE ON",
		30: "NOT PERMITTED WITH TEC OUTPUT ON",
		31: "WRONG TEC SOURCE OPERATING MODE",
		32: "PID AUTO-TUNE IS CURRENTLY RUNNING",
		33: "PID AUTO-TUNE VALUE ERROR",
		34: "TEC OPEN CIRCUIT DETECTED",
		35: "TEMPERATURE SENSOR FAILURE",
		36: "TEC CABLE CONNECTION FAILURE",
	}
)

// ITC4000 represents an ITC4000 laser diode and TEC controller
type ITC4000 struct {
	sync.Mutex

	dev *usbtmc.Device
}

// NewITC4000 wraps an open USBTMC device in the controller type.
// Use Open to claim the hardware from the bus.
func NewITC4000(dev *usbtmc.Device) *ITC4000 {
	return &ITC4000{dev: dev}
}

func (ldc *ITC4000) writeOnly(cmd string) error {
	ldc.Lock()
	defer ldc.Unlock()
	return ldc.dev.Write(append([]byte(cmd), '\n'))
}

func (ldc *ITC4000) writeRead(cmd string) (string, error) {
	ldc.Lock()
	defer ldc.Unlock()
	if err := ldc.dev.Write(append([]byte(cmd), '\n')); err != nil {
		return "", err
	}
	resp, err := ldc.dev.Read()
	if err != nil {
		return "", err
	}
	data := resp.Data
	// the controller may terminate with a Data Link Escape before the newline
	if n := len(data); n > 0 && data[n-1] == '\n' {
		data = data[:n-1]
	}
	if n := len(data); n > 0 && data[n-1] == 0x10 {
		data = data[:n-1]
	}
	return string(data), nil
}

// Enable turns the laser diode output on
func (ldc *ITC4000) Enable() error {
	return ldc.writeOnly("OUTPUT ON")
}

// Disable turns the laser diode output off
func (ldc *ITC4000) Disable() error {
	return ldc.writeOnly("OUTPUT OFF")
}

// GetEnabled reports whether the laser diode output is on
func (ldc *ITC4000) GetEnabled() (bool, error) {
	resp, err := ldc.writeRead("OUTPUT?")
	return resp == "1", err
}

// SetEmission turns the output on (true) or off (false)
func (ldc *ITC4000) SetEmission(on bool) error {
	if on {
		return ldc.Enable()
	}
	return ldc.Disable()
}

// GetEmission reports whether the output is on
func (ldc *ITC4000) GetEmission() (bool, error) {
	return ldc.GetEnabled()
}

// SetConstantPowerMode puts the laser into constant power mode (true)
// or constant current mode (false)
func (ldc *ITC4000) SetConstantPowerMode(b bool) error {
	var cmd string
	if b {
		cmd = "SOURCE:FUNCTION:MODE POWER"
	} else {
		cmd = "SOURCE:FUNCTION:MODE CURRENT"
	}
	return ldc.writeOnly(cmd)
}

// GetConstantPowerMode reports if the laser is in constant power mode
func (ldc *ITC4000) GetConstantPowerMode() (bool, error) {
	resp, err := ldc.writeRead("SOURCE:FUNCTION:MODE?")
	return resp != "CURR", err
}

// SetPower sets the output power level in mW
func (ldc *ITC4000) SetPower(mw float64) error {
	cmd := fmt.Sprintf("SOURCE:POWER %.9f", mw/1e3)
	return ldc.writeOnly(cmd)
}

// GetPower returns the output power setpoint in mW
func (ldc *ITC4000) GetPower() (float64, error) {
	resp, err := ldc.writeRead("SOURCE:POWER?")
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(resp, 64)
	return f * 1e3, err
}

// SetCurrent sets the output current in mA
func (ldc *ITC4000) SetCurrent(ma float64) error {
	cmd := fmt.Sprintf("SOURCE:CURRENT %.9f", ma/1e3)
	return ldc.writeOnly(cmd)
}

// GetCurrent returns the output current setpoint in mA
func (ldc *ITC4000) GetCurrent() (float64, error) {
	resp, err := ldc.writeRead("SOURCE:CURRENT?")
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(resp, 64)
	return f * 1e3, err
}

// GetID returns the controller's identification string
func (ldc *ITC4000) GetID() (string, error) {
	return ldc.writeRead("*IDN?")
}

// ReadError pops one entry from the controller's error queue.  A nil
// return means the queue was empty.
func (ldc *ITC4000) ReadError() error {
	resp, err := ldc.writeRead("SYSTEM:ERROR?")
	if err != nil {
		return err
	}
	code, _, _ := strings.Cut(resp, ",")
	i, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("unparseable error reply %q: %w", resp, err)
	}
	if i == 0 {
		return nil
	}
	return LDCError{code: i}
}

// MakeSafe turns the output off
func (ldc *ITC4000) MakeSafe() error {
	return ldc.Disable()
}

// Close releases the USB device
func (ldc *ITC4000) Close() error {
	return ldc.dev.Close()
}

// Raw sends a command and retrieves the reply if there is a question
// mark in the command, else returns "", err
func (ldc *ITC4000) Raw(cmd string) (string, error) {
	if !strings.Contains(cmd, "?") {
		return "", ldc.writeOnly(cmd)
	}
	return ldc.writeRead(cmd)
}
