// Package coherent provides remote control of Coherent OBIS lasers
package coherent

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/mickp/deviceremotes/comm"
	"github.com/mickp/deviceremotes/util"
)

// the OBIS head speaks SCPI-flavored ASCII at 115200 8N1.  Commands are
// terminated CRLF.  Every exchange ends with a handshake line, "OK" on
// success or "ERR-nnn" on failure, which may precede or follow a data line.

func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        115200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 500 * time.Millisecond}
}

// OBIS represents an OBIS laser head
type OBIS struct {
	sync.Mutex

	dev comm.RemoteDevice

	buf *bufio.Reader

	// power limits in mW, learned from the head during Initialize
	limits util.Limiter

	model        string
	serialNumber string
}

// NewOBIS creates a new OBIS instance.  addr is a serial port path
// (or host:port when serial is false, for terminal servers).
func NewOBIS(addr string, isSerial bool) *OBIS {
	cfg := makeSerConf(addr)
	terms := comm.Terminators{Rx: '\n', Tx: '\n'}
	return &OBIS{dev: comm.NewRemoteDevice(addr, isSerial, &terms, cfg)}
}

// send writes a command to the head, CRLF terminated
func (o *OBIS) send(cmd string) error {
	if o.dev.Conn == nil {
		return comm.ErrNotConnected
	}
	_, err := o.dev.Conn.Write([]byte(cmd + "\r\n"))
	return err
}

// readline reads one line from the head, stripping whitespace and
// absorbing the handshake.  An ERR-nnn handshake is turned into an error.
func (o *OBIS) readline() (string, error) {
	if o.buf == nil {
		return "", comm.ErrNotConnected
	}
	line, err := o.buf.ReadString('\n')
	if err != nil {
		return "", err
	}
	resp := strings.TrimSpace(line)
	if resp == "OK" {
		return resp, nil
	}
	if strings.HasPrefix(resp, "ERR") {
		return resp, fmt.Errorf("obis: handshake error %s", resp)
	}
	// a real response; the handshake line follows it, unless the head
	// has handshaking off, in which case the data line stands alone
	line, err = o.buf.ReadString('\n')
	if err != nil {
		return resp, nil
	}
	if hs := strings.TrimSpace(line); strings.HasPrefix(hs, "ERR") {
		return resp, fmt.Errorf("obis: handshake error %s", hs)
	}
	return resp, nil
}

// query sends a command and returns the response line
func (o *OBIS) query(cmd string) (string, error) {
	if err := o.send(cmd); err != nil {
		return "", err
	}
	return o.readline()
}

// queryFloat sends a command and parses the response as a float
func (o *OBIS) queryFloat(cmd string) (float64, error) {
	resp, err := o.query(cmd)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// Initialize opens the connection to the head, turns handshaking on, and
// learns the head's identity and power limits.  The connection is held
// open afterwards; handshake state does not survive reconnection.
func (o *OBIS) Initialize() error {
	o.Lock()
	defer o.Unlock()
	if err := o.dev.Open(); err != nil {
		return err
	}
	o.buf = bufio.NewReader(o.dev.Conn)
	if _, err := o.query("SYSTem:COMMunicate:HANDshaking ON"); err != nil {
		return err
	}
	var err error
	if o.model, err = o.query("SYSTem:INFormation:MODel?"); err != nil {
		return err
	}
	if o.serialNumber, err = o.query("SYSTem:INFormation:SNUMber?"); err != nil {
		return err
	}
	// CDRH delay, TEC probe and self test responses are informational;
	// a dead head fails here instead of on first use
	for _, cmd := range []string{
		"SYSTem:CDRH?",
		"SOURce:TEMPerature:APRobe?",
		"*TST?",
		"SYSTem:AUTostart?"} {
		if _, err := o.query(cmd); err != nil {
			return err
		}
	}
	maxW, err := o.queryFloat("SYSTem:INFormation:POWer?")
	if err != nil {
		return err
	}
	minW, err := o.queryFloat("SOURce:POWer:LIMit:LOW?")
	if err != nil {
		return err
	}
	o.limits = util.Limiter{Min: minW * 1000, Max: maxW * 1000}
	return nil
}

// Close closes the connection to the head
func (o *OBIS) Close() error {
	o.Lock()
	defer o.Unlock()
	o.buf = nil
	return o.dev.Close()
}

// GetID returns the head's serial number
func (o *OBIS) GetID() (string, error) {
	return o.serialNumber, nil
}

// Enable turns the laser on.  Temperature control is restored first in
// case the head was put to sleep, and emission is verified afterwards.
func (o *OBIS) Enable() error {
	o.Lock()
	for _, cmd := range []string{
		"SOURce:TEMPerature:APRobe ON",
		"SOURce:AM:STATe ON",
		"SOURce:AM:EXTernal DIGital"} {
		if _, err := o.query(cmd); err != nil {
			o.Unlock()
			return err
		}
	}
	o.Unlock()
	on, err := o.GetEnabled()
	if err != nil {
		return err
	}
	if !on {
		return fmt.Errorf("obis: laser did not report emission after enable")
	}
	return nil
}

// Disable turns the laser off and verifies that emission stopped
func (o *OBIS) Disable() error {
	o.Lock()
	_, err := o.query("SOURce:AM:STATe OFF")
	o.Unlock()
	if err != nil {
		return err
	}
	on, err := o.GetEnabled()
	if err != nil {
		return err
	}
	if on {
		return fmt.Errorf("obis: laser still reports emission after disable")
	}
	return nil
}

// GetEnabled returns true if the laser is currently able to produce light
func (o *OBIS) GetEnabled() (bool, error) {
	o.Lock()
	defer o.Unlock()
	resp, err := o.query("SOURce:AM:STATe?")
	if err != nil {
		return false, err
	}
	return resp == "ON", nil
}

// SetEmission turns emission on or off
func (o *OBIS) SetEmission(on bool) error {
	if on {
		return o.Enable()
	}
	return o.Disable()
}

// GetEmission queries if the laser is currently outputting
func (o *OBIS) GetEmission() (bool, error) {
	return o.GetEnabled()
}

// GetStatus returns a human-readable account of the head's health
func (o *OBIS) GetStatus() ([]string, error) {
	o.Lock()
	defer o.Unlock()
	result := make([]string, 0, 6)
	for _, row := range []struct {
		cmd string
		msg string
	}{
		{"SOURce:AM:STATe?", "Emission on?"},
		{"SOURce:POWer:LEVel:IMMediate:AMPLitude?", "Target power:"},
		{"SOURce:POWer:LEVel?", "Measured power:"},
		{"SYSTem:STATus?", "Status code?"},
		{"SYSTem:FAULt?", "Fault code?"},
		{"SYSTem:HOURs?", "Head operating hours:"}} {
		resp, err := o.query(row.cmd)
		if err != nil {
			return result, err
		}
		result = append(result, row.msg+" "+resp)
	}
	return result, nil
}

// GetPower returns the measured output power in mW.  An idle laser
// reports zero regardless of its setpoint.
func (o *OBIS) GetPower() (float64, error) {
	on, err := o.GetEnabled()
	if err != nil {
		return 0, err
	}
	if !on {
		return 0, nil
	}
	o.Lock()
	defer o.Unlock()
	w, err := o.queryFloat("SOURce:POWer:LEVel?")
	if err != nil {
		return 0, err
	}
	return w * 1000, nil
}

// SetPower sets the power setpoint in mW, clamped to the head's limits
func (o *OBIS) SetPower(mw float64) error {
	o.Lock()
	defer o.Unlock()
	if o.limits.Max > 0 {
		mw = util.Clamp(mw, o.limits.Min, o.limits.Max)
	}
	_, err := o.query(fmt.Sprintf("SOURce:POWer:LEVel:IMMediate:AMPLitude %.5f", mw/1000))
	return err
}

// GetPowerSetpoint returns the commanded power in mW
func (o *OBIS) GetPowerSetpoint() (float64, error) {
	o.Lock()
	defer o.Unlock()
	w, err := o.queryFloat("SOURce:POWer:LEVel:IMMediate:AMPLitude?")
	if err != nil {
		return 0, err
	}
	return w * 1000, nil
}

// GetMinPower returns the lowest supported power setpoint in mW
func (o *OBIS) GetMinPower() (float64, error) {
	o.Lock()
	defer o.Unlock()
	w, err := o.queryFloat("SOURce:POWer:LIMit:LOW?")
	if err != nil {
		return 0, err
	}
	return w * 1000, nil
}

// GetMaxPower returns the highest supported power setpoint in mW
func (o *OBIS) GetMaxPower() (float64, error) {
	o.Lock()
	defer o.Unlock()
	w, err := o.queryFloat("SOURce:POWer:LIMit:HIGH?")
	if err != nil {
		return 0, err
	}
	return w * 1000, nil
}

// MakeSafe stops emission
func (o *OBIS) MakeSafe() error {
	return o.Disable()
}

// Shutdown stops emission and puts the head to sleep
func (o *OBIS) Shutdown() error {
	if err := o.Disable(); err != nil {
		return err
	}
	o.Lock()
	defer o.Unlock()
	if _, err := o.query("SOURce:TEMPerature:APRobe OFF"); err != nil {
		return err
	}
	return nil
}

// Raw sends a raw command to the head and returns the response
func (o *OBIS) Raw(cmd string) (string, error) {
	o.Lock()
	defer o.Unlock()
	return o.query(cmd)
}
