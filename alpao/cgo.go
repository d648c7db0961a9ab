//go:build alpao

package alpao

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/mickp/deviceremotes/device"
	"github.com/mickp/deviceremotes/generichttp/dm"
)

/*
#cgo LDFLAGS: -lasdk
#include <stdlib.h>
#include <asdkWrapper.h>
*/
import "C"

// DM is an open connection to a mirror
type DM struct {
	raw       *C.asdkDM
	errBuf    [errMsgLen]C.char
	actuators int
	trigger   device.TriggerType
	queue     *dm.SoftwareQueue
	sn        string
}

// Open connects to the mirror with the given serial number, something
// like "BIL103"
func Open(sn string) (*DM, error) {
	d := &DM{sn: sn}
	cstr := C.CString(sn)
	defer C.free(unsafe.Pointer(cstr))
	d.raw = C.asdkInit(cstr)
	if d.raw == nil {
		return nil, errors.New("alpao: asdkInit returned no handle")
	}
	// a missing configuration file still yields a handle; the error
	// only shows up on the SDK's error stack
	if err := d.lastError(); err != nil {
		return nil, err
	}
	var count C.asdkScalar
	cname := C.CString("NbOfActuator")
	defer C.free(unsafe.Pointer(cname))
	if err := d.check(C.asdkGet(d.raw, cname, &count)); err != nil {
		return nil, err
	}
	d.actuators = int(count)
	d.queue = dm.NewSoftwareQueue(d)
	return d, nil
}

// lastError pops the SDK error stack, nil when it is clean
func (d *DM) lastError() error {
	for i := range d.errBuf {
		d.errBuf[i] = 0
	}
	var code C.asdkUInt32
	status := C.asdkGetLastError(&code, &d.errBuf[0], errMsgLen)
	if status != C.asdkSUCCESS {
		return nil
	}
	return fmt.Errorf("alpao: %s (error %d)", C.GoString(&d.errBuf[0]), uint32(code))
}

func (d *DM) check(status C.asdkCOMPL_STAT) error {
	if status == C.asdkSUCCESS {
		return nil
	}
	if err := d.lastError(); err != nil {
		return err
	}
	return errors.New("alpao: SDK call failed with an empty error stack")
}

// Initialize is a no-op; Open establishes contact with the hardware
func (d *DM) Initialize() error { return nil }

// NumActuators returns the actuator count queried at Open
func (d *DM) NumActuators() int {
	return d.actuators
}

// ApplyPattern sends one stroke fraction per actuator to the mirror
func (d *DM) ApplyPattern(pattern []float64) error {
	if err := checkLength(pattern, d.actuators); err != nil {
		return err
	}
	values := Normalize(pattern)
	return d.check(C.asdkSend(d.raw, (*C.asdkScalar)(&values[0])))
}

// SetTrigger selects what fires the mirror.  Modes do not apply to
// mirrors, so the mode argument is ignored.
func (d *DM) SetTrigger(t device.TriggerType, _ device.TriggerMode) error {
	value, err := triggerIn(t)
	if err != nil {
		return err
	}
	cname := C.CString("TriggerIn")
	defer C.free(unsafe.Pointer(cname))
	if err := d.check(C.asdkSet(d.raw, cname, C.asdkScalar(value))); err != nil {
		return err
	}
	d.trigger = t
	return nil
}

// GetTrigger retrieves the current trigger configuration
func (d *DM) GetTrigger() (device.TriggerType, device.TriggerMode, error) {
	return d.trigger, device.TriggerStrobe, nil
}

// QueuePatterns stores a sequence of patterns.  Under software trigger
// the queue lives driver-side and NextPattern steps through it; under a
// hardware trigger the whole sequence is handed to the SDK, which then
// applies one pattern per edge.
func (d *DM) QueuePatterns(patterns [][]float64) error {
	if d.trigger == device.TriggerSoftware {
		return d.queue.QueuePatterns(patterns)
	}
	flat := make([]float64, 0, len(patterns)*d.actuators)
	for _, p := range patterns {
		if err := checkLength(p, d.actuators); err != nil {
			return err
		}
		flat = append(flat, Normalize(p)...)
	}
	if len(flat) == 0 {
		return errors.New("alpao: empty pattern sequence")
	}
	n := C.asdkUInt32(len(patterns))
	// nPatt == nRepeat makes the SDK advance one pattern per trigger
	// instead of free-running through the whole sequence
	return d.check(C.asdkSendPattern(d.raw, (*C.asdkScalar)(&flat[0]), n, n))
}

// NextPattern applies the next queued pattern; only meaningful under
// software trigger
func (d *DM) NextPattern() error {
	if d.trigger != device.TriggerSoftware {
		return errors.New("alpao: software advance received while set for hardware trigger")
	}
	return d.queue.NextPattern()
}

// Zero resets every actuator to its neutral position
func (d *DM) Zero() error {
	return d.check(C.asdkReset(d.raw))
}

// MakeSafe zeros the mirror
func (d *DM) MakeSafe() error {
	return d.Zero()
}

// GetID returns the serial number the mirror was opened with
func (d *DM) GetID() (string, error) {
	return d.sn, nil
}

// Shutdown zeros the mirror and releases the SDK handle
func (d *DM) Shutdown() error {
	if err := d.Zero(); err != nil {
		return err
	}
	return d.Close()
}

// Close releases the SDK handle
func (d *DM) Close() error {
	return d.check(C.asdkRelease(d.raw))
}
