//go:build bmc

package bmc

/*
#cgo CFLAGS: -I"/opt/Boston Micromachines/include"
#cgo LDFLAGS: -L"/opt/Boston Micromachines/lib" -lBMC
#include <stdlib.h>
#include <BMCApi.h>
*/
import "C"
import (
	"unsafe"

	"github.com/mickp/deviceremotes/generichttp/dm"
)

// ctoGoErr converts an SDK return code to a Go error, nil on success
func ctoGoErr(i C.BMCRC) error {
	ig := int(i)
	if ig == 0 {
		return nil
	}
	// error strings are static in the SDK and must not be freed
	return Error{code: ig, text: C.GoString(C.BMCErrorString(i))}
}

// DM is an open connection to a mirror driver
type DM struct {
	raw   C.struct_DM
	queue *dm.SoftwareQueue
	sn    string
}

// Open connects to the mirror with the given serial number and loads
// its default actuator map
func Open(sn string) (*DM, error) {
	d := &DM{sn: sn}
	cstr := C.CString(sn)
	defer C.free(unsafe.Pointer(cstr))
	if err := ctoGoErr(C.BMCOpen(&d.raw, cstr)); err != nil {
		return nil, err
	}
	if err := ctoGoErr(C.BMCLoadMap(&d.raw, nil, nil)); err != nil {
		return nil, err
	}
	d.queue = dm.NewSoftwareQueue(d)
	return d, nil
}

// Initialize is a no-op; Open establishes contact with the driver
func (d *DM) Initialize() error { return nil }

// NumActuators returns the actuator count reported by the driver
func (d *DM) NumActuators() int {
	return int(d.raw.ActCount)
}

// ApplyPattern sends one stroke fraction per actuator to the mirror
func (d *DM) ApplyPattern(values []float64) error {
	return ctoGoErr(C.BMCSetArray(&d.raw, (*C.double)(&values[0]), nil))
}

// GetArray queries the driver for the last pattern sent to it
func (d *DM) GetArray() ([]float64, error) {
	ary := make([]float64, d.NumActuators())
	err := ctoGoErr(C.BMCGetArray(&d.raw, (*C.double)(&ary[0]), C.uint32_t(len(ary))))
	return ary, err
}

// SetSingle commands a single actuator without disturbing the others
func (d *DM) SetSingle(idx int, value float64) error {
	return ctoGoErr(C.BMCSetSingle(&d.raw, C.uint32_t(idx), C.double(value)))
}

// Zero clears the array, putting the mirror in a safe condition
func (d *DM) Zero() error {
	return ctoGoErr(C.BMCClearArray(&d.raw))
}

// QueuePatterns stores a sequence of patterns for NextPattern.  The BMC
// SDK has no native queue, so this is the software fallback.
func (d *DM) QueuePatterns(patterns [][]float64) error {
	return d.queue.QueuePatterns(patterns)
}

// NextPattern applies the next queued pattern
func (d *DM) NextPattern() error {
	return d.queue.NextPattern()
}

// MakeSafe zeros the mirror
func (d *DM) MakeSafe() error {
	return d.Zero()
}

// GetID returns the serial number the driver was opened with
func (d *DM) GetID() (string, error) {
	return d.sn, nil
}

// Shutdown zeros the mirror and closes the driver connection
func (d *DM) Shutdown() error {
	if err := d.Zero(); err != nil {
		return err
	}
	return d.Close()
}

// Close closes the connection to the DM driver
func (d *DM) Close() error {
	return ctoGoErr(C.BMCClose(&d.raw))
}
