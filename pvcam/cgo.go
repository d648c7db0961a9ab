//go:build pvcam

package pvcam

/*
#cgo LDFLAGS: -lpvcam
#include <stdlib.h>
#include <master.h>
#include <pvcam.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/astrogo/fitsio"

	"github.com/mickp/deviceremotes/generichttp/camera"
)

var (
	initOnce sync.Once
	initErr  error
)

// initLibrary brings up the PVCAM runtime exactly once per process
func initLibrary() error {
	initOnce.Do(func() {
		if C.pl_pvcam_init() == 0 {
			initErr = lastError("pl_pvcam_init")
		}
	})
	return initErr
}

// lastError formats the SDK's error stack top as a Go error
func lastError(op string) error {
	code := C.pl_error_code()
	var buf [C.ERROR_MSG_LEN]C.char
	C.pl_error_message(code, &buf[0])
	return fmt.Errorf("pvcam: %s: %d - %s", op, int16(code), C.GoString(&buf[0]))
}

// Camera is an open PVCAM camera
type Camera struct {
	mu sync.Mutex

	handle C.int16
	index  int
	name   string

	sensorW, sensorH int
	aoi              camera.AOI
	binning          camera.Binning
	exposure         time.Duration

	coolingSetpoint float64
}

// New returns an unopened camera by enumeration index.  Initialize
// makes contact with the hardware.
func New(index int) *Camera {
	return &Camera{index: index, binning: camera.Binning{H: 1, V: 1}, exposure: 10 * time.Millisecond}
}

// Initialize opens the camera, reads the sensor shape and sets the
// full frame as the starting AOI
func (c *Camera) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := initLibrary(); err != nil {
		return err
	}
	var name [C.CAM_NAME_LEN]C.char
	if C.pl_cam_get_name(C.int16(c.index), &name[0]) == 0 {
		return lastError("pl_cam_get_name")
	}
	c.name = C.GoString(&name[0])
	if C.pl_cam_open(&name[0], &c.handle, C.OPEN_EXCLUSIVE) == 0 {
		return lastError("pl_cam_open")
	}
	w, err := c.getParamUint16(C.PARAM_SER_SIZE)
	if err != nil {
		return err
	}
	h, err := c.getParamUint16(C.PARAM_PAR_SIZE)
	if err != nil {
		return err
	}
	c.sensorW, c.sensorH = int(w), int(h)
	c.aoi = camera.AOI{Left: 0, Top: 0, Width: c.sensorW, Height: c.sensorH}
	// report exposures in a fixed resolution so expScale is constant
	if err := c.setParamInt32(C.PARAM_EXP_RES, expResMillisec); err != nil {
		return err
	}
	return c.setParamInt32(C.PARAM_CLEAR_MODE, C.CLEAR_PRE_EXPOSURE_POST_SEQ)
}

func (c *Camera) getParamUint16(param C.uns32) (uint16, error) {
	var v C.uns16
	if C.pl_get_param(c.handle, param, C.ATTR_CURRENT, unsafe.Pointer(&v)) == 0 {
		return 0, lastError("pl_get_param")
	}
	return uint16(v), nil
}

func (c *Camera) getParamInt16(param C.uns32) (int16, error) {
	var v C.int16
	if C.pl_get_param(c.handle, param, C.ATTR_CURRENT, unsafe.Pointer(&v)) == 0 {
		return 0, lastError("pl_get_param")
	}
	return int16(v), nil
}

func (c *Camera) setParamInt32(param C.uns32, value int32) error {
	v := C.int32(value)
	if C.pl_set_param(c.handle, param, unsafe.Pointer(&v)) == 0 {
		return lastError("pl_set_param")
	}
	return nil
}

func (c *Camera) setParamInt16(param C.uns32, value int16) error {
	v := C.int16(value)
	if C.pl_set_param(c.handle, param, unsafe.Pointer(&v)) == 0 {
		return lastError("pl_set_param")
	}
	return nil
}

// GetFrame acquires one frame as a timed exposure and blocks until
// readout completes
func (c *Camera) GetFrame() ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rgn := regionFor(c.aoi, c.binning)
	crgn := C.rgn_type{
		s1: C.uns16(rgn.S1), s2: C.uns16(rgn.S2), sbin: C.uns16(rgn.Sbin),
		p1: C.uns16(rgn.P1), p2: C.uns16(rgn.P2), pbin: C.uns16(rgn.Pbin),
	}
	expo := C.uns32(c.exposure / time.Millisecond)
	var nbytes C.uns32
	if C.pl_exp_setup_seq(c.handle, 1, 1, &crgn, C.TIMED_MODE, expo, &nbytes) == 0 {
		return nil, lastError("pl_exp_setup_seq")
	}
	buf := make([]uint16, nbytes/2)
	if C.pl_exp_start_seq(c.handle, unsafe.Pointer(&buf[0])) == 0 {
		return nil, lastError("pl_exp_start_seq")
	}
	defer C.pl_exp_finish_seq(c.handle, unsafe.Pointer(&buf[0]), 0)
	for {
		var status C.int16
		var arrived C.uns32
		if C.pl_exp_check_status(c.handle, &status, &arrived) == 0 {
			return nil, lastError("pl_exp_check_status")
		}
		if status == C.READOUT_COMPLETE {
			return buf, nil
		}
		if status == C.READOUT_FAILED {
			return nil, lastError("readout")
		}
		time.Sleep(time.Millisecond)
	}
}

// SetExposureTime stores the exposure used by the next acquisition
func (c *Camera) SetExposureTime(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exposure = d
	return nil
}

// GetExposureTime returns the exposure used by the next acquisition
func (c *Camera) GetExposureTime() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exposure, nil
}

// GetAOI returns the area of interest
func (c *Camera) GetAOI() (camera.AOI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aoi, nil
}

// SetAOI sets the area of interest
func (c *Camera) SetAOI(aoi camera.AOI) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aoi.Right() > c.sensorW || aoi.Bottom() > c.sensorH {
		return fmt.Errorf("pvcam: AOI %+v exceeds the %dx%d sensor", aoi, c.sensorW, c.sensorH)
	}
	c.aoi = aoi
	return nil
}

// GetBinning returns the binning factors
func (c *Camera) GetBinning() (camera.Binning, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binning, nil
}

// SetBinning sets the binning factors
func (c *Camera) SetBinning(b camera.Binning) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binning = b
	return nil
}

// GetTemperature reads the sensor temperature in Celsius
func (c *Camera) GetTemperature() (float64, error) {
	v, err := c.getParamInt16(C.PARAM_TEMP)
	return tempFromCenti(int(v)), err
}

// GetTemperatureSetpoint returns the cooling setpoint in Celsius
func (c *Camera) GetTemperatureSetpoint() (float64, error) {
	v, err := c.getParamInt16(C.PARAM_TEMP_SETPOINT)
	return tempFromCenti(int(v)), err
}

// SetTemperatureSetpoint sets the cooling setpoint in Celsius
func (c *Camera) SetTemperatureSetpoint(celsius float64) error {
	if err := c.setParamInt16(C.PARAM_TEMP_SETPOINT, int16(tempToCenti(celsius))); err != nil {
		return err
	}
	c.mu.Lock()
	c.coolingSetpoint = celsius
	c.mu.Unlock()
	return nil
}

// GetCooling reports whether the sensor is being held below ambient
func (c *Camera) GetCooling() (bool, error) {
	sp, err := c.GetTemperatureSetpoint()
	return sp < 0, err
}

// SetCooling is a no-op; PVCAM coolers follow the setpoint
func (c *Camera) SetCooling(bool) error {
	return nil
}

// CollectHeaderMetadata returns FITS cards describing the acquisition
func (c *Camera) CollectHeaderMetadata() []fitsio.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	temp, _ := c.getParamInt16(C.PARAM_TEMP)
	return []fitsio.Card{
		{Name: "CAMERA", Value: c.name, Comment: "PVCAM camera name"},
		{Name: "EXPTIME", Value: c.exposure.Seconds(), Comment: "exposure time, seconds"},
		{Name: "CCDTEMP", Value: tempFromCenti(int(temp)), Comment: "sensor temperature, C"},
		{Name: "AOIL", Value: c.aoi.Left, Comment: "AOI left"},
		{Name: "AOIT", Value: c.aoi.Top, Comment: "AOI top"},
		{Name: "AOIW", Value: c.aoi.Width, Comment: "AOI width"},
		{Name: "AOIH", Value: c.aoi.Height, Comment: "AOI height"},
		{Name: "HBIN", Value: c.binning.H, Comment: "horizontal binning"},
		{Name: "VBIN", Value: c.binning.V, Comment: "vertical binning"},
	}
}

// GetID returns the camera's enumeration name
func (c *Camera) GetID() (string, error) {
	return c.name, nil
}

// MakeSafe aborts any acquisition in progress
func (c *Camera) MakeSafe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if C.pl_exp_abort(c.handle, C.CCS_CLEAR) == 0 {
		return lastError("pl_exp_abort")
	}
	return nil
}

// Shutdown aborts acquisition and closes the camera
func (c *Camera) Shutdown() error {
	if err := c.MakeSafe(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if C.pl_cam_close(c.handle) == 0 {
		return lastError("pl_cam_close")
	}
	return nil
}
