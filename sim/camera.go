package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/astrogo/fitsio"
	"golang.org/x/time/rate"

	"github.com/mickp/deviceremotes/device"
	"github.com/mickp/deviceremotes/generichttp/camera"
)

const simAmbient = 20.0 // sensor temperature with the cooler off, C

// SimCamera is a software camera producing synthetic frames: Poisson-ish
// noise around a floor plus a Gaussian spot in the middle of the AOI.
// Frame delivery is paced so bursts behave like a real readout.
type SimCamera struct {
	mu sync.Mutex

	sensorW, sensorH int
	aoi              camera.AOI
	binning          camera.Binning
	exposure         time.Duration

	cooling  bool
	setpoint float64

	limiter *rate.Limiter
	rng     *rand.Rand
}

// NewSimCamera returns a camera with the given sensor shape, full-frame
// AOI and a 100 fps delivery ceiling
func NewSimCamera(width, height int) *SimCamera {
	return &SimCamera{
		sensorW:  width,
		sensorH:  height,
		aoi:      camera.AOI{Left: 0, Top: 0, Width: width, Height: height},
		binning:  camera.Binning{H: 1, V: 1},
		exposure: 10 * time.Millisecond,
		setpoint: simAmbient,
		limiter:  rate.NewLimiter(rate.Limit(100), 1),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Initialize is a no-op for the simulation
func (c *SimCamera) Initialize() error { return nil }

// frameDims returns the binned frame shape
func (c *SimCamera) frameDims() (int, int) {
	return c.aoi.Width / c.binning.H, c.aoi.Height / c.binning.V
}

// synthesize renders one frame.  Counts scale with exposure so longer
// integrations look brighter, as a user pointing the simulator at a
// histogram would expect.
func (c *SimCamera) synthesize() []uint16 {
	w, h := c.frameDims()
	buf := make([]uint16, w*h)
	gain := c.exposure.Seconds() / 0.01 // unity at the default exposure
	floor := 100 * gain
	peak := 20000 * gain
	cx, cy := float64(w)/2, float64(h)/2
	sigma := float64(w) / 8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			spot := peak * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			v := floor + spot + c.rng.NormFloat64()*math.Sqrt(floor+spot+1)
			if v < 0 {
				v = 0
			}
			if v > math.MaxUint16 {
				v = math.MaxUint16
			}
			buf[y*w+x] = uint16(v)
		}
	}
	return buf
}

// GetFrame integrates for the exposure time and returns one frame
func (c *SimCamera) GetFrame() ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}
	time.Sleep(c.exposure)
	return c.synthesize(), nil
}

// Burst takes frames frames at fps, returning the contiguous buffer of
// the 3D cube
func (c *SimCamera) Burst(frames int, fps float64) ([]uint16, error) {
	if frames < 1 || fps <= 0 {
		return nil, fmt.Errorf("sim: burst of %d frames at %g fps is not sensible", frames, fps)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pacer := rate.NewLimiter(rate.Limit(fps), 1)
	w, h := c.frameDims()
	out := make([]uint16, 0, frames*w*h)
	for i := 0; i < frames; i++ {
		if err := pacer.Wait(context.Background()); err != nil {
			return nil, err
		}
		out = append(out, c.synthesize()...)
	}
	return out, nil
}

// SetExposureTime sets the integration time
func (c *SimCamera) SetExposureTime(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		return fmt.Errorf("sim: exposure time %v must be positive", d)
	}
	c.exposure = d
	return nil
}

// GetExposureTime returns the integration time
func (c *SimCamera) GetExposureTime() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exposure, nil
}

// GetAOI returns the area of interest
func (c *SimCamera) GetAOI() (camera.AOI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aoi, nil
}

// SetAOI sets the area of interest
func (c *SimCamera) SetAOI(aoi camera.AOI) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aoi.Right() > c.sensorW || aoi.Bottom() > c.sensorH {
		return fmt.Errorf("sim: AOI %+v exceeds the %dx%d sensor", aoi, c.sensorW, c.sensorH)
	}
	c.aoi = aoi
	return nil
}

// GetBinning returns the binning factors
func (c *SimCamera) GetBinning() (camera.Binning, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binning, nil
}

// SetBinning sets the binning factors
func (c *SimCamera) SetBinning(b camera.Binning) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.H < 1 || b.V < 1 {
		return fmt.Errorf("sim: binning %+v must be at least 1x1", b)
	}
	c.binning = b
	return nil
}

// GetCooling reports whether the fake cooler is running
func (c *SimCamera) GetCooling() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cooling, nil
}

// SetCooling turns the fake cooler on or off
func (c *SimCamera) SetCooling(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cooling = on
	return nil
}

// GetTemperature returns the setpoint when cooling, ambient otherwise
func (c *SimCamera) GetTemperature() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cooling {
		return c.setpoint, nil
	}
	return simAmbient, nil
}

// GetTemperatureSetpoint returns the cooling setpoint in Celsius
func (c *SimCamera) GetTemperatureSetpoint() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setpoint, nil
}

// SetTemperatureSetpoint sets the cooling setpoint in Celsius
func (c *SimCamera) SetTemperatureSetpoint(celsius float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setpoint = celsius
	return nil
}

// CollectHeaderMetadata returns FITS cards describing the acquisition
func (c *SimCamera) CollectHeaderMetadata() []fitsio.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	temp := simAmbient
	if c.cooling {
		temp = c.setpoint
	}
	return []fitsio.Card{
		{Name: "CAMERA", Value: "simulated", Comment: "synthetic frame source"},
		{Name: "EXPTIME", Value: c.exposure.Seconds(), Comment: "exposure time, seconds"},
		{Name: "CCDTEMP", Value: temp, Comment: "sensor temperature, C"},
		{Name: "HBIN", Value: c.binning.H, Comment: "horizontal binning"},
		{Name: "VBIN", Value: c.binning.V, Comment: "vertical binning"},
	}
}

// Settings returns the camera's settings registry
func (c *SimCamera) Settings() *device.Settings {
	set := device.NewSettings()
	set.Add(device.Setting{
		Name: "exposure_time_s",
		Type: device.SettingFloat,
		Get: func() (interface{}, error) {
			d, err := c.GetExposureTime()
			return d.Seconds(), err
		},
		Set: func(v interface{}) error {
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("exposure_time_s wants a float, got %T", v)
			}
			return c.SetExposureTime(time.Duration(f * float64(time.Second)))
		},
	})
	set.Add(device.Setting{
		Name: "cooling",
		Type: device.SettingBool,
		Get: func() (interface{}, error) {
			return c.GetCooling()
		},
		Set: func(v interface{}) error {
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("cooling wants a bool, got %T", v)
			}
			return c.SetCooling(b)
		},
	})
	set.Add(device.Setting{
		Name: "temperature_setpoint_c",
		Type: device.SettingFloat,
		Get: func() (interface{}, error) {
			return c.GetTemperatureSetpoint()
		},
		Set: func(v interface{}) error {
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("temperature_setpoint_c wants a float, got %T", v)
			}
			return c.SetTemperatureSetpoint(f)
		},
	})
	set.Add(device.Setting{
		Name:     "sensor_temperature_c",
		Type:     device.SettingFloat,
		ReadOnly: true,
		Get: func() (interface{}, error) {
			return c.GetTemperature()
		},
	})
	return set
}

// GetID returns a fixed identifier
func (c *SimCamera) GetID() (string, error) { return "SIM-CAM-0001", nil }

// MakeSafe is a no-op; there is no sensor to protect
func (c *SimCamera) MakeSafe() error { return nil }

// Shutdown is a no-op for the simulation
func (c *SimCamera) Shutdown() error { return nil }
