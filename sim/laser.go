/*Package sim provides simulated instruments satisfying the same
capability interfaces as the hardware drivers.  A node configured with
Mock: true is served by one of these, which makes it possible to stand
up a full server with no vendor SDKs or hardware attached.
*/
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/mickp/deviceremotes/device"
	"github.com/mickp/deviceremotes/util"
)

// SimLaser is a software laser with a power limit and an emission
// runtime counter that ticks while emission is on
type SimLaser struct {
	mu sync.Mutex

	limits   util.Limiter
	power    float64
	emission bool
	runtime  time.Duration
	lastOn   time.Time
}

// NewSimLaser returns a laser with power limits in mW
func NewSimLaser(minPower, maxPower float64) *SimLaser {
	return &SimLaser{limits: util.Limiter{Min: minPower, Max: maxPower}}
}

// Initialize is a no-op for the simulation
func (s *SimLaser) Initialize() error { return nil }

// SetEmission turns the beam on or off
func (s *SimLaser) SetEmission(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on == s.emission {
		return nil
	}
	if on {
		s.lastOn = time.Now()
	} else {
		s.runtime += time.Since(s.lastOn)
	}
	s.emission = on
	return nil
}

// GetEmission reports whether the beam is on
func (s *SimLaser) GetEmission() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emission, nil
}

// Enable turns the beam on
func (s *SimLaser) Enable() error { return s.SetEmission(true) }

// Disable turns the beam off
func (s *SimLaser) Disable() error { return s.SetEmission(false) }

// GetEnabled reports whether the beam is on
func (s *SimLaser) GetEnabled() (bool, error) { return s.GetEmission() }

// SetPower sets the power setpoint in mW, clamped to the limits
func (s *SimLaser) SetPower(mw float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.power = util.Clamp(mw, s.limits.Min, s.limits.Max)
	return nil
}

// GetPower returns the emitted power in mW, zero when the beam is off
func (s *SimLaser) GetPower() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.emission {
		return 0, nil
	}
	return s.power, nil
}

// GetPowerSetpoint returns the commanded power in mW
func (s *SimLaser) GetPowerSetpoint() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power, nil
}

// GetMinPower returns the lower power limit in mW
func (s *SimLaser) GetMinPower() (float64, error) { return s.limits.Min, nil }

// GetMaxPower returns the upper power limit in mW
func (s *SimLaser) GetMaxPower() (float64, error) { return s.limits.Max, nil }

// EmissionRuntime returns the total time spent emitting
func (s *SimLaser) EmissionRuntime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := s.runtime
	if s.emission {
		rt += time.Since(s.lastOn)
	}
	return rt
}

// GetStatus describes the laser state as label: value lines
func (s *SimLaser) GetStatus() ([]string, error) {
	on, _ := s.GetEmission()
	sp, _ := s.GetPowerSetpoint()
	return []string{
		fmt.Sprintf("Emission on: %v", on),
		fmt.Sprintf("Power setpoint (mW): %g", sp),
		fmt.Sprintf("Emission runtime: %v", s.EmissionRuntime().Round(time.Second)),
	}, nil
}

// Settings returns the laser's settings registry
func (s *SimLaser) Settings() *device.Settings {
	set := device.NewSettings()
	set.Add(device.Setting{
		Name:   "power_mw",
		Type:   device.SettingFloat,
		Values: []float64{s.limits.Min, s.limits.Max},
		Get: func() (interface{}, error) {
			return s.GetPowerSetpoint()
		},
		Set: func(v interface{}) error {
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("power_mw wants a float, got %T", v)
			}
			return s.SetPower(f)
		},
	})
	set.Add(device.Setting{
		Name: "emission",
		Type: device.SettingBool,
		Get: func() (interface{}, error) {
			return s.GetEmission()
		},
		Set: func(v interface{}) error {
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("emission wants a bool, got %T", v)
			}
			return s.SetEmission(b)
		},
	})
	set.Add(device.Setting{
		Name:     "runtime_s",
		Type:     device.SettingFloat,
		ReadOnly: true,
		Get: func() (interface{}, error) {
			return s.EmissionRuntime().Seconds(), nil
		},
	})
	return set
}

// GetID returns a fixed identifier
func (s *SimLaser) GetID() (string, error) { return "SIM-LASER-0001", nil }

// MakeSafe turns the beam off
func (s *SimLaser) MakeSafe() error { return s.Disable() }

// Shutdown turns the beam off
func (s *SimLaser) Shutdown() error { return s.Disable() }
