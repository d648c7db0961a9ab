package nkt

import (
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/mickp/deviceremotes/comm"
	"github.com/mickp/deviceremotes/generichttp/laser"
)

// SuperK bundles a SuperK Extreme main module with its Varia filter
// accessory behind one device.  The two modules share a single pooled
// connection to the mainframe so their telegrams never interleave.
type SuperK struct {
	// Extreme is the main module
	Extreme *SuperKExtreme

	// Varia is the variable filter accessory
	Varia *SuperKVaria
}

// NewSuperK creates a new SuperK.  addr is a host:port for a terminal
// server, or a serial port path when isSerial is true.
func NewSuperK(addr string, isSerial bool) *SuperK {
	maker := func() (io.ReadWriteCloser, error) {
		if isSerial {
			return serial.OpenPort(MakeSerConf(addr))
		}
		return comm.TCPSetup(addr, 3*time.Second)
	}
	pool := comm.NewPool(1, time.Minute, maker)
	return &SuperK{
		Extreme: NewSuperKExtreme(pool),
		Varia:   NewSuperKVaria(pool)}
}

// SetEmission turns emission on or off
func (sk *SuperK) SetEmission(on bool) error { return sk.Extreme.SetEmission(on) }

// GetEmission queries if the laser is emitting
func (sk *SuperK) GetEmission() (bool, error) { return sk.Extreme.GetEmission() }

// Enable turns emission on
func (sk *SuperK) Enable() error { return sk.Extreme.Enable() }

// Disable turns emission off
func (sk *SuperK) Disable() error { return sk.Extreme.Disable() }

// GetEnabled queries if emission is enabled
func (sk *SuperK) GetEnabled() (bool, error) { return sk.Extreme.GetEnabled() }

// MakeSafe stops emission
func (sk *SuperK) MakeSafe() error { return sk.Extreme.MakeSafe() }

// SetPower sets the power level in percent
func (sk *SuperK) SetPower(pct float64) error { return sk.Extreme.SetPower(pct) }

// GetPower gets the power level in percent
func (sk *SuperK) GetPower() (float64, error) { return sk.Extreme.GetPower() }

// GetND retrieves the ND filter strength in percent
func (sk *SuperK) GetND() (float64, error) { return sk.Varia.GetND() }

// SetND sets the ND filter strength in percent
func (sk *SuperK) SetND(pct float64) error { return sk.Varia.SetND(pct) }

// GetShortWave gets the short wavelength cutoff in nm
func (sk *SuperK) GetShortWave() (float64, error) { return sk.Varia.GetShortWave() }

// SetShortWave sets the short wavelength cutoff in nm
func (sk *SuperK) SetShortWave(nm float64) error { return sk.Varia.SetShortWave(nm) }

// GetLongWave gets the long wavelength cutoff in nm
func (sk *SuperK) GetLongWave() (float64, error) { return sk.Varia.GetLongWave() }

// SetLongWave sets the long wavelength cutoff in nm
func (sk *SuperK) SetLongWave(nm float64) error { return sk.Varia.SetLongWave(nm) }

// GetCenterBandwidth returns the filter passband as center/bandwidth
func (sk *SuperK) GetCenterBandwidth() (laser.CenterBandwidth, error) {
	return sk.Varia.GetCenterBandwidth()
}

// SetCenterBandwidth sets the filter passband as center/bandwidth
func (sk *SuperK) SetCenterBandwidth(cb laser.CenterBandwidth) error {
	return sk.Varia.SetCenterBandwidth(cb)
}

// GetStatus merges the status flags of the main module and the Varia
func (sk *SuperK) GetStatus() ([]string, error) {
	main, err := sk.Extreme.GetStatus()
	if err != nil {
		return nil, err
	}
	varia, err := sk.Varia.GetStatus()
	if err != nil {
		return main, err
	}
	return append(main, varia...), nil
}

// GetID returns the serial number of the main module
func (sk *SuperK) GetID() (string, error) { return sk.Extreme.GetID() }
