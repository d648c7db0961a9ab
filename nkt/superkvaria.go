package nkt

import (
	"github.com/mickp/deviceremotes/comm"
	"github.com/mickp/deviceremotes/generichttp/laser"
)

// this file contains values relevant to the SuperK Varia accessory

// all wavelength and ND values are encoded on the wire as uint16s in
// tenths of a nanometer or tenths of a percent

const variaDefaultAddr = 0x10

var (
	// SuperKVariaInfo describes the SuperK Varia module
	SuperKVariaInfo = &ModuleInformation{
		TypeCode: 0x68,
		Addresses: map[string]byte{
			"Input":               0x13,
			"ND Setpoint":         0x32,
			"Short Wave Setpoint": 0x33,
			"Long Wave Setpoint":  0x34,
			"Status":              0x66},
		CodeBanks: map[string]map[int]string{
			"Status": {
				0:  "-",
				1:  "Interlock off",
				2:  "Interlock loop in",
				3:  "Interlock loop out",
				4:  "-",
				5:  "Supply voltage low",
				6:  "-",
				7:  "-",
				8:  "Shutter sensor 1",
				9:  "Shutter sensor 2",
				10: "-",
				11: "-",
				12: "Filter 1 moving",
				13: "Filter 2 moving",
				14: "Filter 3 moving",
				15: "Error code present",
			}}}
)

// SuperKVaria embeds Module and adds filter control methods
type SuperKVaria struct {
	Module
}

// NewSuperKVaria creates a new Module representing a SuperK Varia accessory
func NewSuperKVaria(pool *comm.Pool) *SuperKVaria {
	return &SuperKVaria{Module{
		pool:    pool,
		AddrDev: variaDefaultAddr,
		Info:    SuperKVariaInfo}}
}

// GetND retrieves the strength of the ND filter in percent, 100 = full blockage
func (sk *SuperKVaria) GetND() (float64, error) {
	return sk.GetFloat("ND Setpoint")
}

// SetND sets the strength of the ND filter in percent
func (sk *SuperKVaria) SetND(pct float64) error {
	return sk.SetFloat("ND Setpoint", pct)
}

// GetShortWave gets the short wavelength cutoff in nm
func (sk *SuperKVaria) GetShortWave() (float64, error) {
	return sk.GetFloat("Short Wave Setpoint")
}

// SetShortWave sets the short wavelength cutoff in nm
func (sk *SuperKVaria) SetShortWave(nm float64) error {
	return sk.SetFloat("Short Wave Setpoint", nm)
}

// GetLongWave gets the long wavelength cutoff in nm
func (sk *SuperKVaria) GetLongWave() (float64, error) {
	return sk.GetFloat("Long Wave Setpoint")
}

// SetLongWave sets the long wavelength cutoff in nm
func (sk *SuperKVaria) SetLongWave(nm float64) error {
	return sk.SetFloat("Long Wave Setpoint", nm)
}

// GetCenterBandwidth returns the center wavelength and full bandwidth in nm
func (sk *SuperKVaria) GetCenterBandwidth() (laser.CenterBandwidth, error) {
	short, err := sk.GetShortWave()
	if err != nil {
		return laser.CenterBandwidth{}, err
	}
	long, err := sk.GetLongWave()
	if err != nil {
		return laser.CenterBandwidth{}, err
	}
	return laser.ShortLongToCB(short, long), nil
}

// SetCenterBandwidth sets the center wavelength and full bandwidth in nm
func (sk *SuperKVaria) SetCenterBandwidth(cb laser.CenterBandwidth) error {
	short, long := cb.ToShortLong()
	if err := sk.SetShortWave(short); err != nil {
		return err
	}
	return sk.SetLongWave(long)
}

// GetStatus returns the Varia's status flags as text
func (sk *SuperKVaria) GetStatus() ([]string, error) {
	return statusStrings(sk.StatusBitfield())
}
