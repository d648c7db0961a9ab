//go:build usbtmc

package thorlabs

import "github.com/mickp/deviceremotes/usbtmc"

// Open claims the first ITC4000-family controller on the bus.
func Open() (*ITC4000, error) {
	dev, err := usbtmc.Open(TLVID, ITC4000PID)
	if err != nil {
		return nil, err
	}
	return NewITC4000(dev), nil
}
