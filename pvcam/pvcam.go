/*Package pvcam provides control of Teledyne Photometrics cameras
through the PVCAM SDK.

The SDK binding is compiled in with the 'pvcam' build tag.  The helpers
in this file are pure Go: region arithmetic, exposure resolution
scaling, and the hundredths-of-a-degree temperature encoding the SDK
uses on the wire.
*/
package pvcam

import (
	"time"

	"github.com/mickp/deviceremotes/generichttp/camera"
)

// exposure resolution codes, PARAM_EXP_RES
const (
	expResMillisec = 0
	expResMicrosec = 1
	expResOneSec   = 2
)

// expScale returns the duration of one exposure tick for a resolution code
func expScale(res int) time.Duration {
	switch res {
	case expResMicrosec:
		return time.Microsecond
	case expResOneSec:
		return time.Second
	}
	return time.Millisecond
}

// region is the SDK's rgn_type: serial (column) and parallel (row)
// extents are inclusive, with binning factors attached
type region struct {
	S1, S2 uint16
	Sbin   uint16
	P1, P2 uint16
	Pbin   uint16
}

// regionFor converts an AOI and binning to the SDK's inclusive region
func regionFor(aoi camera.AOI, b camera.Binning) region {
	return region{
		S1:   uint16(aoi.Left),
		S2:   uint16(aoi.Right()),
		Sbin: uint16(b.H),
		P1:   uint16(aoi.Top),
		P2:   uint16(aoi.Bottom()),
		Pbin: uint16(b.V),
	}
}

// frameDims returns the binned width and height of a region
func (r region) frameDims() (int, int) {
	w := (int(r.S2) - int(r.S1) + 1) / int(r.Sbin)
	h := (int(r.P2) - int(r.P1) + 1) / int(r.Pbin)
	return w, h
}

// sensor temperatures cross the wire in hundredths of a degree C

func tempFromCenti(v int) float64 {
	return float64(v) / 100
}

func tempToCenti(celsius float64) int {
	return int(celsius * 100)
}
