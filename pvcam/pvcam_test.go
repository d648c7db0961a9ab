package pvcam

import (
	"testing"
	"time"

	"github.com/mickp/deviceremotes/generichttp/camera"
)

func TestRegionForIsInclusive(t *testing.T) {
	aoi := camera.AOI{Left: 0, Top: 0, Width: 512, Height: 256}
	r := regionFor(aoi, camera.Binning{H: 1, V: 1})
	if r.S1 != 0 || r.S2 != 511 {
		t.Errorf("serial extent = [%d, %d], want [0, 511]", r.S1, r.S2)
	}
	if r.P1 != 0 || r.P2 != 255 {
		t.Errorf("parallel extent = [%d, %d], want [0, 255]", r.P1, r.P2)
	}
	w, h := r.frameDims()
	if w != 512 || h != 256 {
		t.Errorf("frame dims = %dx%d, want 512x256", w, h)
	}
}

func TestRegionForBinsDims(t *testing.T) {
	aoi := camera.AOI{Left: 100, Top: 50, Width: 200, Height: 100}
	r := regionFor(aoi, camera.Binning{H: 2, V: 2})
	if r.S1 != 100 || r.S2 != 299 || r.Sbin != 2 {
		t.Errorf("serial = [%d, %d] bin %d", r.S1, r.S2, r.Sbin)
	}
	w, h := r.frameDims()
	if w != 100 || h != 50 {
		t.Errorf("binned dims = %dx%d, want 100x50", w, h)
	}
}

func TestExpScale(t *testing.T) {
	cases := []struct {
		res  int
		want time.Duration
	}{
		{expResMillisec, time.Millisecond},
		{expResMicrosec, time.Microsecond},
		{expResOneSec, time.Second},
	}
	for _, tc := range cases {
		if got := expScale(tc.res); got != tc.want {
			t.Errorf("expScale(%d) = %v, want %v", tc.res, got, tc.want)
		}
	}
}

func TestTemperatureCentiRoundTrip(t *testing.T) {
	if got := tempFromCenti(-2550); got != -25.5 {
		t.Errorf("tempFromCenti(-2550) = %v, want -25.5", got)
	}
	if got := tempToCenti(-25.5); got != -2550 {
		t.Errorf("tempToCenti(-25.5) = %v, want -2550", got)
	}
}
