package client

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"

	"github.com/mickp/deviceremotes/generichttp/camera"
	"github.com/mickp/deviceremotes/generichttp/dm"
	"github.com/mickp/deviceremotes/generichttp/laser"
	"github.com/mickp/deviceremotes/sim"
)

func serveLaser(t *testing.T) (*Client, *sim.SimLaser) {
	l := sim.NewSimLaser(1, 50)
	r := chi.NewRouter()
	laser.NewHTTPLaserController(l).RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL), l
}

func TestLaserEmissionRoundTrip(t *testing.T) {
	c, _ := serveLaser(t)
	if err := c.SetEmission(true); err != nil {
		t.Fatal(err)
	}
	on, err := c.GetEmission()
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("emission did not turn on")
	}
}

func TestLaserPowerRoundTrip(t *testing.T) {
	c, _ := serveLaser(t)
	if err := c.SetEmission(true); err != nil {
		t.Fatal(err)
	}
	if err := c.SetPower(10); err != nil {
		t.Fatal(err)
	}
	mw, err := c.GetPower()
	if err != nil {
		t.Fatal(err)
	}
	if mw != 10 {
		t.Errorf("power = %v, want 10", mw)
	}
}

func TestMirrorPatternAndCount(t *testing.T) {
	m := sim.NewSimMirror(4)
	r := chi.NewRouter()
	dm.NewHTTPDeformableMirror(m).RT().Bind(r)
	srv := httptest.NewServer(r)
	defer srv.Close()
	c := New(srv.URL)

	n, err := c.NumActuators()
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("actuators = %d, want 4", n)
	}
	if err := c.ApplyPattern([]float64{0.1, 0.2, 0.3, 0.4}); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetArray()
	if got[3] != 0.4 {
		t.Errorf("mirror figure = %v", got)
	}
	if err := c.ApplyPattern([]float64{0.1}); err == nil {
		t.Error("short pattern should be rejected by the server")
	}
}

func TestFrameRoundTripsThroughFITS(t *testing.T) {
	cam := sim.NewSimCamera(16, 8)
	r := chi.NewRouter()
	camera.NewHTTPCamera(cam, nil).RT().Bind(r)
	srv := httptest.NewServer(r)
	defer srv.Close()
	c := New(srv.URL)

	if err := c.SetExposureTime(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	frame, w, h, err := c.GetFrame()
	if err != nil {
		t.Fatal(err)
	}
	if w != 16 || h != 8 {
		t.Errorf("frame is %dx%d, want 16x8", w, h)
	}
	if len(frame) != 16*8 {
		t.Errorf("frame has %d pixels, want %d", len(frame), 16*8)
	}
}

func TestErrorsCarryServerMessage(t *testing.T) {
	c, _ := serveLaser(t)
	err := c.SetFloat("/power", -1) // decodes fine; clamped, no error
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetFloat("/no-such-route"); err == nil {
		t.Error("missing route should produce an error")
	}
}
