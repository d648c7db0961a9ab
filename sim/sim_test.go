package sim

import (
	"testing"
	"time"

	"github.com/mickp/deviceremotes/generichttp/camera"
)

func TestSimLaserClampsPower(t *testing.T) {
	l := NewSimLaser(1, 50)
	if err := l.SetPower(500); err != nil {
		t.Fatal(err)
	}
	sp, _ := l.GetPowerSetpoint()
	if sp != 50 {
		t.Errorf("setpoint = %v, want clamp to 50", sp)
	}
	if err := l.SetPower(0); err != nil {
		t.Fatal(err)
	}
	sp, _ = l.GetPowerSetpoint()
	if sp != 1 {
		t.Errorf("setpoint = %v, want clamp to 1", sp)
	}
}

func TestSimLaserPowerZeroWhenOff(t *testing.T) {
	l := NewSimLaser(1, 50)
	l.SetPower(10)
	p, _ := l.GetPower()
	if p != 0 {
		t.Errorf("emitted power = %v with the beam off, want 0", p)
	}
	if err := l.Enable(); err != nil {
		t.Fatal(err)
	}
	p, _ = l.GetPower()
	if p != 10 {
		t.Errorf("emitted power = %v, want 10", p)
	}
}

func TestSimLaserRuntimeAccumulates(t *testing.T) {
	l := NewSimLaser(1, 50)
	l.Enable()
	time.Sleep(20 * time.Millisecond)
	l.Disable()
	if rt := l.EmissionRuntime(); rt < 20*time.Millisecond {
		t.Errorf("runtime = %v, want at least 20ms", rt)
	}
}

func TestSimMirrorPatternLifecycle(t *testing.T) {
	m := NewSimMirror(4)
	if err := m.ApplyPattern([]float64{0.1, 0.2, 0.3}); err == nil {
		t.Error("short pattern should be rejected")
	}
	if err := m.ApplyPattern([]float64{0.1, 0.2, 0.3, 0.4}); err != nil {
		t.Fatal(err)
	}
	if err := m.SetSingle(2, 0.9); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetArray()
	if got[2] != 0.9 || got[0] != 0.1 {
		t.Errorf("figure = %v", got)
	}
	if err := m.Zero(); err != nil {
		t.Fatal(err)
	}
	got, _ = m.GetArray()
	for i, v := range got {
		if v != 0 {
			t.Errorf("actuator %d = %v after Zero", i, v)
		}
	}
}

func TestSimMirrorQueueAdvances(t *testing.T) {
	m := NewSimMirror(2)
	if err := m.NextPattern(); err == nil {
		t.Error("advancing an empty queue should error")
	}
	m.QueuePatterns([][]float64{{0.1, 0.1}, {0.5, 0.5}})
	if err := m.NextPattern(); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetArray()
	if got[0] != 0.1 {
		t.Errorf("figure after first advance = %v", got)
	}
	if err := m.NextPattern(); err != nil {
		t.Fatal(err)
	}
	got, _ = m.GetArray()
	if got[0] != 0.5 {
		t.Errorf("figure after second advance = %v", got)
	}
	if err := m.NextPattern(); err == nil {
		t.Error("advancing past the end should error")
	}
}

func TestSimCameraFrameShapeFollowsAOIAndBinning(t *testing.T) {
	c := NewSimCamera(64, 64)
	c.SetExposureTime(time.Millisecond)
	frame, err := c.GetFrame()
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 64*64 {
		t.Errorf("full frame has %d pixels, want %d", len(frame), 64*64)
	}
	if err := c.SetAOI(camera.AOI{Left: 0, Top: 0, Width: 32, Height: 16}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetBinning(camera.Binning{H: 2, V: 2}); err != nil {
		t.Fatal(err)
	}
	frame, err = c.GetFrame()
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 16*8 {
		t.Errorf("binned AOI frame has %d pixels, want %d", len(frame), 16*8)
	}
}

func TestSimCameraRejectsOversizeAOI(t *testing.T) {
	c := NewSimCamera(64, 64)
	if err := c.SetAOI(camera.AOI{Left: 32, Top: 0, Width: 64, Height: 64}); err == nil {
		t.Error("AOI past the sensor edge should be rejected")
	}
}

func TestSimCameraSpotIsBrighterThanFloor(t *testing.T) {
	c := NewSimCamera(64, 64)
	c.SetExposureTime(time.Millisecond)
	frame, err := c.GetFrame()
	if err != nil {
		t.Fatal(err)
	}
	center := frame[32*64+32]
	corner := frame[0]
	if center <= corner {
		t.Errorf("center %d not brighter than corner %d", center, corner)
	}
}

func TestSimCameraBurstReturnsCube(t *testing.T) {
	c := NewSimCamera(16, 16)
	c.SetExposureTime(time.Millisecond)
	cube, err := c.Burst(3, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(cube) != 3*16*16 {
		t.Errorf("cube has %d values, want %d", len(cube), 3*16*16)
	}
}

func TestSimCameraCooling(t *testing.T) {
	c := NewSimCamera(16, 16)
	c.SetTemperatureSetpoint(-20)
	temp, _ := c.GetTemperature()
	if temp != simAmbient {
		t.Errorf("temperature = %v with cooler off, want ambient", temp)
	}
	c.SetCooling(true)
	temp, _ = c.GetTemperature()
	if temp != -20 {
		t.Errorf("temperature = %v with cooler on, want setpoint", temp)
	}
}
