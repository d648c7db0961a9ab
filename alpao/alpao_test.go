package alpao

import (
	"testing"

	"github.com/mickp/deviceremotes/device"
)

func TestNormalizeRemapsRange(t *testing.T) {
	in := []float64{0, 0.5, 1}
	out := Normalize(in)
	want := []float64{-1, 0, 1}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("Normalize(%v)[%d] = %v, want %v", in, i, out[i], want[i])
		}
	}
	if in[0] != 0 {
		t.Error("Normalize modified its input")
	}
}

func TestCheckLengthRejectsMismatch(t *testing.T) {
	if err := checkLength([]float64{0.1, 0.2, 0.3}, 3); err != nil {
		t.Errorf("matching pattern rejected: %v", err)
	}
	if err := checkLength([]float64{0.1}, 3); err == nil {
		t.Error("short pattern accepted")
	}
	if err := checkLength(nil, 3); err == nil {
		t.Error("empty pattern accepted")
	}
}

func TestTriggerInMapping(t *testing.T) {
	cases := []struct {
		t    device.TriggerType
		want int
	}{
		{device.TriggerSoftware, 0},
		{device.TriggerRisingEdge, 1},
		{device.TriggerFallingEdge, 2},
	}
	for _, tc := range cases {
		got, err := triggerIn(tc.t)
		if err != nil {
			t.Errorf("triggerIn(%v): %v", tc.t, err)
		}
		if got != tc.want {
			t.Errorf("triggerIn(%v) = %d, want %d", tc.t, got, tc.want)
		}
	}
	if _, err := triggerIn(device.TriggerPulse); err == nil {
		t.Error("pulse triggers are not supported and should error")
	}
}
