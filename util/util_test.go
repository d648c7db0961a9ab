package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/mickp/deviceremotes/util"
)

func ExampleSetBit_msb() {
	out := util.SetBit(0, 7, true)
	fmt.Printf("%08b\n", out)
	// Output: 10000000
}

func ExampleSetBit_lsb() {
	out := util.SetBit(255, 0, false)
	fmt.Printf("%08b\n", out)
	// Output: 11111110
}

func TestGetBitRoundTrips(t *testing.T) {
	var b uint16
	for idx := uint(0); idx < 16; idx++ {
		b = util.SetBit(0, idx, true)
		if !util.GetBit(b, idx) {
			t.Errorf("bit %d set but read back false", idx)
		}
		if util.GetBit(b, (idx+1)%16) {
			t.Errorf("bit %d read true, only %d was set", (idx+1)%16, idx)
		}
	}
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != low {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampInRangePassthrough(t *testing.T) {
	if out := util.Clamp(5, 0, 10); out != 5 {
		t.Errorf("expected in-range value to pass through, got %f", out)
	}
}

func TestLimiterCheck(t *testing.T) {
	l := util.Limiter{Min: -1, Max: 1}
	cases := []struct {
		input  float64
		expect bool
	}{
		{0, true},
		{-1, true},
		{1, true},
		{1.01, false},
		{-300, false},
	}
	for _, tc := range cases {
		if got := l.Check(tc.input); got != tc.expect {
			t.Errorf("Check(%f) = %v, expected %v", tc.input, got, tc.expect)
		}
	}
}

func TestAllElementsNumbers(t *testing.T) {
	cases := []struct {
		input  string
		expect bool
	}{
		{"123", true},
		{"1.5", true},
		{"25ms", false},
		{"", true},
	}
	for _, tc := range cases {
		if got := util.AllElementsNumbers(tc.input); got != tc.expect {
			t.Errorf("AllElementsNumbers(%q) = %v, expected %v", tc.input, got, tc.expect)
		}
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
