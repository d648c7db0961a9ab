/*Package alpao provides control of Alpao deformable mirrors.

The SDK binding is compiled in with the 'alpao' build tag.  The public
pattern convention is stroke fractions in [0,1]; the Alpao SDK wants
[-1,1], so patterns are remapped on the way out.
*/
package alpao

import (
	"fmt"

	"github.com/mickp/deviceremotes/device"
)

// errMsgLen is the buffer size handed to the SDK for error strings.
// The SDK does not always null terminate, so the buffer is zeroed
// before every read.
const errMsgLen = 64

// checkLength rejects patterns whose length does not match the
// actuator count; the SDK reads exactly one scalar per actuator
// from the buffer it is handed.
func checkLength(pattern []float64, actuators int) error {
	if len(pattern) != actuators {
		return fmt.Errorf("alpao: pattern has %d values, mirror has %d actuators", len(pattern), actuators)
	}
	return nil
}

// Normalize remaps a pattern from [0,1] to the [-1,1] range the SDK
// expects.  The input is not modified.
func Normalize(pattern []float64) []float64 {
	out := make([]float64, len(pattern))
	for i, v := range pattern {
		out[i] = v*2 - 1
	}
	return out
}

// triggerIn maps trigger types to the SDK's "TriggerIn" values
func triggerIn(t device.TriggerType) (int, error) {
	switch t {
	case device.TriggerSoftware:
		return 0, nil
	case device.TriggerRisingEdge:
		return 1, nil
	case device.TriggerFallingEdge:
		return 2, nil
	}
	return 0, fmt.Errorf("alpao: trigger type %v not supported", t)
}
