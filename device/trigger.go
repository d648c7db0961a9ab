package device

import "fmt"

// TriggerType describes the electrical or software event that fires a trigger
type TriggerType int

// trigger types
const (
	TriggerSoftware TriggerType = iota
	TriggerRisingEdge
	TriggerFallingEdge
	TriggerPulse
)

// String satisfies fmt.Stringer
func (t TriggerType) String() string {
	switch t {
	case TriggerSoftware:
		return "software"
	case TriggerRisingEdge:
		return "rising-edge"
	case TriggerFallingEdge:
		return "falling-edge"
	case TriggerPulse:
		return "pulse"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// ParseTriggerType is the inverse of TriggerType.String
func ParseTriggerType(s string) (TriggerType, error) {
	switch s {
	case "software":
		return TriggerSoftware, nil
	case "rising-edge":
		return TriggerRisingEdge, nil
	case "falling-edge":
		return TriggerFallingEdge, nil
	case "pulse":
		return TriggerPulse, nil
	}
	return 0, fmt.Errorf("trigger type %q not recognized", s)
}

// TriggerMode describes what a device does when its trigger fires
type TriggerMode int

// trigger modes
const (
	TriggerOnce TriggerMode = iota + 1
	TriggerBulb
	TriggerStrobe
	TriggerStart
)

// String satisfies fmt.Stringer
func (m TriggerMode) String() string {
	switch m {
	case TriggerOnce:
		return "once"
	case TriggerBulb:
		return "bulb"
	case TriggerStrobe:
		return "strobe"
	case TriggerStart:
		return "start"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// ParseTriggerMode is the inverse of TriggerMode.String
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch s {
	case "once":
		return TriggerOnce, nil
	case "bulb":
		return TriggerBulb, nil
	case "strobe":
		return TriggerStrobe, nil
	case "start":
		return TriggerStart, nil
	}
	return 0, fmt.Errorf("trigger mode %q not recognized", s)
}

// TriggerTarget is a device that may be the target of a hardware or
// software trigger
type TriggerTarget interface {
	// SetTrigger configures the device for a specific trigger
	SetTrigger(TriggerType, TriggerMode) error

	// GetTrigger retrieves the current trigger configuration
	GetTrigger() (TriggerType, TriggerMode, error)
}
