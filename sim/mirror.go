package sim

import (
	"fmt"
	"sync"

	"github.com/mickp/deviceremotes/device"
	"github.com/mickp/deviceremotes/generichttp/dm"
)

// SimMirror is a software deformable mirror.  It remembers the last
// pattern applied and supports the software pattern queue.
type SimMirror struct {
	mu sync.Mutex

	actuators int
	current   []float64
	trigger   device.TriggerType
	queue     *dm.SoftwareQueue
}

// NewSimMirror returns a mirror with the given actuator count, flat
func NewSimMirror(actuators int) *SimMirror {
	m := &SimMirror{
		actuators: actuators,
		current:   make([]float64, actuators),
	}
	m.queue = dm.NewSoftwareQueue(m)
	return m
}

// Initialize is a no-op for the simulation
func (m *SimMirror) Initialize() error { return nil }

// NumActuators returns the actuator count
func (m *SimMirror) NumActuators() int { return m.actuators }

// ApplyPattern stores the pattern as the mirror's current figure
func (m *SimMirror) ApplyPattern(pattern []float64) error {
	if len(pattern) != m.actuators {
		return fmt.Errorf("sim: pattern has %d values, mirror has %d actuators", len(pattern), m.actuators)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.current, pattern)
	return nil
}

// GetArray returns the mirror's current figure
func (m *SimMirror) GetArray() ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.current))
	copy(out, m.current)
	return out, nil
}

// SetSingle commands one actuator without disturbing the others
func (m *SimMirror) SetSingle(idx int, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < 0 || idx >= m.actuators {
		return fmt.Errorf("sim: actuator %d out of range [0, %d)", idx, m.actuators)
	}
	m.current[idx] = value
	return nil
}

// Zero flattens the mirror
func (m *SimMirror) Zero() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.current {
		m.current[i] = 0
	}
	return nil
}

// QueuePatterns stores a sequence of patterns for NextPattern
func (m *SimMirror) QueuePatterns(patterns [][]float64) error {
	return m.queue.QueuePatterns(patterns)
}

// NextPattern applies the next queued pattern
func (m *SimMirror) NextPattern() error {
	return m.queue.NextPattern()
}

// SetTrigger stores the trigger configuration
func (m *SimMirror) SetTrigger(t device.TriggerType, _ device.TriggerMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trigger = t
	return nil
}

// GetTrigger retrieves the trigger configuration
func (m *SimMirror) GetTrigger() (device.TriggerType, device.TriggerMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trigger, device.TriggerStrobe, nil
}

// GetID returns a fixed identifier
func (m *SimMirror) GetID() (string, error) { return "SIM-DM-0001", nil }

// MakeSafe flattens the mirror
func (m *SimMirror) MakeSafe() error { return m.Zero() }

// Shutdown flattens the mirror
func (m *SimMirror) Shutdown() error { return m.Zero() }
