package device

import (
	"fmt"
	"sync"
)

// SettingType enumerates the data types a setting may hold
type SettingType string

// setting types
const (
	SettingInt    SettingType = "int"
	SettingFloat  SettingType = "float"
	SettingBool   SettingType = "bool"
	SettingString SettingType = "str"
	SettingEnum   SettingType = "enum"
)

// Setting is a named, typed knob on a device.  A client needs some way of
// knowing a setting's name and data type, retrieving the current value and,
// if settable, a description of the allowed values and a way to set it.
type Setting struct {
	// Name is the setting's name
	Name string

	// Type is the setting's data type
	Type SettingType

	// Get returns the current value
	Get func() (interface{}, error)

	// Set writes a new value.  nil for read-only settings.
	Set func(interface{}) error

	// Values describes the allowed values: a [min, max] pair for numeric
	// types, a list of options for enums, nil when unconstrained
	Values interface{}

	// ReadOnly marks the setting as not settable even if Set is non-nil
	ReadOnly bool
}

// Description is the wire form of a setting's metadata
type Description struct {
	Type     SettingType `json:"type"`
	Values   interface{} `json:"values"`
	ReadOnly bool        `json:"readonly"`
}

// Describe returns the setting's metadata
func (s Setting) Describe() Description {
	return Description{Type: s.Type, Values: s.Values, ReadOnly: s.ReadOnly}
}

func (s Setting) settable() bool {
	return s.Set != nil && !s.ReadOnly
}

// Settings is a registry of named settings.  It preserves insertion order
// and is concurrent safe.
type Settings struct {
	mu    sync.Mutex
	order []string
	table map[string]Setting
}

// NewSettings returns an empty settings registry
func NewSettings() *Settings {
	return &Settings{table: map[string]Setting{}}
}

// Add registers a setting.  Registering the same name twice replaces the
// earlier definition without disturbing its position.
func (s *Settings) Add(set Setting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.table[set.Name]; !ok {
		s.order = append(s.order, set.Name)
	}
	s.table[set.Name] = set
}

// Names returns the setting names in registration order
func (s *Settings) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Settings) lookup(name string) (Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.table[name]
	if !ok {
		return Setting{}, fmt.Errorf("setting %q not recognized", name)
	}
	return set, nil
}

// Get returns the current value of the named setting
func (s *Settings) Get(name string) (interface{}, error) {
	set, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return set.Get()
}

// GetAll returns the current value of every setting
func (s *Settings) GetAll() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, name := range s.Names() {
		v, err := s.Get(name)
		if err != nil {
			return nil, fmt.Errorf("getting %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// Set writes a new value to the named setting
func (s *Settings) Set(name string, value interface{}) error {
	set, err := s.lookup(name)
	if err != nil {
		return err
	}
	if !set.settable() {
		return fmt.Errorf("setting %q is read-only", name)
	}
	return set.Set(value)
}

// Describe returns the metadata of the named setting
func (s *Settings) Describe(name string) (Description, error) {
	set, err := s.lookup(name)
	if err != nil {
		return Description{}, err
	}
	return set.Describe(), nil
}

// DescribeAll returns the metadata of every setting keyed by name
func (s *Settings) DescribeAll() map[string]Description {
	out := map[string]Description{}
	for _, name := range s.Names() {
		set, err := s.lookup(name)
		if err != nil {
			continue
		}
		out[name] = set.Describe()
	}
	return out
}

// Update applies a batch of settings and returns the values read back after
// writing.  With init true, every registered setting must appear in incoming
// and all of them are written.  With init false, only values that differ
// from the device's current state are written.  Read-only settings are
// skipped in both cases; an unknown name is an error.
func (s *Settings) Update(incoming map[string]interface{}, init bool) (map[string]interface{}, error) {
	for name := range incoming {
		if _, err := s.lookup(name); err != nil {
			return nil, err
		}
	}
	if init {
		var missing []string
		for _, name := range s.Names() {
			if _, ok := incoming[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("update with init=true missing keys: %v", missing)
		}
	}
	updated := []string{}
	for _, name := range s.Names() {
		value, ok := incoming[name]
		if !ok {
			continue
		}
		set, _ := s.lookup(name)
		if !set.settable() {
			continue
		}
		if !init {
			current, err := set.Get()
			if err != nil {
				return nil, fmt.Errorf("getting %q: %w", name, err)
			}
			if current == value {
				continue
			}
		}
		if err := set.Set(value); err != nil {
			return nil, fmt.Errorf("setting %q: %w", name, err)
		}
		updated = append(updated, name)
	}
	// read back in a second loop so a later write invalidating an earlier
	// one is reported faithfully
	results := map[string]interface{}{}
	for _, name := range updated {
		v, err := s.Get(name)
		if err != nil {
			return nil, fmt.Errorf("reading back %q: %w", name, err)
		}
		results[name] = v
	}
	return results, nil
}
