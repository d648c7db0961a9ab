// Package dm exposes control of deformable mirrors over HTTP
package dm

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mickp/deviceremotes/generichttp"
)

// PatternApplier is the basic interface of a deformable mirror: it can
// push a full actuator pattern to the hardware
type PatternApplier interface {
	// ApplyPattern sends one value per actuator to the mirror
	ApplyPattern([]float64) error

	// NumActuators returns the length of a valid pattern
	NumActuators() int
}

// PatternQueuer can store a sequence of patterns and step through them,
// either on software command or a hardware trigger
type PatternQueuer interface {
	// QueuePatterns stores a sequence of patterns for later triggering
	QueuePatterns([][]float64) error

	// NextPattern advances to the next queued pattern
	NextPattern() error
}

// SingleSetter can command one actuator without disturbing the others
type SingleSetter interface {
	// SetSingle writes one actuator by index
	SetSingle(idx int, value float64) error
}

// Zeroer can flatten the mirror
type Zeroer interface {
	// Zero commands every actuator to its neutral position
	Zero() error
}

// ArrayGetter can read back the current actuator commands
type ArrayGetter interface {
	// GetArray returns the current value of every actuator
	GetArray() ([]float64, error)
}

// single is used to decode single actuator commands over JSON
type single struct {
	Idx   int     `json:"idx"`
	Value float64 `json:"value"`
}

// jsonarray is used to decode array commands over JSON.
// this is very inefficient encoding and not suitable for high speed operation,
// but offers simplicity when speed is not paramount
type jsonarray struct {
	Value []float64 `json:"value"`
}

// jsonqueue is used to decode a sequence of patterns over JSON
type jsonqueue struct {
	Values [][]float64 `json:"values"`
}

// validate returns an error if pattern is not exactly one value per actuator
func validate(d PatternApplier, pattern []float64) error {
	if n := d.NumActuators(); len(pattern) != n {
		return fmt.Errorf("pattern has %d values, mirror has %d actuators", len(pattern), n)
	}
	return nil
}

// ApplyPattern writes an actuator pattern to the mirror.  It takes JSON for
// simplicity; the pattern must match the mirror's actuator count.
func ApplyPattern(d PatternApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ja := jsonarray{}
		err := json.NewDecoder(r.Body).Decode(&ja)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate(d, ja.Value); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := d.ApplyPattern(ja.Value); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetPattern returns the mirror's current actuator commands as JSON
func GetPattern(g ArrayGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		arr, err := g.GetArray()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(jsonarray{Value: arr})
	}
}

// QueuePatterns stores a sequence of patterns on the mirror
func QueuePatterns(d PatternApplier, q PatternQueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jq := jsonqueue{}
		err := json.NewDecoder(r.Body).Decode(&jq)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i, pat := range jq.Values {
			if err := validate(d, pat); err != nil {
				http.Error(w, fmt.Sprintf("pattern %d: %v", i, err), http.StatusBadRequest)
				return
			}
		}
		if err := q.QueuePatterns(jq.Values); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// NextPattern advances the mirror to the next queued pattern
func NextPattern(q PatternQueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := q.NextPattern(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// SetSingle writes one actuator command to the mirror
func SetSingle(s SingleSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := single{}
		err := json.NewDecoder(r.Body).Decode(&cmd)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.SetSingle(cmd.Idx, cmd.Value); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Zero flattens the mirror
func Zero(z Zeroer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := z.Zero(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HTTPDeformableMirror wraps a deformable mirror in an HTTP route table
type HTTPDeformableMirror struct {
	// DM is the underlying mirror
	DM PatternApplier

	// RouteTable maps URLs to functions
	RouteTable generichttp.RouteTable
}

// NewHTTPDeformableMirror returns an HTTP wrapper around a deformable mirror.
// Optional capabilities (queueing, single actuator writes, zeroing) are
// discovered by type assertion.
func NewHTTPDeformableMirror(d PatternApplier) HTTPDeformableMirror {
	h := HTTPDeformableMirror{DM: d}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/pattern"}: ApplyPattern(d),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/actuators"}: generichttp.GetInt(func() (int, error) {
			return d.NumActuators(), nil
		}),
	}
	if g, ok := interface{}(d).(ArrayGetter); ok {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/pattern"}] = GetPattern(g)
	}
	if q, ok := interface{}(d).(PatternQueuer); ok {
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/pattern/queue"}] = QueuePatterns(d, q)
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/pattern/next"}] = NextPattern(q)
	}
	if s, ok := interface{}(d).(SingleSetter); ok {
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/single"}] = SetSingle(s)
	}
	if z, ok := interface{}(d).(Zeroer); ok {
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/zero"}] = Zero(z)
	}
	generichttp.InjectLifecycle(rt, d)
	h.RouteTable = rt
	return h
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPDeformableMirror) RT() generichttp.RouteTable {
	return h.RouteTable
}
