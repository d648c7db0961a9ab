package generichttp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/mickp/deviceremotes/device"
)

// InjectLifecycle adds routes for the device lifecycle interfaces satisfied
// by dev.  Drivers opt in to each route simply by implementing the
// corresponding interface from package device.
func InjectLifecycle(rt RouteTable, dev interface{}) {
	if init, ok := dev.(device.Initializer); ok {
		rt[MethodPath{Method: http.MethodPost, Path: "/initialize"}] = func(w http.ResponseWriter, r *http.Request) {
			if err := init.Initialize(); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}
	if en, ok := dev.(device.Enabler); ok {
		rt[MethodPath{Method: http.MethodGet, Path: "/enabled"}] = GetBool(en.GetEnabled)
		rt[MethodPath{Method: http.MethodPost, Path: "/enabled"}] = SetBool(func(b bool) error {
			if b {
				return en.Enable()
			}
			return en.Disable()
		})
	}
	if sd, ok := dev.(device.Shutdowner); ok {
		rt[MethodPath{Method: http.MethodPost, Path: "/shutdown"}] = func(w http.ResponseWriter, r *http.Request) {
			if err := sd.Shutdown(); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}
	if sf, ok := dev.(device.Safer); ok {
		rt[MethodPath{Method: http.MethodPost, Path: "/make-safe"}] = func(w http.ResponseWriter, r *http.Request) {
			if err := sf.MakeSafe(); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}
	if id, ok := dev.(device.Identifier); ok {
		rt[MethodPath{Method: http.MethodGet, Path: "/id"}] = GetString(id.GetID)
	}
	if tt, ok := dev.(device.TriggerTarget); ok {
		rt[MethodPath{Method: http.MethodGet, Path: "/trigger"}] = GetTrigger(tt)
		rt[MethodPath{Method: http.MethodPost, Path: "/trigger"}] = SetTrigger(tt)
	}
	if sp, ok := dev.(device.SettingsProvider); ok {
		InjectSettings(rt, sp.Settings())
	}
}

// triggerT is the wire form of a trigger configuration
type triggerT struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// GetTrigger returns the trigger configuration as JSON on a GET request
func GetTrigger(tt device.TriggerTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ, mode, err := tt.GetTrigger()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(triggerT{Type: typ.String(), Mode: mode.String()})
	}
}

// SetTrigger configures the trigger from a JSON POST body
func SetTrigger(tt device.TriggerTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := triggerT{}
		err := json.NewDecoder(r.Body).Decode(&t)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		typ, err := device.ParseTriggerType(t.Type)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode, err := device.ParseTriggerMode(t.Mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := tt.SetTrigger(typ, mode); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// InjectSettings adds a settings sub-tree to a route table:
//
//	GET  /settings                 current value of every setting
//	POST /settings                 batch update, ?init=true for first contact
//	GET  /settings/describe        metadata for every setting
//	GET  /settings/{setting}       current value of one setting
//	POST /settings/{setting}       write one setting
func InjectSettings(rt RouteTable, s *device.Settings) {
	rt[MethodPath{Method: http.MethodGet, Path: "/settings"}] = func(w http.ResponseWriter, r *http.Request) {
		vals, err := s.GetAll()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(vals)
	}
	rt[MethodPath{Method: http.MethodPost, Path: "/settings"}] = func(w http.ResponseWriter, r *http.Request) {
		incoming := map[string]interface{}{}
		err := json.NewDecoder(r.Body).Decode(&incoming)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		init, _ := strconv.ParseBool(r.URL.Query().Get("init"))
		results, err := s.Update(incoming, init)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(results)
	}
	rt[MethodPath{Method: http.MethodGet, Path: "/settings/describe"}] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(s.DescribeAll())
	}
	rt[MethodPath{Method: http.MethodGet, Path: "/settings/{setting}"}] = func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "setting")
		v, err := s.Get(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{name: v})
	}
	rt[MethodPath{Method: http.MethodPost, Path: "/settings/{setting}"}] = func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "setting")
		var v interface{}
		err := json.NewDecoder(r.Body).Decode(&v)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.Set(name, v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
