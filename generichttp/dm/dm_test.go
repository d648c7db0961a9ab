package dm_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"

	"github.com/mickp/deviceremotes/generichttp/dm"
	"github.com/mickp/deviceremotes/sim"
)

func setupMirror(t *testing.T, actuators int) (*sim.SimMirror, *httptest.Server) {
	t.Helper()
	m := sim.NewSimMirror(actuators)
	r := chi.NewRouter()
	dm.NewHTTPDeformableMirror(m).RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return m, srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func TestApplyPatternOverHTTP(t *testing.T) {
	m, srv := setupMirror(t, 4)
	want := []float64{0.1, 0.2, 0.3, 0.4}
	resp := postJSON(t, srv.URL+"/pattern", map[string]interface{}{"value": want})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply pattern returned %d", resp.StatusCode)
	}
	got, err := m.GetArray()
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("actuator %d = %g, want %g", i, got[i], want[i])
		}
	}

	r, err := http.Get(srv.URL + "/pattern")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()
	readback := struct {
		Value []float64 `json:"value"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&readback); err != nil {
		t.Fatal(err)
	}
	if len(readback.Value) != len(want) || readback.Value[3] != 0.4 {
		t.Errorf("read back %v, want %v", readback.Value, want)
	}
}

func TestApplyPatternRejectsWrongLength(t *testing.T) {
	_, srv := setupMirror(t, 4)
	resp := postJSON(t, srv.URL+"/pattern", map[string]interface{}{"value": []float64{0.5}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("short pattern returned %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestQueueOverHTTP(t *testing.T) {
	m, srv := setupMirror(t, 2)
	patterns := [][]float64{{0.1, 0.1}, {0.9, 0.9}}
	resp := postJSON(t, srv.URL+"/pattern/queue", map[string]interface{}{"values": patterns})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("queue returned %d", resp.StatusCode)
	}
	for i, want := range []float64{0.1, 0.9} {
		resp = postJSON(t, srv.URL+"/pattern/next", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("next %d returned %d", i, resp.StatusCode)
		}
		got, err := m.GetArray()
		if err != nil {
			t.Fatal(err)
		}
		if got[0] != want {
			t.Errorf("after next %d, actuator 0 = %g, want %g", i, got[0], want)
		}
	}
	resp = postJSON(t, srv.URL+"/pattern/next", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("exhausted queue returned %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
}

func TestQueueRejectsMalformedPattern(t *testing.T) {
	_, srv := setupMirror(t, 2)
	resp := postJSON(t, srv.URL+"/pattern/queue", map[string]interface{}{
		"values": [][]float64{{0.1, 0.1}, {0.9}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed queue returned %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestSingleAndZero(t *testing.T) {
	m, srv := setupMirror(t, 4)
	resp := postJSON(t, srv.URL+"/single", map[string]interface{}{"idx": 2, "value": 0.7})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("single returned %d", resp.StatusCode)
	}
	got, err := m.GetArray()
	if err != nil {
		t.Fatal(err)
	}
	if got[2] != 0.7 {
		t.Errorf("actuator 2 = %g, want 0.7", got[2])
	}
	resp = postJSON(t, srv.URL+"/zero", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("zero returned %d", resp.StatusCode)
	}
	got, err = m.GetArray()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("actuator %d = %g after zero", i, v)
		}
	}
}

func TestTriggerRoundTrip(t *testing.T) {
	_, srv := setupMirror(t, 4)
	resp := postJSON(t, srv.URL+"/trigger", map[string]string{"type": "rising-edge", "mode": "strobe"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set trigger returned %d", resp.StatusCode)
	}
	r, err := http.Get(srv.URL + "/trigger")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()
	got := struct {
		Type string `json:"type"`
		Mode string `json:"mode"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "rising-edge" || got.Mode != "strobe" {
		t.Errorf("trigger = %s/%s, want rising-edge/strobe", got.Type, got.Mode)
	}
}

func TestActuatorCount(t *testing.T) {
	_, srv := setupMirror(t, 7)
	r, err := http.Get(srv.URL + "/actuators")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()
	got := struct {
		Int int `json:"int"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Int != 7 {
		t.Errorf("actuators = %d, want 7", got.Int)
	}
}
