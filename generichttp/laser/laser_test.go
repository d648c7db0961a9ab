package laser_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"

	"github.com/mickp/deviceremotes/generichttp/laser"
	"github.com/mickp/deviceremotes/sim"
)

func setupLaser(t *testing.T) (*sim.SimLaser, *httptest.Server) {
	t.Helper()
	l := sim.NewSimLaser(1, 50)
	r := chi.NewRouter()
	laser.NewHTTPLaserController(l).RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return l, srv
}

func getFloat(t *testing.T, url string) float64 {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s returned %d", url, resp.StatusCode)
	}
	v := struct {
		F64 float64 `json:"f64"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v.F64
}

func TestEmissionRoundTrip(t *testing.T) {
	l, srv := setupLaser(t)
	body := bytes.NewReader([]byte(`{"bool": true}`))
	resp, err := http.Post(srv.URL+"/emission", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set emission returned %d", resp.StatusCode)
	}
	on, err := l.GetEmission()
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("emission not on after POST")
	}
	resp2, err := http.Get(srv.URL + "/emission")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	got := struct {
		Bool bool `json:"bool"`
	}{}
	if err := json.NewDecoder(resp2.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !got.Bool {
		t.Error("GET /emission = false, want true")
	}
}

func TestPowerRoutes(t *testing.T) {
	l, srv := setupLaser(t)
	if err := l.Enable(); err != nil {
		t.Fatal(err)
	}
	body := bytes.NewReader([]byte(`{"f64": 10}`))
	resp, err := http.Post(srv.URL+"/power", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set power returned %d", resp.StatusCode)
	}
	if got := getFloat(t, srv.URL+"/power"); got != 10 {
		t.Errorf("power = %g, want 10", got)
	}
	if got := getFloat(t, srv.URL+"/power/setpoint"); got != 10 {
		t.Errorf("setpoint = %g, want 10", got)
	}
	if got := getFloat(t, srv.URL+"/power/min"); got != 1 {
		t.Errorf("min power = %g, want 1", got)
	}
	if got := getFloat(t, srv.URL+"/power/max"); got != 50 {
		t.Errorf("max power = %g, want 50", got)
	}
}

func TestStatusReportsFlags(t *testing.T) {
	_, srv := setupLaser(t)
	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var flags []string
	if err := json.NewDecoder(resp.Body).Decode(&flags); err != nil {
		t.Fatal(err)
	}
	if len(flags) != 3 {
		t.Fatalf("status has %d flags, want 3", len(flags))
	}
}

func TestEnabledLifecycleRoute(t *testing.T) {
	l, srv := setupLaser(t)
	body := bytes.NewReader([]byte(`{"bool": true}`))
	resp, err := http.Post(srv.URL+"/enabled", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set enabled returned %d", resp.StatusCode)
	}
	on, err := l.GetEnabled()
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("laser not enabled after POST /enabled")
	}
}

func TestSettingsRoutes(t *testing.T) {
	l, srv := setupLaser(t)
	resp, err := http.Get(srv.URL + "/settings")
	if err != nil {
		t.Fatal(err)
	}
	all := map[string]interface{}{}
	err = json.NewDecoder(resp.Body).Decode(&all)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"power_mw", "emission", "runtime_s"} {
		if _, ok := all[name]; !ok {
			t.Errorf("settings missing %q", name)
		}
	}

	body := bytes.NewReader([]byte(`10`))
	resp, err = http.Post(srv.URL+"/settings/power_mw", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set power_mw returned %d", resp.StatusCode)
	}
	sp, err := l.GetPowerSetpoint()
	if err != nil {
		t.Fatal(err)
	}
	if sp != 10 {
		t.Errorf("setpoint = %g, want 10", sp)
	}

	body = bytes.NewReader([]byte(`5`))
	resp, err = http.Post(srv.URL+"/settings/runtime_s", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("writing read-only setting returned %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	body = bytes.NewReader([]byte(`{"power_mw": 20, "emission": true}`))
	resp, err = http.Post(srv.URL+"/settings", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	results := map[string]interface{}{}
	err = json.NewDecoder(resp.Body).Decode(&results)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if results["power_mw"] != 20.0 {
		t.Errorf("batch update read back %v for power_mw, want 20", results["power_mw"])
	}
	on, err := l.GetEmission()
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("emission not on after batch update")
	}
}

func TestSettingsDescribe(t *testing.T) {
	_, srv := setupLaser(t)
	resp, err := http.Get(srv.URL + "/settings/describe")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	desc := map[string]struct {
		Type     string `json:"type"`
		ReadOnly bool   `json:"readonly"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		t.Fatal(err)
	}
	if !desc["runtime_s"].ReadOnly {
		t.Error("runtime_s not marked read-only")
	}
	if desc["emission"].Type != "bool" {
		t.Errorf("emission type = %q, want bool", desc["emission"].Type)
	}
}

func TestShortLongCenterBandwidthRoundTrip(t *testing.T) {
	cb := laser.ShortLongToCB(500, 600)
	if cb.Center != 550 || cb.Bandwidth != 100 {
		t.Errorf("center/bw = %g/%g, want 550/100", cb.Center, cb.Bandwidth)
	}
	short, long := cb.ToShortLong()
	if short != 500 || long != 600 {
		t.Errorf("short/long = %g/%g, want 500/600", short, long)
	}
}
