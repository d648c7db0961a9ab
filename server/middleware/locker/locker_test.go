package locker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestLockerBouncesWhenLocked(t *testing.T) {
	l := New()
	srv := httptest.NewServer(l.Check(http.HandlerFunc(okHandler)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/emission")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unlocked request got %d, want 200", resp.StatusCode)
	}

	l.Lock()
	resp, err = http.Get(srv.URL + "/emission")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusLocked {
		t.Errorf("locked request got %d, want 423", resp.StatusCode)
	}

	l.Unlock()
	resp, err = http.Get(srv.URL + "/emission")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("request after unlock got %d, want 200", resp.StatusCode)
	}
}

func TestLockerDoesNotProtectLockRoute(t *testing.T) {
	l := New()
	l.Lock()
	srv := httptest.NewServer(l.Check(http.HandlerFunc(okHandler)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/lock", "application/json", strings.NewReader(`{"bool":false}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("lock route got %d, want 200", resp.StatusCode)
	}
}
