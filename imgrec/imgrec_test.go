package imgrec

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteCreatesDatedFolder(t *testing.T) {
	root := t.TempDir()
	r := &Recorder{Root: root, Prefix: "img"}
	if _, err := r.Write([]byte("SIMPLE")); err != nil {
		t.Fatal(err)
	}
	fn := filepath.Join(root, dateFolder(), "img000000.fits")
	data, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "SIMPLE" {
		t.Errorf("file contents = %q", data)
	}
}

func TestWriteAppendsWithinOneFrame(t *testing.T) {
	root := t.TempDir()
	r := &Recorder{Root: root, Prefix: "img"}
	r.Write([]byte("abc"))
	r.Write([]byte("def"))
	fn := filepath.Join(root, dateFolder(), "img000000.fits")
	data, _ := os.ReadFile(fn)
	if string(data) != "abcdef" {
		t.Errorf("file contents = %q, want chunks appended", data)
	}
}

func TestIncrSkipsPastExistingFiles(t *testing.T) {
	root := t.TempDir()
	r := &Recorder{Root: root, Prefix: "img"}
	fldr, err := r.mkDir()
	if err != nil {
		t.Fatal(err)
	}
	for _, fn := range []string{"img000000.fits", "img000007.fits", "other000009.fits", "img.txt"} {
		if err := os.WriteFile(filepath.Join(fldr, fn), nil, 0666); err != nil {
			t.Fatal(err)
		}
	}
	r.Incr()
	if _, err := r.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(fldr, "img000008.fits")); err != nil {
		t.Errorf("expected counter to land on 8: %v", err)
	}
}

func TestSetPrefixDoesNotClobberLeftoverFiles(t *testing.T) {
	root := t.TempDir()
	r := &Recorder{Root: root, Prefix: "img"}
	fldr, err := r.mkDir()
	if err != nil {
		t.Fatal(err)
	}
	// a file from an earlier session under the prefix we are about
	// to switch to
	stale := filepath.Join(fldr, "run000000.fits")
	if err := os.WriteFile(stale, []byte("EXISTING"), 0666); err != nil {
		t.Fatal(err)
	}
	h := NewHTTPWrapper(r)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/autowrite/prefix", strings.NewReader(`{"str": "run"}`))
	h.SetPrefix(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("set prefix returned %d", w.Code)
	}
	if _, err := r.Write([]byte("NEWFRAME")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(stale)
	if string(data) != "EXISTING" {
		t.Errorf("leftover file rewritten to %q", data)
	}
	if _, err := os.Stat(filepath.Join(fldr, "run000001.fits")); err != nil {
		t.Errorf("expected the new frame in the next slot: %v", err)
	}
}

func TestArmedRequiresEnableAndRoot(t *testing.T) {
	r := &Recorder{}
	if r.Armed() {
		t.Error("bare recorder reports armed")
	}
	r.Enabled = true
	if r.Armed() {
		t.Error("recorder without a root reports armed")
	}
	r.Root = t.TempDir()
	if !r.Armed() {
		t.Error("enabled recorder with a root reports unarmed")
	}
}
