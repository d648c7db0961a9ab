package camera_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/go-chi/chi"

	"github.com/mickp/deviceremotes/generichttp/camera"
	"github.com/mickp/deviceremotes/imgrec"
	"github.com/mickp/deviceremotes/sim"
)

func setupCamera(t *testing.T, w, h int, rec *imgrec.Recorder) (*sim.SimCamera, *httptest.Server) {
	t.Helper()
	cam := sim.NewSimCamera(w, h)
	r := chi.NewRouter()
	camera.NewHTTPCamera(cam, rec).RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return cam, srv
}

func TestExposureTimeQueryParam(t *testing.T) {
	cam, srv := setupCamera(t, 16, 16, nil)
	resp, err := http.Post(srv.URL+"/exposure-time?exposureTime=25ms", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set exposure returned %d", resp.StatusCode)
	}
	d, err := cam.GetExposureTime()
	if err != nil {
		t.Fatal(err)
	}
	if d != 25*time.Millisecond {
		t.Errorf("exposure = %v, want 25ms", d)
	}
	r2, err := http.Get(srv.URL + "/exposure-time")
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Body.Close()
	got := struct {
		F64 float64 `json:"f64"`
	}{}
	if err := json.NewDecoder(r2.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.F64 != 0.025 {
		t.Errorf("exposure over HTTP = %g s, want 0.025", got.F64)
	}
}

func TestExposureTimeJSONBody(t *testing.T) {
	cam, srv := setupCamera(t, 16, 16, nil)
	body := bytes.NewReader([]byte(`{"f64": 0.05}`))
	resp, err := http.Post(srv.URL+"/exposure-time", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set exposure returned %d", resp.StatusCode)
	}
	d, err := cam.GetExposureTime()
	if err != nil {
		t.Fatal(err)
	}
	if d != 50*time.Millisecond {
		t.Errorf("exposure = %v, want 50ms", d)
	}
}

func TestAOIAndBinningRoundTrip(t *testing.T) {
	_, srv := setupCamera(t, 64, 64, nil)
	body := bytes.NewReader([]byte(`{"left": 0, "top": 0, "width": 32, "height": 16}`))
	resp, err := http.Post(srv.URL+"/aoi", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set AOI returned %d", resp.StatusCode)
	}
	r2, err := http.Get(srv.URL + "/aoi")
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Body.Close()
	aoi := camera.AOI{}
	if err := json.NewDecoder(r2.Body).Decode(&aoi); err != nil {
		t.Fatal(err)
	}
	if aoi.Width != 32 || aoi.Height != 16 {
		t.Errorf("AOI = %+v, want 32x16", aoi)
	}

	body = bytes.NewReader([]byte(`{"h": 2, "v": 2}`))
	resp, err = http.Post(srv.URL+"/binning", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set binning returned %d", resp.StatusCode)
	}
	r3, err := http.Get(srv.URL + "/binning")
	if err != nil {
		t.Fatal(err)
	}
	defer r3.Body.Close()
	b := camera.Binning{}
	if err := json.NewDecoder(r3.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if b.H != 2 || b.V != 2 {
		t.Errorf("binning = %+v, want 2x2", b)
	}
}

func TestSetAOIAcceptsFullFrameAtOrigin(t *testing.T) {
	// pixel indices are 0-based, so the full frame starts at (0,0)
	_, srv := setupCamera(t, 64, 64, nil)
	body := bytes.NewReader([]byte(`{"left": 0, "top": 0, "width": 64, "height": 64}`))
	resp, err := http.Post(srv.URL+"/aoi", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("full-frame AOI returned %d", resp.StatusCode)
	}
}

func TestSetAOIRejectsOversize(t *testing.T) {
	_, srv := setupCamera(t, 64, 64, nil)
	body := bytes.NewReader([]byte(`{"left": 0, "top": 0, "width": 128, "height": 128}`))
	resp, err := http.Post(srv.URL+"/aoi", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("oversize AOI returned %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
}

func TestFrameAsFits(t *testing.T) {
	_, srv := setupCamera(t, 16, 8, nil)
	resp, err := http.Get(srv.URL + "/frame?fmt=fits")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("frame returned %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/fits" {
		t.Errorf("Content-Type = %q, want image/fits", ct)
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	f, err := fitsio.Open(bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		t.Fatal("primary HDU is not an image")
	}
	axes := img.Header().Axes()
	if len(axes) != 2 || axes[0] != 16 || axes[1] != 8 {
		t.Fatalf("axes = %v, want [16 8]", axes)
	}
	if card := img.Header().Get("EXPTIME"); card == nil {
		t.Error("EXPTIME card missing from header")
	}
	data := make([]int16, 0, 16*8)
	if err := img.Read(&data); err != nil {
		t.Fatal(err)
	}
	if len(data) != 16*8 {
		t.Errorf("frame has %d pixels, want %d", len(data), 16*8)
	}
}

func TestFrameAsPng(t *testing.T) {
	_, srv := setupCamera(t, 16, 8, nil)
	resp, err := http.Get(srv.URL + "/frame?fmt=png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("frame returned %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestFrameRejectsUnknownFormat(t *testing.T) {
	_, srv := setupCamera(t, 16, 8, nil)
	resp, err := http.Get(srv.URL + "/frame?fmt=tiff")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format returned %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestBurstCube(t *testing.T) {
	_, srv := setupCamera(t, 8, 8, nil)
	body := bytes.NewReader([]byte(`{"fps": 1000, "frames": 2}`))
	resp, err := http.Post(srv.URL+"/burst", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("burst returned %d", resp.StatusCode)
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	f, err := fitsio.Open(bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		t.Fatal("primary HDU is not an image")
	}
	axes := img.Header().Axes()
	if len(axes) != 3 || axes[2] != 2 {
		t.Fatalf("axes = %v, want a 2-frame cube", axes)
	}
}

func TestThermalRoutes(t *testing.T) {
	_, srv := setupCamera(t, 8, 8, nil)
	body := bytes.NewReader([]byte(`{"f64": -20}`))
	resp, err := http.Post(srv.URL+"/temperature-setpoint", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set setpoint returned %d", resp.StatusCode)
	}
	body = bytes.NewReader([]byte(`{"bool": true}`))
	resp, err = http.Post(srv.URL+"/cooling", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set cooling returned %d", resp.StatusCode)
	}
	r2, err := http.Get(srv.URL + "/temperature")
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Body.Close()
	got := struct {
		F64 float64 `json:"f64"`
	}{}
	if err := json.NewDecoder(r2.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.F64 != -20 {
		t.Errorf("temperature = %g, want -20", got.F64)
	}
}

func TestRecorderCapturesFrames(t *testing.T) {
	root := t.TempDir()
	rec := &imgrec.Recorder{Root: root, Prefix: "img", Enabled: true}
	_, srv := setupCamera(t, 8, 8, rec)
	resp, err := http.Get(srv.URL + "/frame?fmt=fits")
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("frame returned %d", resp.StatusCode)
	}
	found := 0
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".fits") {
			found++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if found != 1 {
		t.Errorf("recorder wrote %d fits files, want 1", found)
	}
}
