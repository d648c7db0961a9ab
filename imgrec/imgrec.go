// Package imgrec contains an image recorder used to automatically save
// FITS frames to disk in dated folders with incrementing filenames.
package imgrec

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mickp/deviceremotes/generichttp"
	"github.com/mickp/deviceremotes/server"
)

// Recorder writes image sequences with incrementing filenames in
// yyyy-mm-dd subfolders under Root
type Recorder struct {
	mu sync.Mutex

	// counter is the next filename index
	counter int

	// Root is the root path; an empty root disables writing
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// Enabled lets consumers skip the recorder without unwiring it
	Enabled bool
}

// Armed reports whether the recorder should receive a copy of the
// stream.  Consumers use this instead of reading the fields, which may
// be rewritten over HTTP mid-capture.
func (r *Recorder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Enabled && r.Root != ""
}

// dateFolder is today's subfolder name
func dateFolder() string {
	y, m, d := time.Now().Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// mkDir ensures today's folder exists and returns it
func (r *Recorder) mkDir() (string, error) {
	fldr := filepath.Join(r.Root, dateFolder())
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// Write appends p to the current file, satisfying io.Writer so the
// recorder can sit on the far side of an io.MultiWriter from an HTTP
// response
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fldr, err := r.mkDir()
	if err != nil {
		return 0, err
	}
	fn := filepath.Join(fldr, fmt.Sprintf("%s%06d.fits", r.Prefix, r.counter))
	fid, err := os.OpenFile(fn, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return 0, err
	}
	defer fid.Close()
	return fid.Write(p)
}

// Incr advances the filename counter past anything already in the
// folder, so restarting the server does not overwrite earlier frames.
// On error the counter is left alone.
func (r *Recorder) Incr() {
	r.mu.Lock()
	defer r.mu.Unlock()
	dn, _ := r.mkDir()
	entries, err := os.ReadDir(dn)
	if err != nil {
		return
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fn := entry.Name()
		if !strings.HasSuffix(fn, ".fits") || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		bit := strings.TrimSuffix(strings.TrimPrefix(fn, r.Prefix), ".fits")
		n, err := strconv.Atoi(bit)
		if err != nil {
			continue
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
}

// HTTPWrapper exposes the recorder's folder, prefix, and enable switch
// over HTTP.  It does not implement generichttp.HTTPer; Inject merges
// its routes into another HTTPer's table.
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

// SetRoot updates the root folder of the recorder
func (h HTTPWrapper) SetRoot(w http.ResponseWriter, r *http.Request) {
	str := server.StrT{}
	err := json.NewDecoder(r.Body).Decode(&str)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Recorder.mu.Lock()
	h.Recorder.Root = str.Str
	h.Recorder.mu.Unlock()
	if _, err = h.Recorder.mkDir(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetRoot returns the recorder's root folder
func (h HTTPWrapper) GetRoot(w http.ResponseWriter, r *http.Request) {
	generichttp.GetString(func() (string, error) {
		h.Recorder.mu.Lock()
		defer h.Recorder.mu.Unlock()
		return h.Recorder.Root, nil
	})(w, r)
}

// SetPrefix updates the filename prefix and resyncs the counter past
// any files already carrying the new prefix
func (h HTTPWrapper) SetPrefix(w http.ResponseWriter, r *http.Request) {
	str := server.StrT{}
	err := json.NewDecoder(r.Body).Decode(&str)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Recorder.mu.Lock()
	h.Recorder.Prefix = str.Str
	h.Recorder.mu.Unlock()
	h.Recorder.Incr()
	w.WriteHeader(http.StatusOK)
}

// GetPrefix returns the recorder's filename prefix
func (h HTTPWrapper) GetPrefix(w http.ResponseWriter, r *http.Request) {
	generichttp.GetString(func() (string, error) {
		h.Recorder.mu.Lock()
		defer h.Recorder.mu.Unlock()
		return h.Recorder.Prefix, nil
	})(w, r)
}

// SetEnabled flips the recorder's enable switch
func (h HTTPWrapper) SetEnabled(w http.ResponseWriter, r *http.Request) {
	bT := server.BoolT{}
	err := json.NewDecoder(r.Body).Decode(&bT)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Recorder.mu.Lock()
	h.Recorder.Enabled = bT.Bool
	h.Recorder.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

// GetEnabled returns the recorder's enable switch
func (h HTTPWrapper) GetEnabled(w http.ResponseWriter, r *http.Request) {
	generichttp.GetBool(func() (bool, error) {
		h.Recorder.mu.Lock()
		defer h.Recorder.mu.Unlock()
		return h.Recorder.Enabled, nil
	})(w, r)
}

// Inject adds the /autowrite routes to another HTTPer
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = h.SetRoot
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = h.GetRoot
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = h.SetPrefix
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = h.GetPrefix
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = h.SetEnabled
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = h.GetEnabled
}
