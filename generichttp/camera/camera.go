// Package camera provides a generic HTTP interface to a scientific camera
package camera

import (
	"encoding/json"
	"fmt"
	"go/types"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/mickp/deviceremotes/generichttp"
	"github.com/mickp/deviceremotes/imgrec"
	"github.com/mickp/deviceremotes/server"
	"github.com/mickp/deviceremotes/util"
)

// AOI describes an area of interest on the camera
type AOI struct {
	// Left is the left pixel index.  0-based
	Left int `json:"left"`

	// Top is the top pixel index.  0-based
	Top int `json:"top"`

	// Width is the width in pixels
	Width int `json:"width"`

	// Height is the height in pixels
	Height int `json:"height"`
}

// Right is the rightmost pixel index covered by the AOI
func (a AOI) Right() int {
	return a.Left + a.Width - 1
}

// Bottom is the lowest pixel index covered by the AOI
func (a AOI) Bottom() int {
	return a.Top + a.Height - 1
}

// Binning encapsulates information about pixel addition on camera
type Binning struct {
	// H is the horizontal binning factor
	H int `json:"h"`

	// V is the vertical binning factor
	V int `json:"v"`
}

// PictureTaker describes an interface to a camera which can capture images
type PictureTaker interface {
	// GetFrame triggers capture of a frame and returns the strided image data as 16-bit integers
	GetFrame() ([]uint16, error)

	// SetExposureTime sets the exposure time
	SetExposureTime(time.Duration) error

	// GetExposureTime gets the exposure time
	GetExposureTime() (time.Duration, error)

	// GetAOI retrieves the current AOI
	GetAOI() (AOI, error)
}

// Burster can take N frames at a fixed framerate, returning the contiguous
// strided buffer for the 3D array
type Burster interface {
	Burst(int, float64) ([]uint16, error)
}

// AOIManipulator describes an interface to a camera which has a configurable area of interest
type AOIManipulator interface {
	// SetAOI allows the AOI to be set
	SetAOI(AOI) error

	// SetBinning sets the binning option of the camera
	SetBinning(Binning) error

	// GetBinning returns the binning option of the camera
	GetBinning() (Binning, error)
}

// ThermalManager describes an interface to a camera which can manage its thermal performance
type ThermalManager interface {
	// GetCooling queries if focal plane cooling is currently active
	GetCooling() (bool, error)

	// SetCooling turns focal plane cooling on or off
	SetCooling(bool) error

	// GetTemperature gets the current focal plane temperature in Celsius
	GetTemperature() (float64, error)

	// GetTemperatureSetpoint gets the cooling setpoint in Celsius
	GetTemperatureSetpoint() (float64, error)

	// SetTemperatureSetpoint sets the cooling setpoint in Celsius
	SetTemperatureSetpoint(float64) error
}

// MetadataMaker can produce an array of FITS cards
type MetadataMaker interface {
	// CollectHeaderMetadata produces an array of FITS cards
	CollectHeaderMetadata() []fitsio.Card
}

// SetExposureTime sets the exposure time on a POST request.
// it can be provided either as a query parameter exposureTime, formatted in a
// way that is parseable by golang/time.ParseDuration, or a json payload with
// key f64, holding the exposure time in seconds.
func SetExposureTime(p PictureTaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		texp := q.Get("exposureTime")
		var d time.Duration
		var err error
		if texp == "" {
			f := server.FloatT{}
			err = json.NewDecoder(r.Body).Decode(&f)
			d = util.SecsToDuration(f.F64)
		} else {
			d, err = time.ParseDuration(texp)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = p.SetExposureTime(d)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetExposureTime gets the exposure time on a GET request
func GetExposureTime(p PictureTaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := p.GetExposureTime()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := server.HumanPayload{T: types.Float64, Float: f.Seconds()}
		hp.EncodeAndRespond(w, r)
	}
}

// scale8 converts a 16-bit buffer to 8 bits for the lossy formats
func scale8(img []uint16) []byte {
	buf := make([]byte, len(img))
	for idx := 0; idx < len(img); idx++ {
		buf[idx] = byte(img[idx] / 256)
	}
	return buf
}

// GetFrame takes a picture and returns it on a GET request.
//
// the image format may be specified in a query parameter; default to jpg
//
// the exposure time may be specified as a query parameter in any time-looking
// format, such as "25ms" or "10us".  Strictly speaking, it must be a valid
// input to golang time.ParseDuration.
//
// if no unit is appended, an s (seconds) is added.
//
// if no exposure time is provided, it is not updated and the existing value is used.
func GetFrame(p PictureTaker, rec *imgrec.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		texp := q.Get("exposureTime")
		if texp != "" {
			if util.AllElementsNumbers(texp) {
				texp = texp + "s"
			}
			T, err := time.ParseDuration(texp)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			err = p.SetExposureTime(T)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		img, err := p.GetFrame()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		format := q.Get("fmt")
		if format == "" {
			format = "jpg"
		}

		aoi, err := p.GetAOI()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		switch format {
		case "jpg":
			im := &image.Gray{Pix: scale8(img), Stride: aoi.Width, Rect: image.Rect(0, 0, aoi.Width, aoi.Height)}
			w.Header().Set("Content-Type", "image/jpeg")
			w.WriteHeader(http.StatusOK)
			jpeg.Encode(w, im, nil)
		case "png":
			im := &image.Gray{Pix: scale8(img), Stride: aoi.Width, Rect: image.Rect(0, 0, aoi.Width, aoi.Height)}
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusOK)
			png.Encode(w, im)
		case "fits":
			// a recorder, when armed, gets a copy of the stream and a bump
			// to its frame counter
			var w2 io.Writer
			if rec != nil && rec.Armed() {
				w2 = io.MultiWriter(w, rec)
				defer rec.Incr()
			} else {
				w2 = w
			}
			cards := []fitsio.Card{}
			if carder, ok := interface{}(p).(MetadataMaker); ok {
				cards = carder.CollectHeaderMetadata()
			}

			hdr := w.Header()
			hdr.Set("Content-Type", "image/fits")
			hdr.Set("Content-Disposition", "attachment; filename=image.fits")
			err = writeFits(w2, cards, img, aoi.Width, aoi.Height, 1)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		default:
			http.Error(w, fmt.Sprintf("unknown image format %q", format), http.StatusBadRequest)
		}
	}
}

// Burst takes a burst of N frames at M fps and returns it as a fits image cube
func Burst(p PictureTaker, b Burster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := struct {
			FPS    float64 `json:"fps"`
			Frames int     `json:"frames"`
		}{}
		err := json.NewDecoder(r.Body).Decode(&t)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		img, err := b.Burst(t.Frames, t.FPS)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		aoi, err := p.GetAOI()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		cards := []fitsio.Card{}
		if carder, ok := interface{}(p).(MetadataMaker); ok {
			cards = carder.CollectHeaderMetadata()
		}
		cards = append(cards, fitsio.Card{Name: "fps", Value: t.FPS, Comment: "frame rate"})
		hdr := w.Header()
		hdr.Set("Content-Type", "image/fits")
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
		w.WriteHeader(http.StatusOK)
		err = writeFits(w, cards, img, aoi.Width, aoi.Height, t.Frames)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// GetAOI returns the current area of interest as JSON
func GetAOI(p PictureTaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aoi, err := p.GetAOI()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(aoi)
	}
}

// SetAOI updates the area of interest from a JSON POST body
func SetAOI(a AOIManipulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aoi := AOI{}
		err := json.NewDecoder(r.Body).Decode(&aoi)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := a.SetAOI(aoi); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetBinning returns the binning configuration as JSON
func GetBinning(a AOIManipulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := a.GetBinning()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(b)
	}
}

// SetBinning updates the binning configuration from a JSON POST body
func SetBinning(a AOIManipulator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := Binning{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := a.SetBinning(b); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HTTPCamera wraps a camera in an HTTP route table
type HTTPCamera struct {
	// Cam is the underlying camera
	Cam PictureTaker

	// RouteTable maps URLs to functions
	RouteTable generichttp.RouteTable
}

// NewHTTPCamera returns an HTTP wrapper around a camera.  Thermal
// management, AOI manipulation and burst capture routes are added when the
// camera supports them.  rec may be nil to disable recording.
func NewHTTPCamera(p PictureTaker, rec *imgrec.Recorder) HTTPCamera {
	h := HTTPCamera{Cam: p}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/frame"}:          GetFrame(p, rec),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/exposure-time"}:  GetExposureTime(p),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/exposure-time"}: SetExposureTime(p),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/aoi"}:            GetAOI(p),
	}
	if b, ok := interface{}(p).(Burster); ok {
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/burst"}] = Burst(p, b)
	}
	if a, ok := interface{}(p).(AOIManipulator); ok {
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/aoi"}] = SetAOI(a)
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/binning"}] = GetBinning(a)
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/binning"}] = SetBinning(a)
	}
	if t, ok := interface{}(p).(ThermalManager); ok {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/cooling"}] = generichttp.GetBool(t.GetCooling)
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/cooling"}] = generichttp.SetBool(t.SetCooling)
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/temperature"}] = generichttp.GetFloat(t.GetTemperature)
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/temperature-setpoint"}] = generichttp.GetFloat(t.GetTemperatureSetpoint)
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/temperature-setpoint"}] = generichttp.SetFloat(t.SetTemperatureSetpoint)
	}
	if rec != nil {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autosave"}] = generichttp.GetBool(func() (bool, error) {
			return rec.Enabled, nil
		})
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autosave"}] = generichttp.SetBool(func(b bool) error {
			rec.Enabled = b
			return nil
		})
	}
	generichttp.InjectLifecycle(rt, p)
	h.RouteTable = rt
	return h
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPCamera) RT() generichttp.RouteTable {
	return h.RouteTable
}
