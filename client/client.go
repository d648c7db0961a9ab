/*Package client is a thin Go client for device nodes served by this
module.  Each node is addressed by the base URL it is mounted at, e.g.
http://localhost:8000/omc/nkt.
*/
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/mickp/deviceremotes/server"
)

// Client speaks the JSON envelope protocol to one device node
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the node at base
func New(base string) *Client {
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) url(route string) string {
	return c.base + route
}

// do runs a request and converts non-2xx replies into errors carrying
// the server's message
func (c *Client) do(method, route string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.url(route), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s %s: %s: %s", method, route, resp.Status, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (c *Client) getJSON(route string, into interface{}) error {
	resp, err := c.do(http.MethodGet, route, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(into)
}

func (c *Client) postJSON(route string, payload interface{}) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return err
	}
	resp, err := c.do(http.MethodPost, route, buf)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// GetBool reads a {"bool": ...} route
func (c *Client) GetBool(route string) (bool, error) {
	b := server.BoolT{}
	err := c.getJSON(route, &b)
	return b.Bool, err
}

// SetBool posts a {"bool": ...} payload to a route
func (c *Client) SetBool(route string, v bool) error {
	return c.postJSON(route, server.BoolT{Bool: v})
}

// GetFloat reads a {"f64": ...} route
func (c *Client) GetFloat(route string) (float64, error) {
	f := server.FloatT{}
	err := c.getJSON(route, &f)
	return f.F64, err
}

// SetFloat posts a {"f64": ...} payload to a route
func (c *Client) SetFloat(route string, v float64) error {
	return c.postJSON(route, server.FloatT{F64: v})
}

// GetString reads a {"str": ...} route
func (c *Client) GetString(route string) (string, error) {
	s := server.StrT{}
	err := c.getJSON(route, &s)
	return s.Str, err
}

// SetEmission turns the laser beam on or off
func (c *Client) SetEmission(on bool) error {
	return c.SetBool("/emission", on)
}

// GetEmission reports whether the beam is on
func (c *Client) GetEmission() (bool, error) {
	return c.GetBool("/emission")
}

// SetPower sets the laser power in mW
func (c *Client) SetPower(mw float64) error {
	return c.SetFloat("/power", mw)
}

// GetPower reads the emitted laser power in mW
func (c *Client) GetPower() (float64, error) {
	return c.GetFloat("/power")
}

// ApplyPattern sends a full actuator pattern to a deformable mirror
func (c *Client) ApplyPattern(pattern []float64) error {
	return c.postJSON("/pattern", struct {
		Value []float64 `json:"value"`
	}{pattern})
}

// NumActuators reads the mirror's actuator count
func (c *Client) NumActuators() (int, error) {
	i := server.IntT{}
	err := c.getJSON("/actuators", &i)
	return i.Int, err
}

// SetExposureTime sets a camera's integration time
func (c *Client) SetExposureTime(d time.Duration) error {
	resp, err := c.do(http.MethodPost, "/exposure-time?exposureTime="+url.QueryEscape(d.String()), nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// GetFrame grabs one frame as FITS and unpacks it to 16-bit counts,
// returning the data with its width and height
func (c *Client) GetFrame() ([]uint16, int, int, error) {
	resp, err := c.do(http.MethodGet, "/frame?fmt=fits", nil)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, err
	}
	fits, err := fitsio.Open(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, err
	}
	defer fits.Close()
	hdu, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return nil, 0, 0, fmt.Errorf("primary HDU is not an image")
	}
	hdr := hdu.Header()
	axes := hdr.Axes()
	if len(axes) < 2 {
		return nil, 0, 0, fmt.Errorf("image has %d axes, need 2", len(axes))
	}
	w, h := axes[0], axes[1]
	ints := make([]int16, w*h)
	if err := hdu.Read(&ints); err != nil {
		return nil, 0, 0, err
	}
	// undo the unsigned-in-signed-storage convention
	out := make([]uint16, len(ints))
	for i, v := range ints {
		out[i] = uint16(int32(v) + 32768)
	}
	return out, w, h, nil
}

// Endpoints lists the routes the node serves
func (c *Client) Endpoints() ([]string, error) {
	var routes []string
	err := c.getJSON("/endpoints", &routes)
	return routes, err
}

// Lock makes the node reject mutating requests until Unlock
func (c *Client) Lock() error {
	return c.SetBool("/lock", true)
}

// Unlock re-admits mutating requests
func (c *Client) Unlock() error {
	return c.SetBool("/lock", false)
}
