package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"

	"github.com/mickp/deviceremotes/coherent"
	"github.com/mickp/deviceremotes/generichttp"
	"github.com/mickp/deviceremotes/generichttp/ascii"
	"github.com/mickp/deviceremotes/generichttp/camera"
	"github.com/mickp/deviceremotes/generichttp/dm"
	"github.com/mickp/deviceremotes/generichttp/laser"
	"github.com/mickp/deviceremotes/imgrec"
	"github.com/mickp/deviceremotes/nkt"
	"github.com/mickp/deviceremotes/server/middleware/httpmetrics"
	"github.com/mickp/deviceremotes/server/middleware/locker"
	"github.com/mickp/deviceremotes/sim"
)

// ObjSetup holds the typical triplet of args for a New<device> call.
// Serial is not always used and need not be populated in the config
// file if not used.
type ObjSetup struct {
	// Addr holds the network or filesystem address of the remote device,
	// e.g. 192.168.100.123:2106 for a device connected to port 6
	// on a digi portserver, or /dev/ttyS4 for an RS232 device on a serial cable
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Endpoint is the stem the routes from this device are served under,
	// ex. Endpoint="/omc/nkt" produces routes of /omc/nkt/power, etc.
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	// Serial determines if the connection is serial/RS232 (true) or TCP (false)
	Serial bool `yaml:"Serial" koanf:"Serial"`

	// Type is the "type" of the object, e.g. obis
	Type string `yaml:"Type" koanf:"Type"`

	// Args holds any extra arguments to pass into the constructor
	Args map[string]interface{} `yaml:"Args" koanf:"Args"`
}

// MQTTSetup configures the optional status publisher
type MQTTSetup struct {
	// Broker is the broker URI, e.g. tcp://localhost:1883.  Empty
	// disables telemetry.
	Broker string `yaml:"Broker" koanf:"Broker"`

	// Prefix is the topic prefix, e.g. lab
	Prefix string `yaml:"Prefix" koanf:"Prefix"`

	// IntervalSec is the publication period in seconds
	IntervalSec int `yaml:"IntervalSec" koanf:"IntervalSec"`
}

// Config holds the initialization parameters for the served devices
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Mock substitutes simulated devices for every node
	Mock bool `yaml:"Mock" koanf:"Mock"`

	MQTT MQTTSetup `yaml:"MQTT" koanf:"MQTT"`

	// Nodes is the list of nodes to set up
	Nodes []ObjSetup `yaml:"Nodes" koanf:"Nodes"`
}

// Node is one constructed device with its mount point
type Node struct {
	// Name is the endpoint stem without slashes, used in logs and topics
	Name string

	// Dev is the device driver
	Dev interface{}

	// HTTPer serves the device's routes
	HTTPer generichttp.HTTPer
}

// extraDrivers is populated by init functions in build-tagged files, so
// types needing vendor SDKs or libusb only exist in builds that carry them
var extraDrivers = map[string]func(ObjSetup) (interface{}, error){}

// argString reads a string from a node's Args
func argString(args map[string]interface{}, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// argInt reads an integer from a node's Args; YAML hands numbers over
// as int or float64 depending on the decoder
func argInt(args map[string]interface{}, key string, fallback int) int {
	if args == nil {
		return fallback
	}
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// argFloat reads a float from a node's Args
func argFloat(args map[string]interface{}, key string, fallback float64) float64 {
	if args == nil {
		return fallback
	}
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

// simFor returns the simulated stand-in for a node type
func simFor(setup ObjSetup) (interface{}, error) {
	typ := strings.ToLower(setup.Type)
	switch typ {
	case "obis", "nkt", "superk", "itc4000", "sim-laser":
		return sim.NewSimLaser(argFloat(setup.Args, "MinPower", 1), argFloat(setup.Args, "MaxPower", 100)), nil
	case "bmc", "alpao", "sim-dm":
		return sim.NewSimMirror(argInt(setup.Args, "Actuators", 97)), nil
	case "pvcam", "sim-camera":
		return sim.NewSimCamera(argInt(setup.Args, "Width", 512), argInt(setup.Args, "Height", 512)), nil
	}
	return nil, fmt.Errorf("type %q has no simulated counterpart", setup.Type)
}

// buildDevice constructs the driver for one node
func buildDevice(setup ObjSetup, mock bool) (interface{}, error) {
	typ := strings.ToLower(setup.Type)
	if mock || strings.HasPrefix(typ, "sim-") {
		return simFor(setup)
	}
	switch typ {
	case "obis":
		return coherent.NewOBIS(setup.Addr, setup.Serial), nil
	case "nkt", "superk":
		return nkt.NewSuperK(setup.Addr, setup.Serial), nil
	}
	if maker, ok := extraDrivers[typ]; ok {
		return maker(setup)
	}
	return nil, fmt.Errorf("type %q not understood (is it behind a build tag this binary lacks?)", setup.Type)
}

// httperFor wraps a device in the HTTP adapter matching its capabilities
func httperFor(dev interface{}, setup ObjSetup) (generichttp.HTTPer, error) {
	var h generichttp.HTTPer
	if p, ok := dev.(camera.PictureTaker); ok {
		var rec *imgrec.Recorder
		if root := argString(setup.Args, "Root"); root != "" {
			rec = &imgrec.Recorder{Root: root, Prefix: argString(setup.Args, "Prefix"), Enabled: true}
			rec.Incr()
		}
		hc := camera.NewHTTPCamera(p, rec)
		if rec != nil {
			imgrec.NewHTTPWrapper(rec).Inject(hc)
		}
		h = hc
	} else if d, ok := dev.(dm.PatternApplier); ok {
		h = dm.NewHTTPDeformableMirror(d)
	} else if l, ok := dev.(laser.Controller); ok {
		h = laser.NewHTTPLaserController(l)
	} else {
		return nil, fmt.Errorf("device for %q exposes no known capability", setup.Endpoint)
	}
	if rc, ok := dev.(ascii.RawCommunicator); ok {
		ascii.InjectRawComm(h.RT(), rc)
	}
	return h, nil
}

// BuildNodes constructs every device in the config
func BuildNodes(c Config) ([]Node, error) {
	nodes := make([]Node, 0, len(c.Nodes))
	for _, setup := range c.Nodes {
		dev, err := buildDevice(setup, c.Mock)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", setup.Endpoint, err)
		}
		httper, err := httperFor(dev, setup)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", setup.Endpoint, err)
		}
		nodes = append(nodes, Node{
			Name:   strings.Trim(setup.Endpoint, "/"),
			Dev:    dev,
			HTTPer: httper,
		})
	}
	return nodes, nil
}

// requestLogger logs one line per request through the zerolog logger
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

// BuildMux mounts every node under its endpoint with a lock interface,
// and serves /endpoints and /metrics at the root
func BuildMux(nodes []Node, log zerolog.Logger) chi.Router {
	root := chi.NewRouter()
	root.Use(requestLogger(log))
	root.Use(httpmetrics.Measure)
	supergraph := map[string][]string{}

	for _, node := range nodes {
		rt := node.HTTPer.RT()
		lock := locker.New()
		locker.Inject(rt, lock)

		// the supergraph advertises "/omc/nkt/*"; chi wants the bare
		// stem and appends its own wildcard on Mount
		stem := generichttp.SubMuxSanitize("/" + node.Name)
		supergraph[stem] = rt.Endpoints()

		r := chi.NewRouter()
		r.Use(lock.Check)
		rt.Bind(r)
		root.Mount(strings.TrimSuffix(stem, "/*"), r)
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(supergraph); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	root.Method(http.MethodGet, "/metrics", httpmetrics.Handler())
	return root
}
