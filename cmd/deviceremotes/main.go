/*deviceremotes communicates with lab hardware -- lasers, deformable
mirrors, cameras -- and exposes an HTTP interface to them.  This enables
a server-client architecture where the clients can be written in any
language with a decent HTTP library.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/rs/zerolog"
	yml "gopkg.in/yaml.v2"

	"github.com/mickp/deviceremotes/device"
	"github.com/mickp/deviceremotes/telemetry"
)

var (
	// Version is the version number, typically injected via ldflags at build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "deviceremotes.yml"

	k = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:  ":8000",
		MQTT:  MQTTSetup{Prefix: "deviceremotes", IntervalSec: 10},
		Nodes: []ObjSetup{}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
	}
}

func root() {
	str := `deviceremotes communicates with lab hardware and exposes an HTTP interface to it
This enables a server-client architecture, and the clients can leverage the
excellent HTTP libraries for any programming language.

Usage:
	deviceremotes <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `deviceremotes is configured via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

Without a configuration, the server will close immediately and display an
error that there are no endpoints.

No two endpoints can have the same URL.

Endpoints may look like any variation between "omc/nkt" or "/omc/nkt/*"; the
leading and trailing slashes, as well as the *, are added by the server if
missing.

Hardware and matching "type" fields, case insensitive, alphabetical by vendor:
- Alpao:
	> deformable mirrors "alpao" [requires the alpao build tag]
- Boston Micromachines:
	> deformable mirrors "bmc" [requires the bmc build tag]
- Coherent:
	> OBIS lasers "obis"
- NKT:
	> SuperK Extreme / SuperK Varia "nkt", "superk"
- Teledyne Photometrics:
	> PVCAM cameras "pvcam" [requires the pvcam build tag]
- Thorlabs:
	> ITC4000 series laser diode controllers "itc4000" [requires the usbtmc build tag]

Simulated devices, for development without hardware:
	"sim-laser", "sim-dm", "sim-camera"
A top-level Mock: true swaps every node for its simulated counterpart.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()
	if err := yml.NewEncoder(f).Encode(c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	if err := yml.NewEncoder(os.Stdout).Encode(c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func pversion() {
	fmt.Printf("deviceremotes version %v\n", Version)
}

func run() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal().Err(err).Msg("config unmarshal failed")
	}
	if len(c.Nodes) == 0 {
		log.Fatal().Msg("no nodes configured, nothing to serve")
	}
	nodes, err := BuildNodes(c)
	if err != nil {
		log.Fatal().Err(err).Msg("node construction failed")
	}
	for _, node := range nodes {
		if ini, ok := node.Dev.(device.Initializer); ok {
			if err := ini.Initialize(); err != nil {
				// serve the rest; the node can be retried over /initialize
				log.Error().Err(err).Str("node", node.Name).Msg("initialize failed")
				continue
			}
		}
		log.Info().Str("node", node.Name).Msg("initialized")
	}

	var pub *telemetry.Publisher
	if c.MQTT.Broker != "" {
		interval := time.Duration(c.MQTT.IntervalSec) * time.Second
		pub, err = telemetry.New(c.MQTT.Broker, c.MQTT.Prefix, interval, log)
		if err != nil {
			log.Error().Err(err).Msg("telemetry disabled, broker unreachable")
		} else {
			for _, node := range nodes {
				pub.Add(node.Name, node.Dev)
			}
			pub.Start()
		}
	}

	srv := &http.Server{Addr: c.Addr, Handler: BuildMux(nodes, log)}
	go func() {
		log.Info().Str("addr", c.Addr).Msg("now listening for requests")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down, making devices safe")
	if pub != nil {
		pub.Stop()
	}
	for _, node := range nodes {
		if s, ok := node.Dev.(device.Safer); ok {
			if err := s.MakeSafe(); err != nil {
				log.Error().Err(err).Str("node", node.Name).Msg("make safe failed")
			}
		}
		if s, ok := node.Dev.(device.Shutdowner); ok {
			if err := s.Shutdown(); err != nil {
				log.Error().Err(err).Str("node", node.Name).Msg("shutdown failed")
			}
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	switch strings.ToLower(args[1]) {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		fmt.Fprintln(os.Stderr, "unknown command", args[1])
		os.Exit(1)
	}
}
