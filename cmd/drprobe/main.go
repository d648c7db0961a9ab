/*drprobe checks connectivity to every node in a deviceremotes config
without starting the server.  It dials each address the way the drivers
would and reports reachable / unreachable per node.
*/
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/tarm/serial"
	"github.com/theckman/yacspin"

	"github.com/mickp/deviceremotes/comm"
)

// node is the subset of the server's config that probing needs
type node struct {
	Addr     string `koanf:"Addr"`
	Endpoint string `koanf:"Endpoint"`
	Serial   bool   `koanf:"Serial"`
	Type     string `koanf:"Type"`
}

type config struct {
	Nodes []node `koanf:"Nodes"`
}

const dialTimeout = 3 * time.Second

// probe dials one node the way its driver would
func probe(n node) error {
	if n.Serial {
		conn, err := serial.OpenPort(&serial.Config{
			Name:        n.Addr,
			Baud:        115200,
			ReadTimeout: dialTimeout,
		})
		if err != nil {
			return err
		}
		return conn.Close()
	}
	conn, err := comm.TCPSetup(n.Addr, dialTimeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

func main() {
	cfgPath := "deviceremotes.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(cfgPath), yaml.Parser()); err != nil {
		fmt.Fprintf(os.Stderr, "error loading config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}
	c := config{}
	if err := k.Unmarshal("", &c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(c.Nodes) == 0 {
		fmt.Println("no nodes configured, nothing to probe")
		return
	}

	unreachable := 0
	for _, n := range c.Nodes {
		if strings.HasPrefix(strings.ToLower(n.Type), "sim-") {
			fmt.Printf("  %s: simulated, skipped\n", n.Endpoint)
			continue
		}
		spinner, err := yacspin.New(yacspin.Config{
			Frequency:         100 * time.Millisecond,
			CharSet:           yacspin.CharSets[11],
			Suffix:            " " + n.Endpoint,
			SuffixAutoColon:   true,
			Message:           "dialing " + n.Addr,
			StopCharacter:     "✓",
			StopColors:        []string{"fgGreen"},
			StopFailCharacter: "✗",
			StopFailColors:    []string{"fgRed"},
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		spinner.Start()
		if err := probe(n); err != nil {
			spinner.StopFailMessage(fmt.Sprintf("unreachable: %v", err))
			spinner.StopFail()
			unreachable++
			continue
		}
		spinner.StopMessage("reachable")
		spinner.Stop()
	}
	if unreachable > 0 {
		fmt.Printf("%d of %d nodes unreachable\n", unreachable, len(c.Nodes))
		os.Exit(1)
	}
}
