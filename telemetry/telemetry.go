// Package telemetry periodically publishes device status over MQTT.
// It is optional; a server with no broker configured never loads it.
package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/mickp/deviceremotes/generichttp/camera"
	"github.com/mickp/deviceremotes/generichttp/dm"
	"github.com/mickp/deviceremotes/generichttp/laser"
)

// snapshotFunc reads one device's status fields
type snapshotFunc func() map[string]interface{}

// Publisher publishes a JSON status document for each registered
// device to <prefix>/<name>/status at a fixed interval
type Publisher struct {
	mu sync.Mutex

	client   MQTT.Client
	prefix   string
	interval time.Duration
	log      zerolog.Logger

	devices map[string]snapshotFunc
	stop    chan struct{}
}

// New connects to the broker and returns a publisher.  The caller must
// Start it.
func New(brokerURI, prefix string, interval time.Duration, log zerolog.Logger) (*Publisher, error) {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(brokerURI)
	opts.SetClientID("deviceremotes-" + prefix)
	opts.SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ MQTT.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	}
	opts.OnConnect = func(MQTT.Client) {
		log.Info().Str("broker", brokerURI).Msg("mqtt connected")
	}
	client := MQTT.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return NewWithClient(client, prefix, interval, log), nil
}

// NewWithClient wraps an already connected client; used by tests
func NewWithClient(client MQTT.Client, prefix string, interval time.Duration, log zerolog.Logger) *Publisher {
	return &Publisher{
		client:   client,
		prefix:   prefix,
		interval: interval,
		log:      log,
		devices:  map[string]snapshotFunc{},
		stop:     make(chan struct{}),
	}
}

// Add registers a device under name.  What lands in the status document
// depends on which capabilities the device has.
func (p *Publisher) Add(name string, dev interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices[name] = func() map[string]interface{} {
		doc := map[string]interface{}{}
		if c, ok := dev.(laser.Controller); ok {
			if on, err := c.GetEmission(); err == nil {
				doc["emission"] = on
			}
		}
		if c, ok := dev.(laser.PowerController); ok {
			if mw, err := c.GetPower(); err == nil {
				doc["power_mw"] = mw
			}
		}
		if d, ok := dev.(dm.PatternApplier); ok {
			doc["actuators"] = d.NumActuators()
		}
		if t, ok := dev.(camera.ThermalManager); ok {
			if temp, err := t.GetTemperature(); err == nil {
				doc["sensor_temp_c"] = temp
			}
		}
		return doc
	}
}

// publishAll takes one snapshot of every device and publishes it
func (p *Publisher) publishAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, snap := range p.devices {
		doc := snap()
		doc["time"] = time.Now().UTC().Format(time.RFC3339)
		payload, err := json.Marshal(doc)
		if err != nil {
			p.log.Error().Err(err).Str("device", name).Msg("status encode failed")
			continue
		}
		topic := p.prefix + "/" + name + "/status"
		if token := p.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			p.log.Warn().Err(token.Error()).Str("topic", topic).Msg("status publish failed")
		}
	}
}

// Start begins periodic publication in a background goroutine
func (p *Publisher) Start() {
	go func() {
		t := time.NewTicker(p.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				p.publishAll()
			case <-p.stop:
				return
			}
		}
	}()
}

// Stop ends publication and disconnects from the broker
func (p *Publisher) Stop() {
	close(p.stop)
	p.client.Disconnect(250)
}
