// Package relay republishes hub telemetry on NATS.
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/dnbeesley/wedo-agent/internal/blocks"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// Relay publishes sensor readings to <prefix>.sensor.<name> and connection
// state changes to <prefix>.connection.
type Relay struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

func New(pub Publisher, prefix string) *Relay {
	return &Relay{
		pub:    pub,
		prefix: prefix,
		now:    time.Now,
	}
}

// Connect dials NATS with the agent's connection options.
func Connect(url string, name string, reconnectWait time.Duration, maxReconnects int) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}

	return nc, nil
}

type sensorMessage struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

type connectionMessage struct {
	State   string    `json:"state"`
	Attempt string    `json:"attempt,omitempty"`
	Session string    `json:"session,omitempty"`
	At      time.Time `json:"at"`
}

// Sensor is a wedo.Options OnSensor hook.
func (r *Relay) Sensor(name string, value float64) {
	r.publish(fmt.Sprintf("%s.sensor.%s", r.prefix, name), sensorMessage{
		Name:  name,
		Value: value,
		At:    r.now().UTC(),
	})
}

// State is a blocks.Options OnState hook.
func (r *Relay) State(s blocks.State) {
	var msg = connectionMessage{
		State: s.String(),
		At:    r.now().UTC(),
	}

	switch v := s.(type) {
	case blocks.Connecting:
		msg.Attempt = v.Attempt.String()
	case blocks.Connected:
		msg.Attempt = v.Attempt.String()
		msg.Session = v.Session.ID().String()
	}

	r.publish(r.prefix+".connection", msg)
}

func (r *Relay) publish(subject string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to encode telemetry")
		return
	}

	if err := r.pub.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("Failed to publish telemetry")
	}
}
