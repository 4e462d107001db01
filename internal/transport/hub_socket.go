package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dnbeesley/wedo-agent/internal/wedo"
)

// HubMessage is the JSON body exchanged with the device manager in both
// directions.
type HubMessage struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type stompClient interface {
	Send(dest string, body []byte, contentType string, transactionID string) error
	Subscribe(dest string) (chan Frame, uuid.UUID, error)
	Unsubscribe(u uuid.UUID) error
}

// HubSocket is a device-manager socket carried over a STOMP broker: commands
// are sent to one destination and hub events arrive on another.
type HubSocket struct {
	*Mux
	stomp        stompClient
	commandDest  string
	subscription uuid.UUID
	done         chan struct{}
	release      func() error
}

var _ wedo.Transport = (*HubSocket)(nil)

// NewHubSocket subscribes to eventDest and starts relaying its events.
// When the subscription ends a disconnect event is emitted.
func NewHubSocket(stomp stompClient, commandDest string, eventDest string) (*HubSocket, error) {
	c, u, err := stomp.Subscribe(eventDest)
	if err != nil {
		return nil, err
	}

	var h = &HubSocket{
		Mux:          NewMux(),
		stomp:        stomp,
		commandDest:  commandDest,
		subscription: u,
		done:         make(chan struct{}),
	}

	go h.pump(c)
	return h, nil
}

func (h *HubSocket) Send(message string, details map[string]interface{}) error {
	body, err := json.Marshal(HubMessage{Message: message, Details: details})
	if err != nil {
		return fmt.Errorf("encode %s: %w", message, err)
	}

	return h.stomp.Send(h.commandDest, body, "application/json", "")
}

// Close stops listening for hub events and releases the broker connection
// when the socket owns it.
func (h *HubSocket) Close() error {
	var err = h.stomp.Unsubscribe(h.subscription)
	if h.release != nil {
		if releaseErr := h.release(); err == nil {
			err = releaseErr
		}
	}

	return err
}

// Done is closed after the disconnect event has been emitted.
func (h *HubSocket) Done() <-chan struct{} {
	return h.done
}

func (h *HubSocket) pump(c chan Frame) {
	defer close(h.done)
	for frame := range c {
		var msg HubMessage
		if err := json.Unmarshal(frame.Body, &msg); err != nil {
			log.Warn().Err(err).Msg("Could not process hub event body")
			continue
		}

		h.Emit(msg.Message, msg.Details)
	}

	h.Emit(wedo.EventDisconnect, nil)
}
