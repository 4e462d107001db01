package transport

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"
)

// StompDialer reaches the device manager through a STOMP broker.
type StompDialer struct {
	URL          string
	CommandDest  string
	EventDest    string
	WriteTimeout time.Duration
}

// Dial opens a dedicated broker connection for one hub session. The
// connection lives until the returned socket is closed.
func (d StompDialer) Dial(ctx context.Context) (*HubSocket, error) {
	sc, err := DialStomp(ctx, d.URL)
	if err != nil {
		return nil, err
	}
	if d.WriteTimeout > 0 {
		sc.WriteTimeout = d.WriteTimeout
	}

	if err = sc.Connect(); err != nil {
		sc.Close()
		return nil, err
	}

	go func() {
		if err := sc.Listen(context.Background()); err != nil {
			log.Debug().Err(err).Str("url", d.URL).Msg("Hub broker connection ended")
		}
	}()

	h, err := NewHubSocket(sc, d.CommandDest, d.EventDest)
	if err != nil {
		sc.Close()
		return nil, err
	}

	h.release = sc.Close
	return h, nil
}

// SerialDialer reaches the hub through a serial bridge.
type SerialDialer struct {
	Name string
	Baud int
}

func (d SerialDialer) Dial(ctx context.Context) (*SerialHub, error) {
	if d.Name == "" {
		return nil, errors.New("no serial port configured")
	}

	var config = &serial.Config{
		Name: d.Name,
		Baud: d.Baud,
		Size: 8,
	}

	var opened = make(chan struct{})
	var sh *SerialHub
	var err error
	go func() {
		defer close(opened)
		sh, err = OpenSerialHub(config)
	}()

	select {
	case <-opened:
		return sh, err
	case <-ctx.Done():
		go func() {
			<-opened
			if sh != nil {
				sh.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
