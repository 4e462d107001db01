package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"

	"github.com/dnbeesley/wedo-agent/internal/wedo"
)

// SerialHub reaches the hub through a bridge on a serial port. Every
// message is one line of JSON in either direction.
type SerialHub struct {
	*Mux
	port      io.ReadWriteCloser
	writeLock sync.Mutex
	done      chan struct{}
}

var _ wedo.Transport = (*SerialHub)(nil)

func OpenSerialHub(c *serial.Config) (*SerialHub, error) {
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", c.Name, err)
	}

	return NewSerialHub(port), nil
}

// NewSerialHub starts listening on port and returns the hub link.
func NewSerialHub(port io.ReadWriteCloser) *SerialHub {
	var sh = &SerialHub{
		Mux:  NewMux(),
		port: port,
		done: make(chan struct{}),
	}

	go sh.listen()
	return sh
}

func (sh *SerialHub) Send(message string, details map[string]interface{}) (err error) {
	body, err := json.Marshal(HubMessage{Message: message, Details: details})
	if err != nil {
		return fmt.Errorf("encode %s: %w", message, err)
	}

	sh.writeLock.Lock()
	defer sh.writeLock.Unlock()
	_, err = sh.port.Write(append(body, '\n'))
	return err
}

func (sh *SerialHub) Close() error {
	return sh.port.Close()
}

// Done is closed after the disconnect event has been emitted.
func (sh *SerialHub) Done() <-chan struct{} {
	return sh.done
}

func (sh *SerialHub) listen() {
	defer close(sh.done)
	var scanner = bufio.NewScanner(sh.port)
	for scanner.Scan() {
		var line = scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg HubMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Debug().Str("line", string(line)).Msg("Ignoring non-JSON line from serial port")
			continue
		}

		sh.Emit(msg.Message, msg.Details)
	}

	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("Serial port read failed")
	}

	sh.Emit(wedo.EventDisconnect, nil)
}
