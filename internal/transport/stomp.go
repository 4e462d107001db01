package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
)

type ACK int

const (
	AUTO   ACK = 1
	CLIENT ACK = 2
)

var ErrClosed = errors.New("stomp connection closed")

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 5 * time.Second

// WebSocket is the part of *websocket.Conn a StompConnection uses.
type WebSocket interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Reader(ctx context.Context) (websocket.MessageType, io.Reader, error)
	Close(code websocket.StatusCode, reason string) error
}

type StompConnection struct {
	// WriteTimeout bounds every frame write. A write that times out closes
	// the websocket, which ends Listen.
	WriteTimeout time.Duration

	ctx           context.Context
	conn          WebSocket
	lock          sync.RWMutex
	subscriptions map[uuid.UUID]chan Frame
	closed        bool
}

// Frame is a single STOMP frame.
type Frame struct {
	Body    []byte
	Headers map[string]string
	Verb    string
}

func (f *Frame) Bytes() []byte {
	return []byte(f.String())
}

func (f *Frame) String() string {
	var builder = strings.Builder{}
	builder.WriteString(f.Verb + "\n")
	for k, v := range f.Headers {
		builder.WriteString(k + ":" + v + "\n")
	}

	builder.WriteString("\n")
	if len(f.Body) > 0 {
		builder.WriteString(string(f.Body))
	}

	builder.WriteString("\x00\n")
	return builder.String()
}

// DialStomp opens a websocket to url and speaks STOMP over it. ctx bounds
// the handshake only.
func DialStomp(ctx context.Context, url string) (sc *StompConnection, err error) {
	var dialOptions = websocket.DialOptions{
		HTTPClient: http.DefaultClient,
	}

	conn, _, err := websocket.Dial(ctx, url, &dialOptions)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return NewStompConnection(conn), nil
}

// NewStompConnection speaks STOMP over an open websocket.
func NewStompConnection(conn WebSocket) *StompConnection {
	return &StompConnection{
		WriteTimeout:  DefaultWriteTimeout,
		ctx:           context.Background(),
		conn:          conn,
		subscriptions: map[uuid.UUID]chan Frame{},
	}
}

// Subscribe registers for frames on dest. The returned channel is closed
// by Unsubscribe or when the connection stops listening.
func (sc *StompConnection) Subscribe(dest string) (
	c chan Frame,
	u uuid.UUID,
	err error,
) {
	u, err = uuid.NewUUID()
	if err != nil {
		return nil, uuid.UUID{}, err
	}

	c = make(chan Frame, 16)
	sc.lock.Lock()
	if sc.closed {
		sc.lock.Unlock()
		return nil, u, ErrClosed
	}

	sc.subscriptions[u] = c
	sc.lock.Unlock()

	if err = sc.subscribe(dest, u.String(), AUTO); err != nil {
		sc.lock.Lock()
		delete(sc.subscriptions, u)
		sc.lock.Unlock()
		return nil, u, fmt.Errorf("subscribe %s: %w", dest, err)
	}

	return c, u, nil
}

// Unsubscribe closes the subscription's channel even when the UNSUBSCRIBE
// frame cannot be written.
func (sc *StompConnection) Unsubscribe(u uuid.UUID) (err error) {
	err = sc.unsubscribe(u.String())

	sc.lock.Lock()
	if c, ok := sc.subscriptions[u]; ok {
		close(c)
		delete(sc.subscriptions, u)
	}
	sc.lock.Unlock()

	return err
}

func (sc *StompConnection) Connect() (err error) {
	var frame = Frame{
		Verb: "CONNECT",
		Headers: map[string]string{
			"accept-version": "1.0,1.1,2.0",
		},
	}

	return sc.write(&frame)
}

func (sc *StompConnection) Disconnect(receipt uuid.UUID) (err error) {
	var frame = Frame{
		Verb: "DISCONNECT",
		Headers: map[string]string{
			"receipt": receipt.String(),
		},
	}

	return sc.write(&frame)
}

// Close sends DISCONNECT and closes the websocket.
func (sc *StompConnection) Close() error {
	var receipt = uuid.New()
	if err := sc.Disconnect(receipt); err != nil {
		log.Debug().Err(err).Msg("STOMP disconnect failed")
	}

	return sc.conn.Close(websocket.StatusNormalClosure, "")
}

// Listen routes incoming frames to their subscriptions until the socket
// fails or ctx ends. All subscription channels are closed on return.
func (sc *StompConnection) Listen(ctx context.Context) error {
	defer sc.closeSubscriptions()
	for {
		messageType, reader, err := sc.conn.Reader(ctx)
		if err != nil {
			return err
		}

		var frame = parseFrame(messageType, reader)
		if frame.Verb == "ERROR" {
			log.Warn().Str("message", frame.Headers["message"]).Msg("STOMP error frame")
			continue
		}

		subscriptionID, ok := frame.Headers["subscription"]
		if !ok {
			continue
		}

		sc.deliver(subscriptionID, frame)
	}
}

func (sc *StompConnection) Send(
	dest string,
	body []byte,
	contentType string,
	transactionID string,
) (err error) {
	if len(contentType) == 0 {
		contentType = "text/plain"
	}

	var frame = Frame{
		Verb: "SEND",
		Headers: map[string]string{
			"destination":    dest,
			"content-type":   contentType,
			"content-length": strconv.Itoa(len(body)),
		},
		Body: body,
	}

	if len(transactionID) > 0 {
		frame.Headers["transaction"] = transactionID
	}

	return sc.write(&frame)
}

func (sc *StompConnection) write(frame *Frame) error {
	var timeout = sc.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	ctx, cancel := context.WithTimeout(sc.ctx, timeout)
	defer cancel()
	if err := sc.conn.Write(ctx, websocket.MessageText, frame.Bytes()); err != nil {
		return fmt.Errorf("write %s frame: %w", frame.Verb, err)
	}

	return nil
}

func parseFrame(
	messageType websocket.MessageType,
	ioReader io.Reader,
) (frame Frame) {
	var headers = map[string]string{}
	var scanner = bufio.NewScanner(ioReader)
	scanner.Split(bufio.ScanLines)
	var verb string
	for scanner.Scan() {
		var text = scanner.Text()
		if len(text) == 0 {
			if verb == "" {
				// heart-beat or leading newline
				continue
			}

			break
		}

		if verb == "" {
			verb = strings.TrimSpace(text)
			continue
		}

		var parts = strings.SplitN(text, ":", 2)
		if len(parts) > 1 {
			var key = strings.ToLower(strings.TrimSpace(parts[0]))
			var value = strings.TrimSpace(parts[1])
			headers[key] = value
		}
	}

	var bodyBuffer = bytes.NewBuffer([]byte{})
	var first = true
	for scanner.Scan() {
		if !first {
			bodyBuffer.WriteByte('\n')
		}

		bodyBuffer.Write(scanner.Bytes())
		first = false
	}

	var body = bytes.TrimRight(bodyBuffer.Bytes(), "\x00\n")
	var length uint64 = 0
	var contentLength, ok = headers["content-length"]
	if ok {
		var err error
		length, err = strconv.ParseUint(contentLength, 10, 64)
		if err != nil {
			log.Debug().Str("content-length", contentLength).Msg("Error parsing value content-length header")
		}
	}

	if length > 0 && length <= uint64(len(bodyBuffer.Bytes())) {
		body = bodyBuffer.Bytes()[:length]
	}

	return Frame{
		Verb:    verb,
		Headers: headers,
		Body:    body,
	}
}

// deliver hands frame to its subscription without blocking the reader. The
// read lock is held across the send so Unsubscribe cannot close the channel
// underneath it.
func (sc *StompConnection) deliver(subscriptionID string, frame Frame) {
	u, err := uuid.Parse(subscriptionID)
	if err != nil {
		log.Debug().Str("subscription", subscriptionID).Msg("Ignoring subscription ID. Only valid UUID are processed")
		return
	}

	sc.lock.RLock()
	defer sc.lock.RUnlock()
	c, ok := sc.subscriptions[u]
	if !ok {
		return
	}

	select {
	case c <- frame:
	default:
		log.Warn().Str("subscription", subscriptionID).Msg("Subscriber is not keeping up, dropping frame")
	}
}

func (sc *StompConnection) closeSubscriptions() {
	sc.lock.Lock()
	defer sc.lock.Unlock()
	sc.closed = true
	for u, c := range sc.subscriptions {
		close(c)
		delete(sc.subscriptions, u)
	}
}

func (sc *StompConnection) subscribe(
	dest string,
	idx string,
	ack ACK,
) (err error) {
	var ackStr string
	switch ack {
	case AUTO:
		ackStr = "auto"
	case CLIENT:
		ackStr = "client"
	}

	var frame = Frame{
		Verb: "SUBSCRIBE",
		Headers: map[string]string{
			"id":          idx,
			"destination": dest,
			"ack":         ackStr,
		},
	}

	return sc.write(&frame)
}

func (sc *StompConnection) unsubscribe(
	idx string,
) (err error) {
	var frame = Frame{
		Verb: "UNSUBSCRIBE",
		Headers: map[string]string{
			"id": idx,
		},
	}

	return sc.write(&frame)
}
