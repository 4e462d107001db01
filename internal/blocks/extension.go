package blocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dnbeesley/wedo-agent/internal/clock"
	"github.com/dnbeesley/wedo-agent/internal/wedo"
)

// Link is a transport to one hub that can be released.
type Link interface {
	wedo.Transport
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Link, error)
}

type DialFunc func(ctx context.Context) (Link, error)

func (f DialFunc) Dial(ctx context.Context) (Link, error) {
	return f(ctx)
}

type Options struct {
	// Clock drives motor timers and block durations. Defaults to the wall clock.
	Clock clock.Clock
	// OnSensor is passed on to every session.
	OnSensor func(name string, value float64)
	// OnState is called after every connection state change.
	OnState func(State)
}

// Extension owns the connection to a hub and the blocks that drive it.
type Extension struct {
	dialer   Dialer
	clock    clock.Clock
	onSensor func(name string, value float64)
	onState  func(State)

	lock  sync.Mutex
	state State
}

func NewExtension(dialer Dialer, opts Options) *Extension {
	var c = opts.Clock
	if c == nil {
		c = clock.New()
	}

	return &Extension{
		dialer:   dialer,
		clock:    c,
		onSensor: opts.OnSensor,
		onState:  opts.OnState,
		state:    Disconnected{},
	}
}

func (e *Extension) State() State {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.state
}

// Session returns the connected hub session, if any.
func (e *Extension) Session() (*wedo.Session, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if c, ok := e.state.(Connected); ok {
		return c.Session, true
	}

	return nil, false
}

// Connect starts a new connection attempt and returns its token. Any
// earlier attempt is superseded: its result will be discarded. A connected
// hub is dropped first. Failures are logged and leave the extension
// disconnected.
func (e *Extension) Connect(ctx context.Context) uuid.UUID {
	var attempt = uuid.New()

	e.lock.Lock()
	var previous = e.state
	e.state = Connecting{Attempt: attempt}
	e.lock.Unlock()

	if c, ok := previous.(Connected); ok {
		c.Session.Close()
		e.release(c.link)
	}

	log.Info().Str("attempt", attempt.String()).Msg("Connecting to hub")
	e.notify(Connecting{Attempt: attempt})
	go e.dial(ctx, attempt)
	return attempt
}

// Disconnect abandons any connection attempt and drops the connected hub.
func (e *Extension) Disconnect() {
	e.lock.Lock()
	var previous = e.state
	e.state = Disconnected{}
	e.lock.Unlock()

	switch c := previous.(type) {
	case Disconnected:
		return
	case Connected:
		c.Session.Close()
		e.release(c.link)
	}

	e.notify(Disconnected{})
}

func (e *Extension) dial(ctx context.Context, attempt uuid.UUID) {
	link, err := e.dialer.Dial(ctx)

	e.lock.Lock()
	var current, ok = e.state.(Connecting)
	if !ok || current.Attempt != attempt {
		e.lock.Unlock()
		log.Debug().Str("attempt", attempt.String()).Msg("Discarding superseded connection attempt")
		if link != nil {
			e.release(link)
		}
		return
	}

	if err != nil {
		e.state = Disconnected{}
		e.lock.Unlock()
		log.Warn().Err(err).Str("attempt", attempt.String()).Msg("Failed to connect to hub")
		e.notify(Disconnected{})
		return
	}

	var session = wedo.NewSession(link, wedo.Options{
		Clock:    e.clock,
		OnSensor: e.onSensor,
	})
	var connected = Connected{Attempt: attempt, Session: session, link: link}
	e.state = connected
	e.lock.Unlock()

	log.Info().
		Str("attempt", attempt.String()).
		Str("session", session.ID().String()).
		Msg("Connected to hub")
	e.notify(connected)
	go e.watch(connected)
}

// watch returns the extension to Disconnected when the hub goes away.
func (e *Extension) watch(c Connected) {
	<-c.Session.Done()

	e.lock.Lock()
	var current, ok = e.state.(Connected)
	var stillCurrent = ok && current.Attempt == c.Attempt
	if stillCurrent {
		e.state = Disconnected{}
	}
	e.lock.Unlock()

	if stillCurrent {
		log.Info().Str("session", c.Session.ID().String()).Msg("Hub disconnected")
		e.release(c.link)
		e.notify(Disconnected{})
	}
}

func (e *Extension) release(link Link) {
	if err := link.Close(); err != nil {
		log.Debug().Err(err).Msg("Error closing hub link")
	}
}

func (e *Extension) notify(s State) {
	if e.onState != nil {
		e.onState(s)
	}
}
