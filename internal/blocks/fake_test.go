package blocks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dnbeesley/wedo-agent/internal/clock"
	"github.com/dnbeesley/wedo-agent/internal/transport"
	"github.com/dnbeesley/wedo-agent/internal/wedo"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

// fakeLink records commands and raises events through a real Mux.
type fakeLink struct {
	*transport.Mux
	lock   sync.Mutex
	sent   []transport.HubMessage
	closed bool
}

var _ Link = (*fakeLink)(nil)

func newFakeLink() *fakeLink {
	return &fakeLink{Mux: transport.NewMux()}
}

func (f *fakeLink) Send(message string, details map[string]interface{}) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.sent = append(f.sent, transport.HubMessage{Message: message, Details: details})
	return nil
}

func (f *fakeLink) Close() error {
	f.lock.Lock()
	var already = f.closed
	f.closed = true
	f.lock.Unlock()
	if !already {
		f.Emit(wedo.EventDisconnect, nil)
	}

	return nil
}

func (f *fakeLink) isClosed() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.closed
}

func (f *fakeLink) messages() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	var names []string
	for _, m := range f.sent {
		names = append(names, m.Message)
	}

	return names
}

func (f *fakeLink) last() transport.HubMessage {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeLink) sensor(name string, value float64) {
	f.Emit(wedo.EventSensorChanged, map[string]interface{}{"name": name, "value": value})
}

type dialResult struct {
	link Link
	err  error
}

// queueDialer hands out one queued result per Dial call.
type queueDialer struct {
	results chan dialResult
}

func newQueueDialer() *queueDialer {
	return &queueDialer{results: make(chan dialResult, 4)}
}

func (d *queueDialer) Dial(ctx context.Context) (Link, error) {
	select {
	case r := <-d.results:
		return r.link, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type harness struct {
	ext    *Extension
	clock  *clock.Mock
	dialer *queueDialer
	states chan State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var h = &harness{
		clock:  clock.NewMock(time.Unix(0, 0)),
		dialer: newQueueDialer(),
		states: make(chan State, 16),
	}

	h.ext = NewExtension(h.dialer, Options{
		Clock:   h.clock,
		OnState: func(s State) { h.states <- s },
	})
	return h
}

func (h *harness) waitState(t *testing.T, want string) State {
	t.Helper()
	for {
		select {
		case s := <-h.states:
			if s.String() == want {
				return s
			}
		case <-time.After(time.Second):
			t.Fatalf("state %q not reached, currently %q", want, h.ext.State())
		}
	}
}

// connect brings the harness to Connected on a fresh fake link.
func (h *harness) connect(t *testing.T) *fakeLink {
	t.Helper()
	var link = newFakeLink()
	h.dialer.results <- dialResult{link: link}
	h.ext.Connect(context.Background())
	h.waitState(t, "connected")
	_, ok := h.ext.Session()
	require.True(t, ok)
	return link
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
