package wedo

import (
	"errors"
	"sync"
)

type sentCommand struct {
	message string
	details map[string]interface{}
}

// fakeTransport records sent commands and lets tests raise events.
type fakeTransport struct {
	lock     sync.Mutex
	sent     []sentCommand
	handlers map[string]map[int]func(map[string]interface{})
	nextID   int
	down     bool
}

var _ Transport = (*fakeTransport)(nil)

var errHubGone = errors.New("hub gone")

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers: map[string]map[int]func(map[string]interface{}){},
	}
}

func (f *fakeTransport) Send(message string, details map[string]interface{}) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.down {
		return errHubGone
	}

	f.sent = append(f.sent, sentCommand{message: message, details: details})
	return nil
}

func (f *fakeTransport) On(event string, handler func(map[string]interface{})) func() {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.handlers[event] == nil {
		f.handlers[event] = map[int]func(map[string]interface{}){}
	}

	f.nextID++
	var id = f.nextID
	f.handlers[event][id] = handler
	return func() {
		f.lock.Lock()
		defer f.lock.Unlock()
		delete(f.handlers[event], id)
	}
}

func (f *fakeTransport) emit(event string, details map[string]interface{}) {
	f.lock.Lock()
	var handlers []func(map[string]interface{})
	for _, h := range f.handlers[event] {
		handlers = append(handlers, h)
	}
	f.lock.Unlock()

	for _, h := range handlers {
		h(details)
	}
}

func (f *fakeTransport) subscriptions() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	var n int
	for _, hs := range f.handlers {
		n += len(hs)
	}

	return n
}

func (f *fakeTransport) messages() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	var names = make([]string, 0, len(f.sent))
	for _, c := range f.sent {
		names = append(names, c.message)
	}

	return names
}

func (f *fakeTransport) last() sentCommand {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) reset() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.sent = nil
}
