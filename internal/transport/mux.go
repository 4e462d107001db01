// Package transport carries hub commands and events between a Session and
// the device manager, either over a STOMP broker or a serial link.
package transport

import (
	"sync"

	"github.com/google/uuid"
)

type Handler func(details map[string]interface{})

// Mux fans events out to handlers registered by name.
type Mux struct {
	lock     sync.RWMutex
	handlers map[string]map[uuid.UUID]Handler
}

func NewMux() *Mux {
	return &Mux{
		handlers: map[string]map[uuid.UUID]Handler{},
	}
}

func (m *Mux) On(event string, handler func(details map[string]interface{})) (unsubscribe func()) {
	var u = uuid.New()
	m.lock.Lock()
	defer m.lock.Unlock()
	var list, ok = m.handlers[event]
	if !ok {
		list = map[uuid.UUID]Handler{}
		m.handlers[event] = list
	}

	list[u] = handler
	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		delete(m.handlers[event], u)
	}
}

// Emit calls every handler for event. Handlers may unsubscribe while being
// called.
func (m *Mux) Emit(event string, details map[string]interface{}) {
	m.lock.RLock()
	var handlers = make([]Handler, 0, len(m.handlers[event]))
	for _, h := range m.handlers[event] {
		handlers = append(handlers, h)
	}
	m.lock.RUnlock()

	for _, h := range handlers {
		h(details)
	}
}

func (m *Mux) Len(event string) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.handlers[event])
}
