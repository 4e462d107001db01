package blocks

import (
	"github.com/google/uuid"

	"github.com/dnbeesley/wedo-agent/internal/wedo"
)

// State is the extension's connection state: one of Disconnected,
// Connecting or Connected.
type State interface {
	String() string
	isState()
}

type Disconnected struct{}

// Connecting is an outstanding connection attempt.
type Connecting struct {
	Attempt uuid.UUID
}

type Connected struct {
	Attempt uuid.UUID
	Session *wedo.Session
	link    Link
}

func (Disconnected) isState() {}
func (Connecting) isState()   {}
func (Connected) isState()    {}

func (Disconnected) String() string { return "disconnected" }
func (Connecting) String() string   { return "connecting" }
func (Connected) String() string    { return "connected" }
