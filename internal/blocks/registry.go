// Package blocks exposes the hub to a block-programming runtime: a table of
// block opcodes with their argument schema and handlers, plus the
// connection bookkeeping those handlers rely on.
package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownBlock   = errors.New("unknown block")
	ErrDuplicateBlock = errors.New("block already registered")
)

type Kind string

const (
	KindCommand  Kind = "command"
	KindReporter Kind = "reporter"
	KindBoolean  Kind = "Boolean"
	KindHat      Kind = "hat"
)

type ParamType string

const (
	ParamNumber ParamType = "number"
	ParamString ParamType = "string"
	ParamMenu   ParamType = "menu"
)

type Param struct {
	Name    string
	Type    ParamType
	Menu    string // menu name when Type is ParamMenu
	Default interface{}
}

// Result is what a block hands back to the runtime. Done, when set, is
// closed once the block's duration has elapsed.
type Result struct {
	Value interface{}
	Done  <-chan struct{}
}

type Handler func(args Args) Result

type Block struct {
	Opcode  string
	Kind    Kind
	Text    string
	Params  []Param
	Handler Handler
}

// Args are the argument values of one invocation, keyed by parameter name.
type Args map[string]interface{}

// Number casts the named argument the way the runtime does: anything that
// does not parse as a number is 0.
func (a Args) Number(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if v {
			return 1
		}
	}

	return 0
}

func (a Args) String(name string) string {
	switch v := a[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Registry maps opcodes to blocks. Blocks keep their registration order.
type Registry struct {
	blocks map[string]Block
	order  []string
	menus  map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		blocks: map[string]Block{},
		menus:  map[string][]string{},
	}
}

func (r *Registry) Register(b Block) error {
	if _, ok := r.blocks[b.Opcode]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, b.Opcode)
	}

	r.blocks[b.Opcode] = b
	r.order = append(r.order, b.Opcode)
	return nil
}

// MustRegister is Register for block tables built into the program; a
// duplicate opcode panics.
func (r *Registry) MustRegister(b Block) {
	if err := r.Register(b); err != nil {
		panic(err)
	}
}

func (r *Registry) AddMenu(name string, values []string) {
	r.menus[name] = values
}

func (r *Registry) Menu(name string) ([]string, bool) {
	values, ok := r.menus[name]
	return values, ok
}

func (r *Registry) Lookup(opcode string) (Block, bool) {
	b, ok := r.blocks[opcode]
	return b, ok
}

func (r *Registry) Blocks() []Block {
	var list = make([]Block, 0, len(r.order))
	for _, opcode := range r.order {
		list = append(list, r.blocks[opcode])
	}

	return list
}

// Invoke runs opcode with args, filling parameters the caller left out with
// their defaults.
func (r *Registry) Invoke(opcode string, args Args) (Result, error) {
	b, ok := r.blocks[opcode]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownBlock, opcode)
	}

	var filled = make(Args, len(b.Params))
	for k, v := range args {
		filled[k] = v
	}

	for _, p := range b.Params {
		if _, ok := filled[p.Name]; !ok {
			filled[p.Name] = p.Default
		}
	}

	return b.Handler(filled), nil
}
