// Package agent serves block requests arriving from the broker.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dnbeesley/wedo-agent/internal/blocks"
	"github.com/dnbeesley/wedo-agent/internal/transport"
)

// Sender is satisfied by *transport.StompConnection.
type Sender interface {
	Send(dest string, body []byte, contentType string, transactionID string) error
}

// Registry is satisfied by *blocks.Registry.
type Registry interface {
	Invoke(opcode string, args blocks.Args) (blocks.Result, error)
	Blocks() []blocks.Block
	Menu(name string) ([]string, bool)
}

type Agent struct {
	registry     Registry
	sender       Sender
	responseDest string

	pending sync.WaitGroup
}

func New(registry Registry, sender Sender, responseDest string) *Agent {
	return &Agent{
		registry:     registry,
		sender:       sender,
		responseDest: responseDest,
	}
}

// Run handles request frames until frames is closed or ctx ends. Responses
// to timed blocks still outstanding are sent before Run returns, unless ctx
// ended first.
func (a *Agent) Run(ctx context.Context, frames <-chan transport.Frame) error {
	defer a.pending.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}

			a.handle(ctx, frame)
		}
	}
}

func (a *Agent) handle(ctx context.Context, frame transport.Frame) {
	var req BlockRequest
	if err := json.Unmarshal(frame.Body, &req); err != nil {
		log.Warn().Err(err).Str("destination", frame.Headers["destination"]).Msg("Could not process block request")
		return
	}

	log.Debug().Str("id", req.Id).Str("opcode", req.Opcode).Msg("Running block")
	res, err := a.registry.Invoke(req.Opcode, blocks.Args(req.Args))
	if err != nil {
		a.respond(BlockResponse{Id: req.Id, Error: err.Error()})
		return
	}

	if res.Done == nil {
		a.respond(BlockResponse{Id: req.Id, Value: res.Value})
		return
	}

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		select {
		case <-res.Done:
			a.respond(BlockResponse{Id: req.Id, Value: res.Value})
		case <-ctx.Done():
		}
	}()
}

func (a *Agent) respond(res BlockResponse) {
	body, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Str("id", res.Id).Msg("Could not encode block response")
		return
	}

	if err = a.sender.Send(a.responseDest, body, "application/json", ""); err != nil {
		log.Warn().Err(err).Str("id", res.Id).Msg("Error writing block response")
	}
}

// Catalog describes every registered block with its menu options.
func (a *Agent) Catalog() []BlockInfo {
	var list []BlockInfo
	for _, b := range a.registry.Blocks() {
		var info = BlockInfo{
			Opcode: b.Opcode,
			Kind:   string(b.Kind),
			Text:   b.Text,
			Params: make([]ParamInfo, 0, len(b.Params)),
		}

		for _, p := range b.Params {
			var param = ParamInfo{
				Name:    p.Name,
				Type:    string(p.Type),
				Menu:    p.Menu,
				Default: p.Default,
			}
			if p.Menu != "" {
				param.Options, _ = a.registry.Menu(p.Menu)
			}

			info.Params = append(info.Params, param)
		}

		list = append(list, info)
	}

	return list
}

// PublishCatalog sends Catalog to dest as a JSON array.
func (a *Agent) PublishCatalog(dest string) error {
	body, err := json.Marshal(a.Catalog())
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err = a.sender.Send(dest, body, "application/json", ""); err != nil {
		return fmt.Errorf("publish catalog to %s: %w", dest, err)
	}

	return nil
}
