// Package stream implements the Streaming Adapter: turns the
// Generator's incremental text channel into the ordered SSE-style
// event sequence this package defines (start, token*, citation*, done |
// error), and bounds how many concurrent streaming sessions the
// process will serve via a worker pool, grounded on the teacher's
// channel-based streaming pattern (ollama.go's ChatStream) generalized
// from a single chat backend to the full pipeline's output.
package stream

import (
	"context"

	"github.com/panjf2000/ants/v2"

	"github.com/sajor2000/chatcore/internal/logger"
	"github.com/sajor2000/chatcore/internal/types"
)

// EventKind names one SSE-style event in a streamed response.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventToken    EventKind = "token"
	EventCitation EventKind = "citation"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
)

// Event is one unit sent to the client over the stream.
type Event struct {
	Kind     EventKind         `json:"kind"`
	Token    string            `json:"token,omitempty"`
	Citation *types.Evidence   `json:"citation,omitempty"`
	Response *types.Response   `json:"response,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Adapter bounds concurrent streaming sessions with a worker pool so
// a burst of stream requests can't exhaust goroutines or downstream
// generator connections.
type Adapter struct {
	pool *ants.Pool
}

// NewAdapter builds an Adapter allowing at most maxConcurrent
// in-flight streaming sessions.
func NewAdapter(maxConcurrent int) (*Adapter, error) {
	pool, err := ants.NewPool(maxConcurrent)
	if err != nil {
		return nil, err
	}
	return &Adapter{pool: pool}, nil
}

// Run submits a streaming session to the pool: it emits start, relays
// tokens from generatorCh as they arrive, emits one citation event per
// piece of evidence once generation completes, then done (or error).
// events is closed when the session finishes.
func (a *Adapter) Run(ctx context.Context, generatorCh <-chan string, evidence []types.Evidence, finalResp *types.Response) <-chan Event {
	events := make(chan Event, 8)

	err := a.pool.Submit(func() {
		defer close(events)

		events <- Event{Kind: EventStart}

		for {
			select {
			case tok, ok := <-generatorCh:
				if !ok {
					goto drained
				}
				select {
				case events <- Event{Kind: EventToken, Token: tok}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				events <- Event{Kind: EventError, Error: ctx.Err().Error()}
				return
			}
		}

	drained:
		for i := range evidence {
			select {
			case events <- Event{Kind: EventCitation, Citation: &evidence[i]}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case events <- Event{Kind: EventDone, Response: finalResp}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		logger.Errorf(ctx, "stream adapter: pool submit failed: %v", err)
		close(events)
	}

	return events
}

// Close releases the adapter's worker pool.
func (a *Adapter) Close() {
	a.pool.Release()
}
