package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajor2000/chatcore/internal/types"
)

func drain(t *testing.T, events <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatal("timed out draining events")
			return out
		}
	}
}

func TestRun_EmitsStartTokensCitationsThenDone(t *testing.T) {
	a, err := NewAdapter(2)
	require.NoError(t, err)
	defer a.Close()

	genCh := make(chan string, 2)
	genCh <- "hello "
	genCh <- "world"
	close(genCh)

	evidence := []types.Evidence{{ReferenceNumber: "486", Title: "Verbal Orders"}}
	finalResp := &types.Response{Found: true, Text: "hello world"}

	events := a.Run(context.Background(), genCh, evidence, finalResp)
	got := drain(t, events, time.Second)

	require.NotEmpty(t, got)
	assert.Equal(t, EventStart, got[0].Kind)
	assert.Equal(t, EventDone, got[len(got)-1].Kind)
	assert.Equal(t, finalResp, got[len(got)-1].Response)

	var tokens []string
	var citations int
	for _, ev := range got {
		switch ev.Kind {
		case EventToken:
			tokens = append(tokens, ev.Token)
		case EventCitation:
			citations++
		}
	}
	assert.Equal(t, []string{"hello ", "world"}, tokens)
	assert.Equal(t, 1, citations)
}

func TestRun_ContextCancelledEmitsError(t *testing.T) {
	a, err := NewAdapter(2)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	genCh := make(chan string)

	events := a.Run(ctx, genCh, nil, nil)
	cancel()

	got := drain(t, events, time.Second)
	require.NotEmpty(t, got)
	assert.Equal(t, EventError, got[len(got)-1].Kind)
}

func TestRun_NoEvidenceStillEmitsDone(t *testing.T) {
	a, err := NewAdapter(1)
	require.NoError(t, err)
	defer a.Close()

	genCh := make(chan string)
	close(genCh)

	events := a.Run(context.Background(), genCh, nil, &types.Response{Found: false})
	got := drain(t, events, time.Second)

	require.Len(t, got, 2)
	assert.Equal(t, EventStart, got[0].Kind)
	assert.Equal(t, EventDone, got[1].Kind)
}
