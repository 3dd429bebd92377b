// Package interfaces defines the small, per-concern contracts the
// Orchestrator depends on. Each interface is sized to one external
// system (index, reranker, model, audit sink) rather than one fat
// "backend" interface, per the Design Notes' "small per-family
// interface, not one god-interface" redesign flag.
package interfaces

import (
	"context"

	"github.com/sajor2000/chatcore/internal/types"
)

// PolicyIndex is the Retrieval Stage's dependency on the vector/keyword
// index. Implementations translate AppliesTo into a structured filter
// before issuing the similarity search.
type PolicyIndex interface {
	Search(ctx context.Context, query string, appliesTo []string, topK int) ([]types.SearchResult, error)
}

// Reranker is the Reranker stage's dependency on a cross-encoder
// scoring service.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.SearchResult, topN int) ([]types.RerankResult, error)
}

// Generator is the Generator stage's dependency on a chat completion
// backend. Stream delivers incremental text chunks on ch and closes it
// when generation finishes or ctx is cancelled.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error)
	Stream(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32, ch chan<- string) error
}

// GroundingCritique is the Citation & Safety Gate's dependency on a
// self-reflective critique pass distinct from the primary Generator
// (the spec allows, but doesn't require, a second model for this).
type GroundingCritique interface {
	Critique(ctx context.Context, answer string, evidence []types.Evidence) (ungroundedClaims int, err error)
}

// AuditSink is the append-only audit trail dependency, decoupled from
// the orchestrator's request path: callers enqueue and must not block
// the caller's response on persistence succeeding.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// AuditRecord is one logged chat turn.
type AuditRecord struct {
	RequestID        string
	SessionID        string
	Question         string
	AnswerFound      bool
	Confidence       types.ConfidenceLevel
	SafetyFlags      []string
	NeedsHumanReview bool
	PipelineVariant  string
	DurationMS       int64
	Metrics          []types.StageMetric
}

// Cache is the shared contract for each of the three cache families
// (expansion, response, search). V is the stored value type; keys are
// always pre-normalized strings so every family shares one eviction
// and expiry mechanism.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Invalidate()
	Len() int
}
