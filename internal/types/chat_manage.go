// Package types holds the wire and domain types shared across every
// pipeline stage: queries, search/rerank results, responses, and the
// event-chain vocabulary the Orchestrator composes into pipeline
// variants.
package types

// EventType names one stage invocation in a pipeline variant, mirroring
// the event-chain composition idiom: a variant is just an ordered list
// of EventTypes the Orchestrator walks. The Orchestrator's StageMetric
// entries use these as their Stage value, so a metrics consumer can
// look a stage name up in Pipeline to see where it falls in sequence.
type EventType string

const (
	EventGate           EventType = "gate"
	EventCacheCheck     EventType = "cache_check"
	EventExpand         EventType = "expand"
	EventPolicyHints    EventType = "policy_hints"
	EventRetrieve       EventType = "retrieve"
	EventQualityRetry   EventType = "quality_retry"
	EventQualityAssess  EventType = "quality_assess"
	EventRerank         EventType = "rerank"
	EventRankAdjust     EventType = "rank_adjust"
	EventGenerate       EventType = "generate"
	EventSafetyGate     EventType = "safety_gate"
	EventFormat         EventType = "format"
	EventStreamEmit     EventType = "stream_emit"
	EventInstanceSearch EventType = "instance_search"
	EventAudit          EventType = "audit"
)

// Pipeline variant names, keyed identically to the Pipeline map below
// and to the PipelineVariant value recorded on every AuditRecord.
const (
	VariantRAG             = "rag"
	VariantRAGStream       = "rag_stream"
	VariantInstanceSearch  = "instance_search"
)

// Pipeline defines the ordered event sequence for each orchestration
// variant. VariantRAG is the standard non-streaming chat path;
// VariantRAGStream emits the same stages as a sequence of streaming
// events; VariantInstanceSearch bypasses retrieval/generation entirely.
var Pipeline = map[string][]EventType{
	VariantRAG: {
		EventGate,
		EventCacheCheck,
		EventExpand,
		EventPolicyHints,
		EventRetrieve,
		EventQualityRetry,
		EventQualityAssess,
		EventRerank,
		EventRankAdjust,
		EventGenerate,
		EventSafetyGate,
		EventFormat,
		EventAudit,
	},
	VariantRAGStream: {
		EventGate,
		EventCacheCheck,
		EventExpand,
		EventPolicyHints,
		EventRetrieve,
		EventQualityRetry,
		EventQualityAssess,
		EventRerank,
		EventRankAdjust,
		EventGenerate,
		EventSafetyGate,
		EventFormat,
		EventStreamEmit,
		EventAudit,
	},
	VariantInstanceSearch: {
		EventGate,
		EventInstanceSearch,
		EventFormat,
		EventAudit,
	},
}

// KnownStage reports whether stage appears anywhere in variant's event
// sequence. The Orchestrator uses this to validate a StageMetric's
// Stage name against the variant actually run, catching a typo'd stage
// constant at the point a metric is recorded rather than downstream in
// an audit query.
func KnownStage(variant string, stage EventType) bool {
	for _, ev := range Pipeline[variant] {
		if ev == stage {
			return true
		}
	}
	return false
}
