// Package orchestrator composes every pipeline stage into the three
// variants the spec names (rag, rag_stream, instance_search),
// choosing cacheability and coordinating cancellation, grounded on the
// teacher's event-chain composition idiom generalized from a single
// chat-completion flow to this package's full corrective-RAG pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sajor2000/chatcore/internal/cache"
	"github.com/sajor2000/chatcore/internal/config"
	"github.com/sajor2000/chatcore/internal/format"
	"github.com/sajor2000/chatcore/internal/gate"
	"github.com/sajor2000/chatcore/internal/generate"
	"github.com/sajor2000/chatcore/internal/instance"
	"github.com/sajor2000/chatcore/internal/logger"
	"github.com/sajor2000/chatcore/internal/ranking"
	"github.com/sajor2000/chatcore/internal/safety"
	"github.com/sajor2000/chatcore/internal/stream"
	"github.com/sajor2000/chatcore/internal/types"
	"github.com/sajor2000/chatcore/internal/types/interfaces"
)

// Orchestrator wires the Request Gate, Query Expander, Policy-Hint
// Injector, Cache Layer, Retrieval Stage, Quality Assessor, Reranker,
// Ranking Adjuster, Generator, Citation & Safety Gate, Response
// Formatter, Streaming Adapter, and Instance Search Handler into the
// three pipeline variants defined by types.Pipeline.
type Orchestrator struct {
	cfg *config.Config

	cache    *cache.Service
	index    interfaces.PolicyIndex
	reranker interfaces.Reranker
	generator interfaces.Generator
	adjuster *ranking.Adjuster
	instanceHandler *instance.Handler
	audit    interfaces.AuditSink
	streamer *stream.Adapter

	systemPromptTemplate string
}

// New builds an Orchestrator from its fully-constructed dependencies.
// A nil audit sink is tolerated: auditing degrades to a no-op. A nil
// streamer makes ChatStream return an error; Chat does not use it.
func New(
	cfg *config.Config,
	cacheSvc *cache.Service,
	index interfaces.PolicyIndex,
	reranker interfaces.Reranker,
	generator interfaces.Generator,
	instanceHandler *instance.Handler,
	audit interfaces.AuditSink,
	streamer *stream.Adapter,
) *Orchestrator {
	return &Orchestrator{
		cfg:                   cfg,
		cache:                 cacheSvc,
		index:                 index,
		reranker:              reranker,
		generator:             generator,
		adjuster:              ranking.NewAdjuster(cfg.Ranking),
		instanceHandler:       instanceHandler,
		audit:                 audit,
		streamer:              streamer,
		systemPromptTemplate:  generate.DefaultSystemPrompt,
	}
}

// Chat runs the non-streaming "rag" pipeline variant for one query and
// returns its final Response.
func (o *Orchestrator) Chat(ctx context.Context, q types.Query) (types.Response, error) {
	if q.RequestID == "" {
		q.RequestID = uuid.NewString()
	}
	ctx = logger.WithRequestID(ctx, q.RequestID)
	start := time.Now()

	resp, metrics, err := o.runCore(ctx, q)
	o.recordAudit(ctx, q, types.VariantRAG, resp, time.Since(start), metrics)
	return resp, err
}

// ChatStream runs the "rag_stream" variant: the same pipeline, but
// generation is relayed token-by-token through the Streaming Adapter
// and the final Response is emitted as the terminal "done" event.
func (o *Orchestrator) ChatStream(ctx context.Context, q types.Query) (<-chan stream.Event, error) {
	if o.streamer == nil {
		return nil, fmt.Errorf("orchestrator: streaming adapter not configured")
	}
	if q.RequestID == "" {
		q.RequestID = uuid.NewString()
	}
	ctx = logger.WithRequestID(ctx, q.RequestID)
	start := time.Now()

	if v := gate.Check(q.Text, o.cfg.Gate); v.Blocked {
		o.recordAudit(ctx, q, types.VariantRAGStream, v.Response, time.Since(start), nil)
		return passthroughStream(ctx, v.Response), nil
	}

	if cached, ok := o.checkResponseCache(q); ok {
		o.recordAudit(ctx, q, types.VariantRAGStream, cached, time.Since(start), nil)
		return passthroughStream(ctx, cached), nil
	}

	prep, err := o.prepare(ctx, types.VariantRAGStream, q)
	if err != nil {
		resp := format.Unavailable()
		o.recordAudit(ctx, q, types.VariantRAGStream, resp, time.Since(start), nil)
		return passthroughStream(ctx, resp), nil
	}
	if prep.earlyResponse != nil {
		o.recordAudit(ctx, q, types.VariantRAGStream, *prep.earlyResponse, time.Since(start), prep.metrics)
		return passthroughStream(ctx, *prep.earlyResponse), nil
	}

	evidence := make([]types.Evidence, 0, len(prep.adjusted))
	for _, r := range prep.adjusted {
		evidence = append(evidence, format.ToEvidence(r, "verified"))
	}

	maxTokens := o.cfg.Generation.MaxTokensSingle
	if prep.multiPolicy {
		maxTokens = o.cfg.Generation.MaxTokensMulti
	}

	genCh := make(chan string, 16)
	go func() {
		sysPrompt := generate.RenderSystemPrompt(o.systemPromptTemplate, q.Text, evidence)
		if err := o.generator.Stream(ctx, sysPrompt, q.Text, maxTokens, o.cfg.Generation.Temperature, genCh); err != nil {
			logger.Errorf(ctx, "generation stream failed: %v", err)
		}
	}()

	// Drain the raw generation fully before anything reaches the
	// client: the Citation & Safety Gate must decide block-or-deliver
	// before a single token is relayed, per the no-leak-before-the-gate
	// requirement.
	var answer strings.Builder
	var tokens []string
	for tok := range genCh {
		answer.WriteString(tok)
		tokens = append(tokens, tok)
	}

	resp := o.finalizeResponse(ctx, answer.String(), evidence, prep.multiPolicy)

	o.recordAudit(ctx, q, types.VariantRAGStream, resp, time.Since(start), prep.metrics)
	if o.cfg.Cache.Enabled {
		o.cache.SetResponse(cache.Key(q.Text, q.AppliesTo), resp)
	}

	// replay carries only what the gate approved: the verified tokens
	// in their original order when delivered, or the single fallback
	// chunk when blocked — never the raw pre-gate generation.
	replay := make(chan string, len(tokens)+1)
	if resp.Found {
		for _, tok := range tokens {
			replay <- tok
		}
	} else {
		replay <- resp.Text
	}
	close(replay)

	return o.streamer.Run(ctx, replay, resp.Evidence, &resp), nil
}

// InstanceSearch runs the "instance_search" variant: after the
// Request Gate, it bypasses retrieval/generation entirely and answers
// directly from the Instance Search Handler against the caller-
// supplied referenceNumber.
func (o *Orchestrator) InstanceSearch(ctx context.Context, q types.Query, referenceNumber string) (types.Response, error) {
	if o.instanceHandler == nil {
		return types.Response{}, fmt.Errorf("orchestrator: instance search handler not configured")
	}
	start := time.Now()
	if v := gate.Check(q.Text, o.cfg.Gate); v.Blocked {
		o.recordAudit(ctx, q, types.VariantInstanceSearch, v.Response, time.Since(start), nil)
		return v.Response, nil
	}

	if referenceNumber == "" {
		resp := format.NotFound(types.FlagUnclearQuery)
		o.recordAudit(ctx, q, types.VariantInstanceSearch, resp, time.Since(start), nil)
		return resp, nil
	}

	result, err := o.instanceHandler.SearchWithinPolicy(ctx, referenceNumber, q.Text)
	if err != nil {
		resp := format.Unavailable()
		o.recordAudit(ctx, q, types.VariantInstanceSearch, resp, time.Since(start), nil)
		return resp, err
	}

	resp := instanceSearchResponse(result)
	o.recordAudit(ctx, q, types.VariantInstanceSearch, resp, time.Since(start), nil)
	return resp, nil
}

func instanceSearchResponse(result types.InstanceSearchResult) types.Response {
	if result.TotalInstances == 0 {
		return format.NotFound()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d match(es) for %q in %s (Ref #%s):\n\n", result.TotalInstances, result.SearchTerm, result.PolicyTitle, result.ReferenceNumber)
	evidence := make([]types.Evidence, 0, len(result.Instances))
	for _, inst := range result.Instances {
		fmt.Fprintf(&b, "- Section %s: %s\n", inst.Section, inst.Context)
		evidence = append(evidence, types.Evidence{
			Snippet:         inst.Context,
			Title:           result.PolicyTitle,
			ReferenceNumber: result.ReferenceNumber,
			Section:         inst.Section,
			PageNumber:      inst.PageNumber,
			MatchType:       "instance",
		})
	}
	return types.Response{
		Text:       b.String(),
		Summary:    fmt.Sprintf("%d match(es) found in %s", result.TotalInstances, result.PolicyTitle),
		Evidence:   evidence,
		Sources:    []string{fmt.Sprintf("Ref #%s — %s", result.ReferenceNumber, result.PolicyTitle)},
		ChunksUsed: len(evidence),
		Found:      true,
		Confidence: types.ConfidenceHigh,
	}
}

func passthroughStream(ctx context.Context, resp types.Response) <-chan stream.Event {
	ch := make(chan stream.Event, 2)
	ch <- stream.Event{Kind: stream.EventStart}
	ch <- stream.Event{Kind: stream.EventDone, Response: &resp}
	close(ch)
	return ch
}

func (o *Orchestrator) recordAudit(ctx context.Context, q types.Query, variant string, resp types.Response, duration time.Duration, metrics []types.StageMetric) {
	if o.audit == nil {
		return
	}
	rec := interfaces.AuditRecord{
		RequestID:        q.RequestID,
		SessionID:        q.SessionID,
		Question:         q.Text,
		AnswerFound:      resp.Found,
		Confidence:       resp.Confidence,
		SafetyFlags:      resp.SafetyFlags,
		NeedsHumanReview: resp.NeedsHumanReview,
		PipelineVariant:  variant,
		DurationMS:       duration.Milliseconds(),
		Metrics:          metrics,
	}
	if err := o.audit.Record(ctx, rec); err != nil {
		logger.Warnf(ctx, "audit record failed (non-critical): %v", err)
	}
}

func (o *Orchestrator) checkResponseCache(q types.Query) (types.Response, bool) {
	if !o.cfg.Cache.Enabled {
		return types.Response{}, false
	}
	return o.cache.GetResponse(cache.Key(q.Text, q.AppliesTo))
}

// finalizeResponse runs the Citation & Safety Gate and Response
// Formatter over a fully-generated answer, used by both Chat and
// ChatStream once the answer text is complete. It walks the gate's
// ten checks in order: strip dangling refs from a negative answer,
// override to "not found" when there's no evidence behind it, detect
// an outright refusal, verify citations and hallucination risk,
// verify exact-match facts, hard-block fabricated references, run the
// safety checklist, block on weighted hallucination risk, and finally
// run an optional self-reflective critique that can widen human
// review but never blocks.
func (o *Orchestrator) finalizeResponse(ctx context.Context, answer string, evidence []types.Evidence, multiPolicy bool) types.Response {
	cleaned := safety.StripReferencesFromNegative(answer)

	if safety.IsNotFoundResponse(cleaned) && len(evidence) == 0 {
		return format.LLMNotFound()
	}

	if safety.IsRefusalResponse(cleaned) {
		return format.LLMRefusal(cleaned)
	}

	verification := safety.VerifyResponse(cleaned, evidence)

	factsVerified, _, factFlags := safety.VerifyFactualClaims(cleaned, evidence, multiPolicy, o.cfg.Safety.FactVerificationStrict)
	if !factsVerified {
		return format.Blocked(types.FlagBlockedUnverifiedFact)
	}

	if len(verification.FabricatedRefs) > 0 {
		return format.Blocked(types.FlagBlockedFabricatedRef)
	}

	safetyResult := safety.Validate(cleaned, verification, o.cfg.Safety)
	safetyResult.Flags = append(safetyResult.Flags, factFlags...)

	block, review := safety.ShouldBlock(verification.HallucinationRisk, o.cfg.Safety)
	if block || !safetyResult.Safe {
		flag := types.FlagBlockedBySafetyCheck
		if block {
			flag = types.FlagBlockedHallucination
		}
		return format.Blocked(flag)
	}
	if review {
		safetyResult.NeedsHumanReview = true
	}

	if critique, ok := o.generator.(interfaces.GroundingCritique); ok {
		if unsupported, err := critique.Critique(ctx, cleaned, evidence); err == nil && unsupported > 0 {
			safetyResult.NeedsHumanReview = true
			safetyResult.Flags = append(safetyResult.Flags, types.FlagSelfCritiqueWarning)
		}
	}

	maxEvidence := 5
	if multiPolicy {
		maxEvidence = 10
	}
	return format.Delivered(cleaned, evidence, verification, safetyResult, maxEvidence)
}

func isPediatricQuery(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"pediatric", "child", "infant", "neonatal", "nicu", "picu"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isAdultOnlyQuery(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"adult patient", "adult only", "geriatric"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func extractLocation(appliesTo []string) string {
	if len(appliesTo) == 0 {
		return ""
	}
	return appliesTo[0]
}

// multiPolicyKeywords are comparative/enumerative phrasings that
// signal a question spans several distinct policies rather than one,
// mirroring the heuristic keyword approach the spec leaves as
// configuration, not contract.
var multiPolicyKeywords = []string{
	"different polic", "various polic", "multiple polic", "across polic",
	"compare", "and the policy on", "as well as the policy",
}

// isMultiPolicyQuery reports whether q should get the "multi-policy"
// treatment (MMR diversification, the larger token/evidence budgets):
// either the Policy-Hint Injector already forced more than one
// canonical reference, or the query text itself reads as comparative/
// enumerative across policies.
func isMultiPolicyQuery(text string, forced []types.ForcedReference) bool {
	distinct := map[string]struct{}{}
	for _, f := range forced {
		distinct[f.ReferenceNumber] = struct{}{}
	}
	if len(distinct) > 1 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range multiPolicyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
