package orchestrator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sajor2000/chatcore/internal/cache"
	"github.com/sajor2000/chatcore/internal/expand"
	"github.com/sajor2000/chatcore/internal/format"
	"github.com/sajor2000/chatcore/internal/gate"
	"github.com/sajor2000/chatcore/internal/generate"
	"github.com/sajor2000/chatcore/internal/hints"
	"github.com/sajor2000/chatcore/internal/logger"
	"github.com/sajor2000/chatcore/internal/quality"
	"github.com/sajor2000/chatcore/internal/tracing"
	"github.com/sajor2000/chatcore/internal/types"
)

// secondaryLookupTopK bounds each targeted forced-reference retry
// query: these are precision lookups for one known policy, not a
// broad search, so a small K keeps the union cheap.
const secondaryLookupTopK = 5

// minScoreReranker is implemented by reranker clients that support a
// second attempt at a relaxed score floor. Asserted optionally so the
// Orchestrator still works against any interfaces.Reranker that lacks
// the capability (it simply skips the relaxed retry).
type minScoreReranker interface {
	RerankWithMinScore(ctx context.Context, query string, candidates []types.SearchResult, topN int, minScore float64) ([]types.RerankResult, error)
}

// prepResult is everything the pipeline produces before generation:
// either a fully adjusted candidate set ready for the Generator, or
// an earlyResponse terminating the request before generation runs.
type prepResult struct {
	adjusted      []types.RerankResult
	forced        []types.ForcedReference
	multiPolicy   bool
	metrics       []types.StageMetric
	earlyResponse *types.Response
}

// metric builds a StageMetric for one pipeline stage. variant identifies
// which of types.Pipeline's sequences is running, so an unrecognized
// stage for that variant is logged rather than silently recorded —
// StageMetric.Stage is a plain string for JSON/audit portability, but
// every caller in this package passes a types.EventType constant.
func metric(ctx context.Context, variant string, stage types.EventType, start time.Time, cacheHit bool, count int) types.StageMetric {
	if !types.KnownStage(variant, stage) {
		logger.Warnf(ctx, "stage metric %q is not part of pipeline variant %q", stage, variant)
	}
	_, span := tracing.StartStage(ctx, variant, string(stage), start)
	tracing.End(span, nil, count, time.Now())
	return types.StageMetric{
		Stage:      string(stage),
		DurationMS: time.Since(start).Milliseconds(),
		CacheHit:   cacheHit,
		Count:      count,
	}
}

// prepare runs every stage upstream of generation: Query Expander,
// Policy-Hint Injector, Cache Layer (expansion + search), Retrieval
// Stage, Quality Assessor, Reranker, and Ranking Adjuster.
func (o *Orchestrator) prepare(ctx context.Context, variant string, q types.Query) (*prepResult, error) {
	var metrics []types.StageMetric

	// Query Expander, behind the expansion cache.
	t0 := time.Now()
	canonicalKey := cache.Key(q.Text, nil)
	var expanded types.ExpandedQuery
	expansionHit := false
	if o.cfg.Cache.Enabled {
		if cached, ok := o.cache.GetExpansion(canonicalKey); ok {
			expanded = cached
			expansionHit = true
		}
	}
	if !expansionHit {
		expanded = expand.Expand(q.Text)
		if o.cfg.Cache.Enabled {
			o.cache.SetExpansion(canonicalKey, expanded)
		}
	}
	metrics = append(metrics, metric(ctx, variant, types.EventExpand, t0, expansionHit, 1))

	// Policy-Hint Injector.
	t0 = time.Now()
	searchQuery, forced := hints.Inject(expanded.Expanded)
	metrics = append(metrics, metric(ctx, variant, types.EventPolicyHints, t0, false, len(forced)))

	// Retrieval Stage, behind the search cache.
	t0 = time.Now()
	searchKey := cache.SearchKey(searchQuery, q.AppliesTo)
	var retrieved []types.SearchResult
	searchHit := false
	if o.cfg.Cache.Enabled {
		if cached, ok := o.cache.GetSearch(searchKey); ok {
			retrieved = cached
			searchHit = true
		}
	}
	if !searchHit {
		results, err := o.index.Search(ctx, searchQuery, q.AppliesTo, o.cfg.Retrieval.TopK)
		if err != nil {
			logger.Errorf(ctx, "retrieval failed: %v", err)
			return nil, err
		}
		retrieved = results
		if o.cfg.Cache.Enabled {
			o.cache.SetSearch(searchKey, retrieved)
		}
	}
	metrics = append(metrics, metric(ctx, variant, types.EventRetrieve, t0, searchHit, len(retrieved)))

	if len(retrieved) == 0 {
		resp := format.NotFound()
		return &prepResult{metrics: metrics, earlyResponse: &resp}, nil
	}

	// Quality Assessor, ActionRetry: any forced reference absent from
	// the retrieved set gets a targeted secondary lookup, issued
	// concurrently, unioned into the candidate set before scoring.
	if missing := quality.MissingForced(retrieved, forced); len(missing) > 0 {
		t0 = time.Now()
		retrieved = o.retryMissingForced(ctx, retrieved, missing, q.AppliesTo)
		metrics = append(metrics, metric(ctx, variant, types.EventQualityRetry, t0, false, len(missing)))
	}

	// Quality Assessor: non-fatal by construction (Assess and
	// DetermineAction cannot fail); a refuse verdict proceeds with the
	// original set.
	t0 = time.Now()
	candidates := retrieved
	assessments := quality.Assess(q.Text, retrieved)
	switch quality.DetermineAction(assessments) {
	case quality.ActionFilter:
		if filtered := quality.FilterByQuality(retrieved, assessments); len(filtered) > 0 {
			candidates = filtered
		}
	case quality.ActionRefuse:
		candidates = retrieved
	}
	if o.cfg.Retrieval.TopK > 0 && len(candidates) > o.cfg.Retrieval.TopK {
		candidates = candidates[:o.cfg.Retrieval.TopK]
	}
	metrics = append(metrics, metric(ctx, variant, types.EventQualityAssess, t0, false, len(candidates)))

	// Reranker: retry once at threshold 0 if the configured threshold
	// yields nothing.
	t0 = time.Now()
	topN := o.topNFor(q, len(forced))
	reranked, err := o.reranker.Rerank(ctx, q.Text, candidates, topN)
	if err != nil {
		logger.Errorf(ctx, "rerank failed: %v", err)
		return nil, err
	}
	if len(reranked) == 0 {
		if relaxed, ok := o.reranker.(minScoreReranker); ok {
			reranked, err = relaxed.RerankWithMinScore(ctx, q.Text, candidates, topN, 0)
			if err != nil {
				logger.Errorf(ctx, "relaxed rerank failed: %v", err)
				return nil, err
			}
		}
	}
	metrics = append(metrics, metric(ctx, variant, types.EventRerank, t0, false, len(reranked)))

	if len(reranked) == 0 {
		resp := format.NotFound()
		return &prepResult{metrics: metrics, earlyResponse: &resp, forced: forced}, nil
	}

	// Ranking Adjuster.
	multiPolicy := isMultiPolicyQuery(q.Text, forced)
	t0 = time.Now()
	adjusted := o.adjuster.Adjust(
		reranked,
		forced,
		isPediatricQuery(q.Text),
		isAdultOnlyQuery(q.Text),
		extractLocation(q.AppliesTo),
		multiPolicy,
	)
	metrics = append(metrics, metric(ctx, variant, types.EventRankAdjust, t0, false, len(adjusted)))

	if len(adjusted) == 0 {
		resp := format.NotFound()
		return &prepResult{metrics: metrics, earlyResponse: &resp, forced: forced, multiPolicy: multiPolicy}, nil
	}

	return &prepResult{adjusted: adjusted, forced: forced, multiPolicy: multiPolicy, metrics: metrics}, nil
}

// retryMissingForced issues one secondary index query per missing
// forced reference, concurrently bounded by an errgroup, and unions
// any hits into retrieved (deduplicated by ID). A failed secondary
// lookup is logged and skipped rather than failing the request — the
// primary retrieval already succeeded; a missing forced reference
// just falls through to the Ranking Adjuster's recovery floor.
func (o *Orchestrator) retryMissingForced(
	ctx context.Context,
	retrieved []types.SearchResult,
	missing []types.ForcedReference,
	appliesTo []string,
) []types.SearchResult {
	var mu sync.Mutex
	found := make([]types.SearchResult, 0, len(missing))

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range missing {
		f := f
		g.Go(func() error {
			results, err := o.index.Search(gctx, f.HintQuery, appliesTo, secondaryLookupTopK)
			if err != nil {
				logger.Warnf(ctx, "forced-reference secondary lookup failed for %s: %v", f.ReferenceNumber, err)
				return nil
			}
			mu.Lock()
			found = append(found, results...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(found) == 0 {
		return retrieved
	}

	seen := make(map[string]struct{}, len(retrieved))
	union := make([]types.SearchResult, len(retrieved), len(retrieved)+len(found))
	copy(union, retrieved)
	for _, r := range retrieved {
		seen[r.ID] = struct{}{}
	}
	for _, r := range found {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		union = append(union, r)
	}
	return union
}

func (o *Orchestrator) topNFor(q types.Query, forcedCount int) int {
	n := o.cfg.Rerank.TopNDefault
	if forcedCount > 1 {
		n = o.cfg.Rerank.TopNMulti
	}
	return n
}

// runCore runs the full non-streaming "rag" pipeline: Request Gate,
// response-cache check, prepare (expand through rank-adjust),
// Generator, Citation & Safety Gate, and Response Formatter.
func (o *Orchestrator) runCore(ctx context.Context, q types.Query) (types.Response, []types.StageMetric, error) {
	if v := gate.Check(q.Text, o.cfg.Gate); v.Blocked {
		return v.Response, nil, nil
	}

	if cached, ok := o.checkResponseCache(q); ok {
		return cached, nil, nil
	}

	prep, err := o.prepare(ctx, types.VariantRAG, q)
	if err != nil {
		return format.Unavailable(), nil, err
	}
	if prep.earlyResponse != nil {
		return *prep.earlyResponse, prep.metrics, nil
	}

	evidence := make([]types.Evidence, 0, len(prep.adjusted))
	for _, r := range prep.adjusted {
		evidence = append(evidence, format.ToEvidence(r, "verified"))
	}

	maxTokens := o.cfg.Generation.MaxTokensSingle
	if prep.multiPolicy {
		maxTokens = o.cfg.Generation.MaxTokensMulti
	}

	t0 := time.Now()
	sysPrompt := generate.RenderSystemPrompt(o.systemPromptTemplate, q.Text, evidence)
	answer, err := o.generator.Generate(ctx, sysPrompt, q.Text, maxTokens, o.cfg.Generation.Temperature)
	prep.metrics = append(prep.metrics, metric(ctx, types.VariantRAG, types.EventGenerate, t0, false, 1))
	if err != nil {
		logger.Errorf(ctx, "generation failed: %v", err)
		return format.Unavailable(), prep.metrics, err
	}

	t0 = time.Now()
	resp := o.finalizeResponse(ctx, answer, evidence, prep.multiPolicy)
	prep.metrics = append(prep.metrics, metric(ctx, types.VariantRAG, types.EventSafetyGate, t0, false, 1))

	if o.cfg.Cache.Enabled {
		o.cache.SetResponse(cache.Key(q.Text, q.AppliesTo), resp)
	}

	return resp, prep.metrics, nil
}
