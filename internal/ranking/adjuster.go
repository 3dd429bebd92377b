// Package ranking implements the Ranking Adjuster: a sequence of
// score adjustments applied to reranked candidates before generation,
// grounded on the forced-reference boost/recovery and score-window
// filtering control flow in the source chat service.
package ranking

import (
	"sort"
	"strings"

	"github.com/sajor2000/chatcore/internal/config"
	"github.com/sajor2000/chatcore/internal/types"
)

// Adjuster applies the ordered adjustment passes to a reranked result
// set: forced-reference boost, surge-policy penalty, population boost,
// location boost, MMR diversification, then score-window filtering.
type Adjuster struct {
	cfg config.RankingConfig
}

func NewAdjuster(cfg config.RankingConfig) *Adjuster {
	return &Adjuster{cfg: cfg}
}

// Adjust runs every pass in spec order and returns the final ordered
// result set. forced is the set of reference numbers the Policy-Hint
// Injector required; pediatric/adultOnly/location are population and
// locality signals the caller derived from the query. multiPolicy
// gates the last two passes: MMR diversification only runs for
// multi-policy queries, score-window filtering only for single-intent
// ones — both still require more than 3 results to engage.
func (a *Adjuster) Adjust(
	reranked []types.RerankResult,
	forced []types.ForcedReference,
	pediatric, adultOnly bool,
	location string,
	multiPolicy bool,
) []types.RerankResult {
	out := cloneAll(reranked)

	forcedSet := make(map[string]struct{}, len(forced))
	for _, f := range forced {
		forcedSet[f.ReferenceNumber] = struct{}{}
	}

	out = a.boostForced(out, forcedSet)
	out = a.recoverMissingForced(out, forced)
	out = a.applySurgePenalty(out)
	if pediatric {
		out = a.boostPopulation(out, a.cfg.PediatricBoost, isPediatricResult)
	}
	if adultOnly {
		out = a.boostPopulation(out, a.cfg.AdultBoost, isAdultResult)
	}
	if location != "" {
		out = a.boostLocation(out, location)
	}
	if multiPolicy && len(out) > 3 {
		out = a.diversifyMMR(out)
	}
	if !multiPolicy && len(out) > 3 {
		out = a.filterScoreWindow(out)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}

// boostForced multiplies the score of any result whose reference
// number was forced, applying the config's boost multiplier with a
// floor so a weak match still clears the generation threshold.
func (a *Adjuster) boostForced(results []types.RerankResult, forced map[string]struct{}) []types.RerankResult {
	for i := range results {
		if _, ok := forced[results[i].ReferenceNumber]; !ok {
			continue
		}
		boosted := results[i].RelevanceScore * a.cfg.ForcedBoostMultiplier
		if boosted < a.cfg.ForcedScoreFloor {
			boosted = a.cfg.ForcedScoreFloor
		}
		results[i].RelevanceScore = boosted
		results[i].Forced = true
	}
	return results
}

// recoverMissingForced appends a synthetic low-confidence entry for
// any forced reference absent from results entirely, so the Citation
// & Safety Gate still has something to cite rather than silently
// dropping a policy the injector said must appear. The entry's score
// is the recovery floor, below the forced boost floor, signalling
// weaker confidence than a genuinely retrieved forced match.
func (a *Adjuster) recoverMissingForced(results []types.RerankResult, forced []types.ForcedReference) []types.RerankResult {
	if len(forced) == 0 {
		return results
	}
	present := make(map[string]struct{}, len(results))
	for _, r := range results {
		present[r.ReferenceNumber] = struct{}{}
	}
	for _, f := range forced {
		if _, ok := present[f.ReferenceNumber]; ok {
			continue
		}
		results = append(results, types.RerankResult{
			SearchResult: types.SearchResult{
				ReferenceNumber: f.ReferenceNumber,
				Content:         f.HintQuery,
			},
			RelevanceScore: a.cfg.ForcedRecoveryFloor,
			Forced:         true,
		})
	}
	return results
}

// applySurgePenalty down-weights policies whose section/title marks
// them as surge or disaster-contingency guidance. The penalty is
// applied unconditionally: a query that itself mentions surge
// operations is penalized the same way.
func (a *Adjuster) applySurgePenalty(results []types.RerankResult) []types.RerankResult {
	for i := range results {
		text := strings.ToLower(results[i].Title + " " + results[i].Section)
		if strings.Contains(text, "surge") || strings.Contains(text, "disaster contingency") {
			results[i].RelevanceScore *= (1 - a.cfg.SurgePenalty)
		}
	}
	return results
}

func isPediatricResult(r types.RerankResult) bool {
	text := strings.ToLower(r.Title + " " + r.Content)
	return strings.Contains(text, "pediatric") || strings.Contains(text, "picu") ||
		strings.Contains(text, "neonatal") || strings.Contains(text, "nicu")
}

func isAdultResult(r types.RerankResult) bool {
	return !isPediatricResult(r)
}

func (a *Adjuster) boostPopulation(results []types.RerankResult, boost float64, match func(types.RerankResult) bool) []types.RerankResult {
	for i := range results {
		if match(results[i]) {
			results[i].RelevanceScore *= boost
		}
	}
	return results
}

func (a *Adjuster) boostLocation(results []types.RerankResult, location string) []types.RerankResult {
	loc := strings.ToLower(location)
	for i := range results {
		for _, entity := range results[i].AppliesTo {
			if strings.EqualFold(entity, loc) {
				results[i].RelevanceScore *= a.cfg.LocationBoost
				break
			}
		}
	}
	return results
}

// diversifyMMR applies maximal-marginal-relevance selection so the
// final set isn't dominated by near-duplicate chunks of the same
// policy, trading a configurable amount of pure relevance for source
// diversity.
func (a *Adjuster) diversifyMMR(results []types.RerankResult) []types.RerankResult {
	if len(results) <= 1 {
		return results
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	maxResults := a.cfg.MMRMaxResults
	if maxResults <= 0 || maxResults > len(results) {
		maxResults = len(results)
	}

	selected := make([]types.RerankResult, 0, maxResults)
	remaining := append([]types.RerankResult(nil), results...)

	for len(selected) < maxResults && len(remaining) > 0 {
		bestIdx, bestScore := 0, -1.0
		for i, cand := range remaining {
			redundancy := maxSimilarity(cand, selected)
			mmrScore := a.cfg.MMRLambda*cand.RelevanceScore - (1-a.cfg.MMRLambda)*redundancy
			if mmrScore > bestScore {
				bestScore, bestIdx = mmrScore, i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// maxSimilarity is a cheap same-policy proxy for redundancy: two
// chunks from the same reference number are treated as maximally
// similar, otherwise dissimilar.
func maxSimilarity(cand types.RerankResult, selected []types.RerankResult) float64 {
	for _, s := range selected {
		if s.ReferenceNumber != "" && s.ReferenceNumber == cand.ReferenceNumber {
			return 1.0
		}
	}
	return 0.0
}

// filterScoreWindow drops results scoring below ScoreWindow times the
// top score, removing noise from related-but-different policies once
// there are more than a few candidates.
func (a *Adjuster) filterScoreWindow(results []types.RerankResult) []types.RerankResult {
	if len(results) <= 3 {
		return results
	}
	top := results[0].RelevanceScore
	for _, r := range results {
		if r.RelevanceScore > top {
			top = r.RelevanceScore
		}
	}
	threshold := top * a.cfg.ScoreWindow
	out := make([]types.RerankResult, 0, len(results))
	for _, r := range results {
		if r.RelevanceScore >= threshold || r.Forced {
			out = append(out, r)
		}
	}
	return out
}

func cloneAll(results []types.RerankResult) []types.RerankResult {
	out := make([]types.RerankResult, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return out
}
