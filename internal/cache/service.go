package cache

import (
	"sync/atomic"

	"github.com/sajor2000/chatcore/internal/config"
	"github.com/sajor2000/chatcore/internal/types"
)

// Service owns the three named cache families described in the Cache
// Layer component design. Each family has independent capacity/TTL and
// independent hit/miss counters.
type Service struct {
	expansion *LRUCache[types.ExpandedQuery]
	response  *LRUCache[types.Response]
	search    *LRUCache[[]types.SearchResult]

	expansionHits, expansionMisses atomic.Int64
	responseHits, responseMisses   atomic.Int64
	searchHits, searchMisses       atomic.Int64
}

// NewService builds the three families from cfg, using no expiry for
// the expansion family per the spec (expansion results don't go stale
// the way retrieved content does).
func NewService(cfg config.CacheConfig) *Service {
	return &Service{
		expansion: NewLRUCache[types.ExpandedQuery](cfg.ExpansionSize, 0),
		response:  NewLRUCache[types.Response](cfg.ResponseSize, cfg.ResponseTTL),
		search:    NewLRUCache[[]types.SearchResult](cfg.SearchSize, cfg.SearchTTL),
	}
}

func (s *Service) GetExpansion(key string) (types.ExpandedQuery, bool) {
	v, ok := s.expansion.Get(key)
	if ok {
		s.expansionHits.Add(1)
	} else {
		s.expansionMisses.Add(1)
	}
	return v, ok
}

func (s *Service) SetExpansion(key string, v types.ExpandedQuery) {
	s.expansion.Set(key, v)
}

func (s *Service) GetResponse(key string) (types.Response, bool) {
	v, ok := s.response.Get(key)
	if ok {
		s.responseHits.Add(1)
	} else {
		s.responseMisses.Add(1)
	}
	return v, ok
}

// SetResponse stores resp under key only if resp.ShouldCache() — a
// not-found or clarification-needed answer must never poison the
// response cache for a later, better answer. Implements P2.
func (s *Service) SetResponse(key string, resp types.Response) {
	if !resp.ShouldCache() {
		return
	}
	s.response.Set(key, resp)
}

func (s *Service) GetSearch(key string) ([]types.SearchResult, bool) {
	v, ok := s.search.Get(key)
	if ok {
		s.searchHits.Add(1)
	} else {
		s.searchMisses.Add(1)
	}
	return v, ok
}

func (s *Service) SetSearch(key string, results []types.SearchResult) {
	s.search.Set(key, append([]types.SearchResult(nil), results...))
}

// InvalidateAll clears every family, used by cache-admin operations.
func (s *Service) InvalidateAll() {
	s.expansion.Invalidate()
	s.response.Invalidate()
	s.search.Invalidate()
}

func (s *Service) InvalidateResponses() { s.response.Invalidate() }
func (s *Service) InvalidateSearch()    { s.search.Invalidate() }

// Stats is a point-in-time snapshot of family sizes and hit rates for
// the cache-admin surface.
type Stats struct {
	ExpansionSize, ResponseSize, SearchSize       int
	ExpansionHitRate, ResponseHitRate, SearchHitRate float64
}

func (s *Service) Stats() Stats {
	return Stats{
		ExpansionSize:    s.expansion.Len(),
		ResponseSize:     s.response.Len(),
		SearchSize:       s.search.Len(),
		ExpansionHitRate: hitRate(s.expansionHits.Load(), s.expansionMisses.Load()),
		ResponseHitRate:  hitRate(s.responseHits.Load(), s.responseMisses.Load()),
		SearchHitRate:    hitRate(s.searchHits.Load(), s.searchMisses.Load()),
	}
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Close stops every family's background sweep goroutine.
func (s *Service) Close() {
	s.expansion.Close()
	s.response.Close()
	s.search.Close()
}
