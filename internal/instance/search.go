// Package instance implements the Instance Search Handler: locating
// every occurrence of a term, or the section discussing a topic,
// within one already-identified policy. Grounded on the source
// system's InstanceSearchService, which offers the same two modes
// (exact term match with surrounding context, and semantic section
// search) behind one auto-detecting entry point.
package instance

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sajor2000/chatcore/internal/types"
)

// contextWindow is the number of characters of surrounding text kept
// on either side of an exact-match hit.
const contextWindow = 100

// semanticTopK bounds how many chunks a semantic-mode search returns.
const semanticTopK = 20

var questionWords = map[string]struct{}{
	"what": {}, "where": {}, "how": {}, "when": {}, "why": {},
	"which": {}, "does": {}, "is": {}, "are": {}, "can": {},
}

// ChunkSource is the Instance Search Handler's dependency on the
// policy index: fetch every chunk of one policy (exact mode) or rank
// that policy's chunks against a query (semantic mode).
type ChunkSource interface {
	ChunksByReference(ctx context.Context, referenceNumber string) ([]types.SearchResult, error)
	SearchWithinPolicy(ctx context.Context, referenceNumber, query string, topK int) ([]types.SearchResult, error)
}

// Handler answers instance-search requests against a ChunkSource.
type Handler struct {
	source ChunkSource
}

// NewHandler builds a Handler over source.
func NewHandler(source ChunkSource) *Handler {
	return &Handler{source: source}
}

// SearchWithinPolicy auto-detects exact vs semantic mode from the
// query's shape and dispatches accordingly: a short, non-question
// query is treated as an exact term lookup; anything else is treated
// as a topic/concept search.
func (h *Handler) SearchWithinPolicy(ctx context.Context, referenceNumber, query string) (types.InstanceSearchResult, error) {
	semantic := useSemantic(query)
	return h.search(ctx, referenceNumber, query, semantic)
}

// SearchExact forces exact term-match mode regardless of query shape.
func (h *Handler) SearchExact(ctx context.Context, referenceNumber, term string) (types.InstanceSearchResult, error) {
	return h.search(ctx, referenceNumber, term, false)
}

// SearchSemantic forces semantic section-search mode.
func (h *Handler) SearchSemantic(ctx context.Context, referenceNumber, query string) (types.InstanceSearchResult, error) {
	return h.search(ctx, referenceNumber, query, true)
}

func useSemantic(query string) bool {
	words := strings.Fields(strings.TrimSpace(query))
	if len(words) == 0 {
		return true
	}
	isShortTerm := len(words) <= 2 && len(query) <= 30
	_, startsWithQuestion := questionWords[strings.ToLower(words[0])]
	return !isShortTerm || startsWithQuestion
}

func (h *Handler) search(ctx context.Context, referenceNumber, term string, semantic bool) (types.InstanceSearchResult, error) {
	var chunks []types.SearchResult
	var err error
	if semantic {
		chunks, err = h.source.SearchWithinPolicy(ctx, referenceNumber, term, semanticTopK)
	} else {
		chunks, err = h.source.ChunksByReference(ctx, referenceNumber)
	}
	if err != nil {
		return types.InstanceSearchResult{}, fmt.Errorf("instance search: %w", err)
	}
	if len(chunks) == 0 {
		return types.InstanceSearchResult{
			ReferenceNumber: referenceNumber,
			SearchTerm:      term,
			SemanticSearch:  semantic,
		}, nil
	}

	var instances []types.TermInstance
	if semantic {
		for _, c := range chunks {
			instances = append(instances, chunkToInstance(c))
		}
	} else {
		for _, c := range chunks {
			instances = append(instances, findInstancesInChunk(c, term)...)
		}
	}

	sort.SliceStable(instances, func(i, j int) bool {
		if instances[i].PageNumber != instances[j].PageNumber {
			return instances[i].PageNumber < instances[j].PageNumber
		}
		return instances[i].Position < instances[j].Position
	})

	return types.InstanceSearchResult{
		PolicyTitle:     chunks[0].Title,
		ReferenceNumber: referenceNumber,
		SearchTerm:      term,
		TotalInstances:  len(instances),
		Instances:       instances,
		SourceFile:      chunks[0].SourceFile,
		SemanticSearch:  semantic,
	}, nil
}

// chunkToInstance treats a semantically-ranked whole chunk as one
// relevant section.
func chunkToInstance(c types.SearchResult) types.TermInstance {
	number, title := splitSection(c.Section)
	pageNumber := c.PageNumber
	if pageNumber == 0 {
		pageNumber = estimatePage(c.ChunkIndex)
	}
	return types.TermInstance{
		PageNumber:   pageNumber,
		Section:      number,
		SectionTitle: title,
		Context:      c.Content,
		ChunkID:      c.ID,
	}
}

// findInstancesInChunk locates every occurrence of term in a chunk's
// content, each with a snippet of surrounding context and the
// highlight offsets within that snippet. The pattern allows common
// suffixes (plural, possessive, -ed, -ing) so "employee" also matches
// "employees" and "employee's".
func findInstancesInChunk(c types.SearchResult, term string) []types.TermInstance {
	content := c.Content
	if content == "" || term == "" {
		return nil
	}
	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `(s|'s|es|ed|ing)?\b`)
	if err != nil {
		return nil
	}

	number, title := splitSection(c.Section)

	var out []types.TermInstance
	for _, loc := range pattern.FindAllStringIndex(content, -1) {
		start, end := loc[0], loc[1]
		ctxStart := max(0, start-contextWindow)
		ctxEnd := min(len(content), end+contextWindow)
		context := content[ctxStart:ctxEnd]

		highlightStart := start - ctxStart
		highlightEnd := end - ctxStart
		if ctxStart > 0 {
			context = "..." + context
			highlightStart += 3
			highlightEnd += 3
		}
		if ctxEnd < len(content) {
			context += "..."
		}

		pageNumber := c.PageNumber
		if pageNumber == 0 {
			pageNumber = estimatePage(c.ChunkIndex)
		}

		out = append(out, types.TermInstance{
			PageNumber:     pageNumber,
			Section:        number,
			SectionTitle:   title,
			Context:        context,
			Position:       start,
			ChunkID:        c.ID,
			HighlightStart: highlightStart,
			HighlightEnd:   highlightEnd,
		})
	}
	return out
}

// splitSection parses a "3. Training Requirements"-shaped section
// string into its number and title parts.
func splitSection(section string) (number, title string) {
	if section == "" {
		return "", ""
	}
	parts := strings.SplitN(section, ". ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return section, ""
}

// estimatePage approximates a page number from chunk index when the
// index has no page_number payload field, assuming roughly two chunks
// per page.
func estimatePage(chunkIndex int) int {
	return max(1, (chunkIndex/2)+1)
}
