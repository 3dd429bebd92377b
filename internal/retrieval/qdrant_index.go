// Package retrieval implements the Retrieval Stage against a Qdrant
// collection, grounded on the teacher's qdrant repository payload
// shape (QdrantVectorEmbedding), adapted from a generic knowledge-base
// chunk schema to policy-chunk metadata (reference number, section,
// applies-to entities).
package retrieval

import (
	"context"
	"fmt"
	"sort"

	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/sajor2000/chatcore/internal/apperr"
	"github.com/sajor2000/chatcore/internal/types"
)

// PolicyChunkPayload is the Qdrant point payload for one indexed
// policy chunk, mirroring types.SearchResult's field set.
type PolicyChunkPayload struct {
	Content             string   `json:"content"`
	Title               string   `json:"title"`
	ReferenceNumber     string   `json:"reference_number"`
	Section             string   `json:"section"`
	SourceFile          string   `json:"source_file"`
	PageNumber          int      `json:"page_number"`
	AppliesTo           []string `json:"applies_to"`
	DocumentOwner       string   `json:"document_owner"`
	DateUpdated         string   `json:"date_updated"`
	DateApproved        string   `json:"date_approved"`
	Category            string   `json:"category"`
	Subcategory         string   `json:"subcategory"`
	RegulatoryCitations string   `json:"regulatory_citations"`
	RelatedPolicies     string   `json:"related_policies"`
	ChunkIndex          int      `json:"chunk_index"`
}

// Embedder produces the dense vector for a query string. The
// Retrieval Stage depends on this rather than embedding inline so the
// same embedding backend used at ingest time is reused at query time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index implements interfaces.PolicyIndex against a single Qdrant
// collection.
type Index struct {
	client     *qdrant.Client
	collection string
	embedder   Embedder
}

// NewIndex builds an Index bound to collection on client.
func NewIndex(client *qdrant.Client, collection string, embedder Embedder) *Index {
	return &Index{client: client, collection: collection, embedder: embedder}
}

// Search embeds query, issues a vector similarity search restricted to
// chunks whose applies_to intersects appliesTo (when non-empty), and
// returns the top topK hits as SearchResults.
func (idx *Index) Search(ctx context.Context, query string, appliesTo []string, topK int) ([]types.SearchResult, error) {
	vector, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperr.Transient(apperr.KindRetrieval, fmt.Errorf("embed query: %w", err))
	}

	limit := uint64(topK)
	req := &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(appliesTo) > 0 {
		req.Filter = appliesToFilter(appliesTo)
	}

	points, err := idx.client.Query(ctx, req)
	if err != nil {
		return nil, apperr.Transient(apperr.KindRetrieval, fmt.Errorf("qdrant query: %w", err))
	}

	results := make([]types.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, fromPayload(p))
	}
	return results, nil
}

// ChunksByReference fetches every indexed chunk belonging to a single
// policy, ordered by chunk index, for the Instance Search Handler's
// exact-term mode. Qdrant's scroll API has no native order_by on an
// arbitrary payload field, so results are sorted client-side.
func (idx *Index) ChunksByReference(ctx context.Context, referenceNumber string) ([]types.SearchResult, error) {
	limit := uint32(1000)
	resp, err := idx.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: idx.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("reference_number", referenceNumber)},
		},
		Limit:       &limit,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperr.Transient(apperr.KindRetrieval, fmt.Errorf("qdrant scroll: %w", err))
	}

	results := make([]types.SearchResult, 0, len(resp))
	for _, p := range resp {
		results = append(results, fromRetrievedPayload(p))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ChunkIndex < results[j].ChunkIndex })
	return results, nil
}

// SearchWithinPolicy runs a vector similarity search scoped to one
// policy's chunks, for the Instance Search Handler's semantic mode
// ("find the section about X in policy Y").
func (idx *Index) SearchWithinPolicy(ctx context.Context, referenceNumber, query string, topK int) ([]types.SearchResult, error) {
	vector, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperr.Transient(apperr.KindRetrieval, fmt.Errorf("embed query: %w", err))
	}

	limit := uint64(topK)
	points, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQueryDense(vector),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("reference_number", referenceNumber)},
		},
		Limit:       &limit,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperr.Transient(apperr.KindRetrieval, fmt.Errorf("qdrant query: %w", err))
	}

	results := make([]types.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, fromPayload(p))
	}
	return results, nil
}

func appliesToFilter(appliesTo []string) *qdrant.Filter {
	conditions := make([]*qdrant.Condition, 0, len(appliesTo))
	for _, entity := range appliesTo {
		conditions = append(conditions, qdrant.NewMatch("applies_to", entity))
	}
	return &qdrant.Filter{Should: conditions}
}

func fromPayload(p *qdrant.ScoredPoint) types.SearchResult {
	payload := p.GetPayload()
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	var appliesTo []string
	if v, ok := payload["applies_to"]; ok {
		for _, item := range v.GetListValue().GetValues() {
			appliesTo = append(appliesTo, item.GetStringValue())
		}
	}
	return types.SearchResult{
		ID:                  pointIDString(p.GetId()),
		Content:             get("content"),
		Title:               get("title"),
		ReferenceNumber:     get("reference_number"),
		Section:             get("section"),
		SourceFile:          get("source_file"),
		AppliesTo:           appliesTo,
		DocumentOwner:       get("document_owner"),
		DateUpdated:         get("date_updated"),
		DateApproved:        get("date_approved"),
		Category:            get("category"),
		Subcategory:         get("subcategory"),
		RegulatoryCitations: get("regulatory_citations"),
		RelatedPolicies:     get("related_policies"),
		Score:               float64(p.GetScore()),
	}
}

func fromRetrievedPayload(p *qdrant.RetrievedPoint) types.SearchResult {
	payload := p.GetPayload()
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	getInt := func(key string) int {
		if v, ok := payload[key]; ok {
			return int(v.GetIntegerValue())
		}
		return 0
	}
	var appliesTo []string
	if v, ok := payload["applies_to"]; ok {
		for _, item := range v.GetListValue().GetValues() {
			appliesTo = append(appliesTo, item.GetStringValue())
		}
	}
	return types.SearchResult{
		ID:              pointIDString(p.GetId()),
		Content:         get("content"),
		Title:           get("title"),
		ReferenceNumber: get("reference_number"),
		Section:         get("section"),
		SourceFile:      get("source_file"),
		PageNumber:      getInt("page_number"),
		AppliesTo:       appliesTo,
		ChunkIndex:      getInt("chunk_index"),
	}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uid := id.GetUuid(); uid != "" {
		return uid
	}
	return fmt.Sprintf("%d", id.GetNum())
}
