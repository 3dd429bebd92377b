// Package rerank implements the Reranker stage as an HTTP client
// against a Cohere-style cross-encoder rerank endpoint, grounded on
// the source system's CohereRerankService: healthcare-field-ordered
// YAML document serialization, score-threshold filtering, and bounded
// exponential-backoff retry.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sajor2000/chatcore/internal/apperr"
	"github.com/sajor2000/chatcore/internal/logger"
	"github.com/sajor2000/chatcore/internal/types"
)

// policyDocument is the YAML-serialized candidate sent to the rerank
// endpoint. Field order matches the struct field order below
// (policy_title, reference_number, applies_to_entities, section,
// document_owner, effective_date, content last) so the most
// discriminative metadata appears before the bulk text, which the
// source system found improved cross-encoder scoring for healthcare
// policy text.
type policyDocument struct {
	PolicyTitle        string   `yaml:"policy_title"`
	ReferenceNumber    string   `yaml:"reference_number"`
	AppliesToEntities  []string `yaml:"applies_to_entities,omitempty"`
	Section            string   `yaml:"section,omitempty"`
	DocumentOwner      string   `yaml:"document_owner,omitempty"`
	EffectiveDate      string   `yaml:"effective_date,omitempty"`
	Content            string   `yaml:"content"`
}

func toDocument(r types.SearchResult) policyDocument {
	return policyDocument{
		PolicyTitle:       r.Title,
		ReferenceNumber:   r.ReferenceNumber,
		AppliesToEntities: r.AppliesTo,
		Section:           r.Section,
		DocumentOwner:     r.DocumentOwner,
		EffectiveDate:     r.DateApproved,
		Content:           r.Content,
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponseItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResponseItem `json:"results"`
}

// Client reranks candidates against an HTTP cross-encoder endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	minScore   float64
}

// NewClient builds a Client targeting endpoint, filtering out results
// below minScore by default (overridable per call via RerankWithMinScore).
func NewClient(endpoint, apiKey string, minScore float64, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
		minScore:   minScore,
	}
}

// Rerank scores candidates against query and returns the top topN
// results above the client's default minimum score. Any failed call
// (transport error, non-200 status or bad body) is retried with
// exponential backoff, up to 3 attempts in total; the last failure is
// returned as a transient error.
func (c *Client) Rerank(ctx context.Context, query string, candidates []types.SearchResult, topN int) ([]types.RerankResult, error) {
	return c.RerankWithMinScore(ctx, query, candidates, topN, c.minScore)
}

// RerankWithMinScore is Rerank with an explicit score floor, used by
// the Orchestrator's relaxed retry (floor 0) when the default floor
// leaves nothing, without mutating the client's configured default.
func (c *Client) RerankWithMinScore(ctx context.Context, query string, candidates []types.SearchResult, topN int, minScore float64) ([]types.RerankResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := make([]string, len(candidates))
	for i, cand := range candidates {
		b, err := yaml.Marshal(toDocument(cand))
		if err != nil {
			return nil, apperr.New(apperr.KindRerank, fmt.Errorf("serialize candidate %d: %w", i, err))
		}
		docs[i] = string(b)
	}

	var resp *rerankResponse
	var err error
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		resp, err = c.call(ctx, query, docs, topN)
		if err == nil {
			break
		}
		logger.Warnf(ctx, "rerank attempt %d failed: %v", attempt+1, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if err != nil {
		return nil, apperr.Transient(apperr.KindRerank, err)
	}

	out := make([]types.RerankResult, 0, len(resp.Results))
	for _, item := range resp.Results {
		if item.RelevanceScore < minScore {
			continue
		}
		if item.Index < 0 || item.Index >= len(candidates) {
			continue
		}
		out = append(out, types.RerankResult{
			SearchResult:   candidates[item.Index],
			RelevanceScore: item.RelevanceScore,
			OriginalIndex:  item.Index,
		})
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, query string, docs []string, topN int) (*rerankResponse, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Documents: docs, TopN: topN})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank endpoint returned status %d", resp.StatusCode)
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
