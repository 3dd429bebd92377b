package generate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajor2000/chatcore/internal/apperr"
)

func newTestOpenAIGenerator(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIGenerator(openai.NewClientWithConfig(cfg), "gpt-4o-mini")
}

func TestOpenAIGenerator_Generate_ReturnsFirstChoice(t *testing.T) {
	g := newTestOpenAIGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "Per Reference #486, read back is required."}}},
		})
	})

	text, err := g.Generate(t.Context(), "system prompt", "what is the policy", 200, 0)
	require.NoError(t, err)
	assert.Equal(t, "Per Reference #486, read back is required.", text)
}

func TestOpenAIGenerator_Generate_NoChoicesIsAnError(t *testing.T) {
	g := newTestOpenAIGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{},
		})
	})

	_, err := g.Generate(t.Context(), "system prompt", "what is the policy", 200, 0)
	assert.Error(t, err)
}

func TestOpenAIGenerator_Generate_ServerErrorIsTransient(t *testing.T) {
	g := newTestOpenAIGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "overloaded"}})
	})

	_, err := g.Generate(t.Context(), "system prompt", "what is the policy", 200, 0)
	assert.Error(t, err)
	assert.True(t, apperr.IsTransient(err))
}
