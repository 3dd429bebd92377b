package generate

import (
	"context"
	"fmt"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/sajor2000/chatcore/internal/apperr"
)

// OllamaGenerator implements interfaces.Generator against a local
// Ollama server, for deployments that keep generation on-prem.
type OllamaGenerator struct {
	client *ollamaapi.Client
	model  string
}

func NewOllamaGenerator(client *ollamaapi.Client, model string) *OllamaGenerator {
	return &OllamaGenerator{client: client, model: model}
}

func (g *OllamaGenerator) messages(systemPrompt, userPrompt string) []ollamaapi.Message {
	return []ollamaapi.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	streamFlag := false
	req := &ollamaapi.ChatRequest{
		Model:    g.model,
		Messages: g.messages(systemPrompt, userPrompt),
		Stream:   &streamFlag,
		Options: map[string]interface{}{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	var content string
	err := g.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
		content = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", apperr.Transient(apperr.KindGeneration, fmt.Errorf("ollama chat: %w", err))
	}
	return content, nil
}

func (g *OllamaGenerator) Stream(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32, ch chan<- string) error {
	defer close(ch)

	streamFlag := true
	req := &ollamaapi.ChatRequest{
		Model:    g.model,
		Messages: g.messages(systemPrompt, userPrompt),
		Stream:   &streamFlag,
		Options: map[string]interface{}{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	err := g.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		select {
		case ch <- resp.Message.Content:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return apperr.Transient(apperr.KindGeneration, fmt.Errorf("ollama stream: %w", err))
	}
	return nil
}
