// Package generate implements the Generator stage against two
// backends — OpenAI-compatible chat completions and local Ollama —
// grounded on the teacher's per-backend chat client pattern (one
// struct per backend implementing a shared interface, streaming via a
// channel the caller ranges over).
package generate

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sajor2000/chatcore/internal/apperr"
	"github.com/sajor2000/chatcore/internal/logger"
)

// OpenAIGenerator implements interfaces.Generator against any
// OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", apperr.Transient(apperr.KindGeneration, fmt.Errorf("openai completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindGeneration, fmt.Errorf("openai completion: no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Stream(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32, ch chan<- string) error {
	defer close(ch)

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      true,
	})
	if err != nil {
		return apperr.Transient(apperr.KindGeneration, fmt.Errorf("openai stream: %w", err))
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if err.Error() == "EOF" {
				return nil
			}
			logger.Errorf(ctx, "openai stream recv failed: %v", err)
			return apperr.Transient(apperr.KindGeneration, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		select {
		case ch <- delta:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
