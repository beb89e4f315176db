// Package ai assesses alert digests with a language model through the
// OpenAI-compatible chat API.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"netsentry/internal/config"
)

// Analyzer implements model.Analyzer using OpenAI's API.
type Analyzer struct {
	cfg    *config.AIConfig
	client *openai.Client
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer(cfg *config.AIConfig) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is not configured")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)

	// If a custom BaseURL is defined, override the default one
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	client := openai.NewClientWithConfig(clientConfig)

	return &Analyzer{cfg: cfg, client: client}, nil
}

// AnalyzeTraffic analyzes the input text and returns a summary or insights.
func (a *Analyzer) AnalyzeTraffic(ctx context.Context, input string) (string, error) {
	prompt := fmt.Sprintf(
		"You are a senior network security analyst. "+
			"Please analyze the following intrusion alert summary from the NetSentry monitoring system. "+
			"Provide a concise analysis of the potential threat, its severity, and recommended next steps for investigation. "+
			"The output should be clear and actionable.\n\n"+
			"--- Alert Data ---\n%s\n--- End of Alert Data ---", input,
	)

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("AI request timeout: %w", err)
		}
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("AI request canceled by client: %w", err)
		}
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// AnalyzeStream processes a free-form prompt and hands the response to
// sendChunk piece by piece as the model produces it.
func (a *Analyzer) AnalyzeStream(ctx context.Context, prompt string, sendChunk func(string) error) error {
	req := openai.ChatCompletionRequest{
		Model:     a.cfg.Model,
		MaxTokens: 2048,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Stream: true,
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create chat completion stream: %w", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil // Stream finished successfully
		}
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}

		chunk := response.Choices[0].Delta.Content
		if err := sendChunk(chunk); err != nil {
			// This error might occur if the client disconnects
			return fmt.Errorf("failed to send chunk to client: %w", err)
		}
	}
}
