package narrator

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You narrate interactive fiction. Answer with YAML only."

// openAI talks to any OpenAI-compatible chat completions endpoint.
type openAI struct {
	client *openai.Client
	model  string
}

func newOpenAI(apiKey, baseURL, model string) *openAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *openAI) name() string { return "openai" }

func (o *openAI) close() error { return nil }

func (o *openAI) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: %w", errNoContent)
	}
	return resp.Choices[0].Message.Content, nil
}
