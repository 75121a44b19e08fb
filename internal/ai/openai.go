package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIGateway talks to any OpenAI-compatible chat completion endpoint via
// langchaingo. Attachments are inlined as base64 data URIs, which is how
// vision models accept documents over the chat API.
type OpenAIGateway struct {
	llm         *openai.LLM
	model       string
	temperature float64
}

var _ Gateway = (*OpenAIGateway)(nil)

type Config struct {
	BaseUrl     string
	Token       string
	Model       string
	Temperature float64
}

func NewOpenAIGateway(cfg Config) (*OpenAIGateway, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.Token),
	}
	if cfg.BaseUrl != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseUrl))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &OpenAIGateway{llm: llm, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (g *OpenAIGateway) Chat(ctx context.Context, prompt string, attachments []Attachment) ([]Message, error) {
	parts := make([]llms.ContentPart, 0, len(attachments)+1)
	parts = append(parts, llms.TextPart(prompt))
	for _, a := range attachments {
		uri := fmt.Sprintf("data:%s;base64,%s", a.MIMEType, base64.StdEncoding.EncodeToString(a.Data))
		parts = append(parts, llms.ImageURLPart(uri))
	}

	resp, err := g.llm.GenerateContent(ctx,
		[]llms.MessageContent{{Role: llms.ChatMessageTypeHuman, Parts: parts}},
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		messages = append(messages, Message{Content: choice.Content})
	}
	return messages, nil
}

func (g *OpenAIGateway) Model() string {
	return g.model
}
