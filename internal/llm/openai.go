package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const capabilitiesHeading = "## Available Capability Providers:"

// OpenAI is a Completer backed by any OpenAI-compatible chat endpoint.
type OpenAI struct {
	Model       llms.Model
	Temperature float64
	MaxTokens   int
}

func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrAuth)
	}
	clientOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
	}
	if opts.Model != "" {
		clientOpts = append(clientOpts, openai.WithModel(opts.Model))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return &OpenAI{Model: model, Temperature: opts.Temperature, MaxTokens: opts.MaxTokens}, nil
}

func (o *OpenAI) Complete(ctx context.Context, prompt string, c Context) (string, error) {
	system, err := systemMessage(c)
	if err != nil {
		return "", err
	}

	var messages []llms.MessageContent
	if system != "" {
		messages = append(messages, llms.MessageContent{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  schema.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	var callOpts []llms.CallOption
	if o.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(o.Temperature))
	}
	if o.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(o.MaxTokens))
	}

	resp, err := o.Model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// systemMessage folds the capability list into the instruction the same way
// for every back-end.
func systemMessage(c Context) (string, error) {
	if c.Capabilities == nil {
		return c.System, nil
	}
	caps, err := json.MarshalIndent(c.Capabilities, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode capabilities: %w", err)
	}
	return fmt.Sprintf("%s\n\n%s\n%s", c.System, capabilitiesHeading, caps), nil
}

func classify(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(strings.ToLower(msg), "api key") {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
