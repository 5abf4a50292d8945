package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Model abstracts the generative backend so the classifier can be tested
// with a fake.
type Model interface {
	// GenerateText sends a text-only prompt and returns the raw model output.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateFromImage sends a prompt plus an inline image and returns the
	// raw model output.
	GenerateFromImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

// GeminiModel is the genai-backed Model implementation.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates the genai client. An empty model name falls back
// to DefaultModelName.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (m *GeminiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func (m *GeminiModel) GenerateFromImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
