// Package gemini adapts Google's Gemini models to the reflection judge and the module assistant.
package gemini

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/lumina/core"
)

// generator is the part of the genai client used here (*genai.Models).
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient returns the genai client of the app, or nil if no API key is configured.
func NewClient(ctx context.Context, conf core.GenAIConfig) (*genai.Client, error) {
	if conf.APIKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	return client, nil
}
