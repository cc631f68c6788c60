package sqlgen

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-1.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator asks Gemini for the query.
type GeminiGenerator struct {
	models contentGenerator
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGenerator{models: client.Models, model: model}, nil
}

func (g *GeminiGenerator) Name() string {
	return "gemini:" + g.model
}

func (g *GeminiGenerator) GenerateSQL(ctx context.Context, question string, schemas []TableSchema) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model,
		genai.Text(BuildPrompt(question, schemas)),
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	sql := CleanSQL(resp.Text())
	if sql == "" {
		return "", errors.New("gemini: empty response")
	}
	return sql, nil
}
