package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const DefaultOllamaModel = "llama3"

type chatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// OllamaGenerator asks a local Ollama model for the query.
type OllamaGenerator struct {
	client chatClient
	model  string
}

// NewOllamaGenerator uses host when set, OLLAMA_HOST otherwise.
func NewOllamaGenerator(host, model string) (*OllamaGenerator, error) {
	if model == "" {
		model = DefaultOllamaModel
	}

	var (
		client *api.Client
		err    error
	)
	if host != "" {
		base, perr := url.Parse(host)
		if perr != nil {
			return nil, fmt.Errorf("ollama host: %w", perr)
		}
		client = api.NewClient(base, http.DefaultClient)
	} else {
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	return &OllamaGenerator{client: client, model: model}, nil
}

func (o *OllamaGenerator) Name() string {
	return "ollama:" + o.model
}

func (o *OllamaGenerator) GenerateSQL(ctx context.Context, question string, schemas []TableSchema) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:  o.model,
		Stream: &stream,
		Messages: []api.Message{
			{Role: "user", Content: BuildPrompt(question, schemas)},
		},
		Options: map[string]any{
			"temperature": 0,
			"num_predict": 512,
		},
	}

	var content strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	sql := CleanSQL(content.String())
	if sql == "" {
		return "", errors.New("ollama: empty response")
	}
	return sql, nil
}
