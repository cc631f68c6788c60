package sqlgen

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Generator turns a natural language question into a single SQLite query
// over the given table schemas.
type Generator interface {
	GenerateSQL(ctx context.Context, question string, schemas []TableSchema) (string, error)
	Name() string
}

type TableSchema struct {
	Table   string
	Columns []string
}

type Config struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"-"`
	OllamaHost string `yaml:"ollama_host"`
}

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

func New(ctx context.Context, cfg Config) (Generator, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model)
	case ProviderOllama:
		return NewOllamaGenerator(cfg.OllamaHost, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

func BuildPrompt(question string, schemas []TableSchema) string {
	var b strings.Builder
	b.WriteString("You are an expert data analyst. Convert the user question into a clean, executable SQLite SQL query.\n\n")
	b.WriteString("Use ONLY the following tables and columns:\n\n")
	for _, s := range schemas {
		fmt.Fprintf(&b, "- %s (%s)\n", s.Table, strings.Join(s.Columns, ", "))
	}
	b.WriteString("\nNever use a table named 'sales'.\n")
	b.WriteString("Never wrap your SQL inside ``` or add the word 'sql'.\n")
	b.WriteString("Return ONLY the query.\n\n")
	fmt.Fprintf(&b, "User question: %s\n", question)
	return b.String()
}

var fence = regexp.MustCompile("(?i)```(sql)?")

// CleanSQL removes markdown fences models add despite being told not to.
func CleanSQL(raw string) string {
	return strings.TrimSpace(fence.ReplaceAllString(strings.TrimSpace(raw), ""))
}
