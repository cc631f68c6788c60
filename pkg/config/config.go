package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ffdc.sales_insights/pkg/loader"
	"ffdc.sales_insights/pkg/sqlgen"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Generator sqlgen.Config    `yaml:"generator"`
	Widget    WidgetConfig     `yaml:"widget"`
	Datasets  []loader.Dataset `yaml:"datasets"`
	Log       LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxConnections  int           `yaml:"max_connections"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	UploadDir       string        `yaml:"upload_dir"`
}

type DatabaseConfig struct {
	Path     string   `yaml:"path"`
	Tables   []string `yaml:"tables"`
	ReadOnly bool     `yaml:"read_only"`
}

type WidgetConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	TypeDelay time.Duration `yaml:"type_delay"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8000",
			AllowedOrigins:  []string{"http://127.0.0.1:5500"},
			ShutdownTimeout: 10 * time.Second,
			MaxConnections:  256,
			RateLimit:       5,
			RateBurst:       10,
			UploadDir:       "./uploads",
		},
		Database: DatabaseConfig{
			Path:     "ecommerce.db",
			Tables:   []string{"ad_sales_metrics", "total_sales_metrics"},
			ReadOnly: true,
		},
		Generator: sqlgen.Config{
			Provider: sqlgen.ProviderGemini,
			Model:    sqlgen.DefaultGeminiModel,
		},
		Widget: WidgetConfig{
			Endpoint:  "http://127.0.0.1:8000/ask",
			TypeDelay: 10 * time.Millisecond,
		},
		Datasets: loader.DefaultDatasets(),
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads .env, then path (if non-empty) over the defaults, then the
// environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv("INSIGHTS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("INSIGHTS_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("INSIGHTS_PROVIDER"); v != "" {
		c.Generator.Provider = v
	}
	if v := os.Getenv("INSIGHTS_MODEL"); v != "" {
		c.Generator.Model = v
	}
}

// Validate checks what serving questions needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.Generator.Provider {
	case sqlgen.ProviderGemini:
		if c.Generator.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is not set"))
		}
	case sqlgen.ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown generator provider %q", c.Generator.Provider))
	}
	if len(c.Database.Tables) == 0 {
		errs = append(errs, errors.New("database.tables must list at least one table"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	return errors.Join(errs...)
}
