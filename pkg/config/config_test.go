package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "INSIGHTS_ADDR", "INSIGHTS_DB_PATH", "INSIGHTS_PROVIDER", "INSIGHTS_MODEL"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://127.0.0.1:5500"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"ad_sales_metrics", "total_sales_metrics"}, cfg.Database.Tables)
	assert.True(t, cfg.Database.ReadOnly)
	assert.Equal(t, "gemini-1.5-flash", cfg.Generator.Model)
	assert.Equal(t, 10*time.Millisecond, cfg.Widget.TypeDelay)
	assert.Len(t, cfg.Datasets, 3)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "insights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  shutdown_timeout: 3s
database:
  tables: [eligibility_table]
generator:
  provider: ollama
  model: qwen2.5-coder
widget:
  type_delay: 25ms
`), 0o644))
	t.Setenv("INSIGHTS_DB_PATH", "/data/sales.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"eligibility_table"}, cfg.Database.Tables)
	assert.Equal(t, "/data/sales.db", cfg.Database.Path)
	assert.Equal(t, "ollama", cfg.Generator.Provider)
	assert.Equal(t, 25*time.Millisecond, cfg.Widget.TypeDelay)
	assert.Equal(t, []string{"http://127.0.0.1:5500"}, cfg.Server.AllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("GEMINI_API_KEY"))
	require.NoError(t, os.WriteFile(".env", []byte("GEMINI_API_KEY=from-dotenv\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Generator.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	cfg.Generator.APIKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.Generator.Provider = "bard"
	cfg.Database.Tables = nil
	err = cfg.Validate()
	assert.ErrorContains(t, err, "bard")
	assert.ErrorContains(t, err, "database.tables")
}
