package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffdc.sales_insights/pkg/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	dbPath := filepath.Join(dir, "ecommerce.db")
	t.Setenv("INSIGHTS_DB_PATH", dbPath)
	t.Setenv("GEMINI_API_KEY", "")

	csv := filepath.Join(dir, "ads.csv")
	require.NoError(t, os.WriteFile(csv, []byte("date,item_id,ad_sales\n2025-06-01,1,10\n2025-06-02,2,12.5\n"), 0o644))
	return csv
}

func TestLoadSchemaSample(t *testing.T) {
	csv := setup(t)

	out, err := run(t, "load", "--table", "ad_sales_metrics", "--file", csv)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 table(s)")

	out, err = run(t, "schema", "ad_sales_metrics", "total_sales_metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "ad_sales_metrics columns:\n  date\n  item_id\n  ad_sales\n")
	assert.Contains(t, out, "total_sales_metrics columns:\n  (table not found)")

	out, err = run(t, "sample", "ad_sales_metrics", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, `{"date":"2025-06-01","item_id":1,"ad_sales":10}`+"\n", out)
}

func TestLoad_FlagsTogether(t *testing.T) {
	setup(t)
	_, err := run(t, "load", "--table", "x", "--file", "")
	assert.Error(t, err)
}

func TestAsk_TypesAnswerAndChart(t *testing.T) {
	setup(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"question":"q","generated_sql":"SELECT 1","answer":[{"day":"mon","sales":4},{"day":"tue","sales":2}]}`))
	}))
	defer srv.Close()

	out, err := run(t, "ask", "--endpoint", srv.URL, "sales", "per", "day")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "[\n  {\n    \"day\": \"mon\",\n    \"sales\": 4\n  },"))
	assert.Contains(t, out, "sales by day")
	assert.Contains(t, out, "█")
}

func TestAsk_NoticeForSingleColumn(t *testing.T) {
	setup(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"question":"q","generated_sql":"SELECT 1","answer":[{"n":3}]}`))
	}))
	defer srv.Close()

	out, err := run(t, "ask", "--endpoint", srv.URL, "how many")
	require.NoError(t, err)
	assert.Contains(t, out, chartNotice)
}

func TestAsk_ServerError(t *testing.T) {
	setup(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"generation failed"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := run(t, "ask", "--endpoint", srv.URL, "q")
	assert.Error(t, err)
	assert.Contains(t, out, "Error: Failed to fetch")
}

func TestIndent_NonTabular(t *testing.T) {
	s, err := indent([]byte(`{"a":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    2\n  ]\n}", s)
}

func TestOpenDatabases_FreshInstall(t *testing.T) {
	for _, withWriter := range []bool{true, false} {
		cfg = config.Default()
		cfg.Database.Path = filepath.Join(t.TempDir(), "ecommerce.db")

		store, writer, err := openDatabases(withWriter)
		require.NoError(t, err)
		assert.Equal(t, withWriter, writer != nil)

		ok, err := store.IsDBPopulated(context.Background(), cfg.Database.Tables)
		require.NoError(t, err)
		assert.False(t, ok)

		if writer != nil {
			_, err = writer.Exec(`CREATE TABLE ad_sales_metrics (a TEXT); CREATE TABLE total_sales_metrics (b TEXT);`)
			require.NoError(t, err)
			ok, err = store.IsDBPopulated(context.Background(), cfg.Database.Tables)
			require.NoError(t, err)
			assert.True(t, ok)
			writer.Close()
		}
		store.DB().Close()
	}
}
