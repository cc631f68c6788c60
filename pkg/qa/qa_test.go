package qa

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ffdc.sales_insights/pkg/database"
	"ffdc.sales_insights/pkg/sqlgen"
)

type stubGenerator struct {
	sql     string
	err     error
	schemas []sqlgen.TableSchema
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) GenerateSQL(_ context.Context, _ string, schemas []sqlgen.TableSchema) (string, error) {
	g.schemas = schemas
	return g.sql, g.err
}

func newStore(t *testing.T) *database.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecommerce.db")

	rw, err := database.InitDB(path, false)
	require.NoError(t, err)
	_, err = rw.Exec(`
		CREATE TABLE total_sales_metrics (date TEXT, item_id INTEGER, total_sales REAL);
		INSERT INTO total_sales_metrics VALUES ('2025-06-01', 1, 100), ('2025-06-01', 2, 50), ('2025-06-02', 1, 25);
		CREATE TABLE ad_sales_metrics (date TEXT, item_id INTEGER, ad_spend REAL);`)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	db, err := database.InitDB(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewStore(db)
}

var tables = []string{"ad_sales_metrics", "total_sales_metrics"}

func TestAsk_Chartable(t *testing.T) {
	gen := &stubGenerator{sql: "SELECT date, SUM(total_sales) AS total FROM total_sales_metrics GROUP BY date ORDER BY date"}
	svc := NewService(newStore(t), gen, tables, zap.NewNop())

	res, err := svc.Ask(context.Background(), "  total sales per day?  ")
	require.NoError(t, err)

	assert.Equal(t, "total sales per day?", res.Question)
	assert.Equal(t, gen.sql, res.GeneratedSQL)
	require.Len(t, res.Answer, 2)
	require.NotNil(t, res.Chart)
	assert.Equal(t, "total by date", res.Chart.Title)

	require.Len(t, gen.schemas, 2)
	assert.Equal(t, "ad_sales_metrics", gen.schemas[0].Table)
	assert.Equal(t, []string{"date", "item_id", "total_sales"}, gen.schemas[1].Columns)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"answer":[{"date":"2025-06-01","total":150},{"date":"2025-06-02","total":25}]`)
}

func TestAsk_SingleColumnHasNoChart(t *testing.T) {
	gen := &stubGenerator{sql: "SELECT SUM(total_sales) AS total FROM total_sales_metrics"}
	svc := NewService(newStore(t), gen, tables, nil)

	res, err := svc.Ask(context.Background(), "total?")
	require.NoError(t, err)
	assert.Nil(t, res.Chart)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"chart"`)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc := NewService(newStore(t), &stubGenerator{}, tables, nil)

	_, err := svc.Ask(context.Background(), " \n\t")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_StageErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewService(newStore(t), &stubGenerator{err: boom}, tables, nil).Ask(context.Background(), "q")
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageGeneration, se.Stage)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "generation failed: boom", err.Error())

	_, err = NewService(newStore(t), &stubGenerator{sql: "SELECT * FROM sales"}, tables, nil).Ask(context.Background(), "q")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageQuery, se.Stage)
}

type failingStore struct{ *database.Store }

func (failingStore) Schemas(context.Context, []string) (map[string][]string, error) {
	return nil, errors.New("disk gone")
}

func TestAsk_SchemaError(t *testing.T) {
	svc := NewService(failingStore{newStore(t)}, &stubGenerator{}, tables, nil)

	_, err := svc.Ask(context.Background(), "q")
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSchema, se.Stage)
}

func TestAsk_NonFiniteValueIsQueryError(t *testing.T) {
	gen := &stubGenerator{sql: "SELECT 'A' AS item, 1e999 AS v"}
	_, err := NewService(newStore(t), gen, tables, nil).Ask(context.Background(), "q")

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageQuery, se.Stage)
	assert.Contains(t, err.Error(), `query failed: row 1 column "v"`)
}
