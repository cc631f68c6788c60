package chart

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffdc.sales_insights/pkg/tabular"
)

func sample(t *testing.T, raw string) tabular.BarChart {
	t.Helper()
	rows, ok := tabular.Decode([]byte(raw))
	require.True(t, ok)
	bc, err := tabular.NewBarChart(rows)
	require.NoError(t, err)
	return bc
}

func TestRenderPNG(t *testing.T) {
	bc := sample(t, `[{"item_id":"A1","sales":12.5},{"item_id":"B2","sales":30},{"item_id":"C3","sales":7}]`)

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, bc))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderPNG_NoNumericValues(t *testing.T) {
	bc := sample(t, `[{"item":"A","state":"ok"},{"item":"B","state":"late"}]`)

	err := RenderPNG(&bytes.Buffer{}, bc)
	assert.ErrorIs(t, err, ErrNoNumericValues)
}

func TestRenderTerminal(t *testing.T) {
	bc := sample(t, `[{"day":"mon","sales":10},{"day":"tuesday","sales":5},{"day":"wed","sales":"n/a"}]`)

	out, err := RenderTerminal(bc, 40)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "sales by day")
	assert.Contains(t, lines[1], "    mon")
	assert.Contains(t, lines[2], "tuesday")
	assert.Greater(t, strings.Count(lines[1], "█"), strings.Count(lines[2], "█"))
	assert.Equal(t, 0, strings.Count(lines[3], "█"))
	assert.Contains(t, lines[4], "x: day")
}

func TestToFloat(t *testing.T) {
	for _, v := range []any{1.5, int64(2), 3, json.Number("4.5"), " 6 "} {
		_, ok := toFloat(v)
		assert.True(t, ok, "%#v", v)
	}
	for _, v := range []any{nil, "abc", true, []any{1}} {
		_, ok := toFloat(v)
		assert.False(t, ok, "%#v", v)
	}
}
