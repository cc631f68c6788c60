package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"ffdc.sales_insights/pkg/tabular"
)

var ErrNoNumericValues = errors.New("no numeric values to plot")

var purple = drawing.Color{R: 128, G: 0, B: 128, A: 255}

const (
	barWidth   = 40
	barSpacing = 20
	minWidth   = 640
	height     = 480
)

type bar struct {
	label string
	value float64
}

func bars(bc tabular.BarChart) ([]bar, error) {
	out := make([]bar, len(bc.X))
	numeric := false
	for i := range bc.X {
		out[i].label = label(bc.X[i])
		if i < len(bc.Y) {
			if v, ok := toFloat(bc.Y[i]); ok {
				out[i].value = v
				numeric = true
			}
		}
	}
	if !numeric {
		return nil, ErrNoNumericValues
	}
	return out, nil
}

// RenderPNG draws bc as a vertical bar chart.
func RenderPNG(w io.Writer, bc tabular.BarChart) error {
	bs, err := bars(bc)
	if err != nil {
		return err
	}

	lo, hi := 0.0, 0.0
	values := make([]gochart.Value, len(bs))
	for i, b := range bs {
		lo, hi = math.Min(lo, b.value), math.Max(hi, b.value)
		values[i] = gochart.Value{
			Label: b.label,
			Value: b.value,
			Style: gochart.Style{
				FillColor:   purple,
				StrokeColor: purple,
			},
		}
	}

	width := len(bs)*(barWidth+barSpacing) + 160
	if width < minWidth {
		width = minWidth
	}

	c := gochart.BarChart{
		Title:      bc.Title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: lo, Max: math.Max(hi, lo+1)},
		},
		Bars: values,
	}
	if err := c.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#800080"))
	axisStyle  = lipgloss.NewStyle().Faint(true)
)

// RenderTerminal draws bc as horizontal bars no wider than width cells.
// Negative values are drawn as empty bars.
func RenderTerminal(bc tabular.BarChart, width int) (string, error) {
	bs, err := bars(bc)
	if err != nil {
		return "", err
	}
	if width < 20 {
		width = 20
	}

	labelWidth, valueWidth := 0, 0
	maxValue := 0.0
	for _, b := range bs {
		labelWidth = max(labelWidth, lipgloss.Width(b.label))
		valueWidth = max(valueWidth, len(formatValue(b.value)))
		maxValue = math.Max(maxValue, b.value)
	}
	barSpace := max(width-labelWidth-valueWidth-4, 1)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(bc.Title))
	sb.WriteString("\n")
	for _, b := range bs {
		n := 0
		if maxValue > 0 && b.value > 0 {
			n = int(math.Round(b.value / maxValue * float64(barSpace)))
		}
		pad := strings.Repeat(" ", labelWidth-lipgloss.Width(b.label))
		sb.WriteString(pad + b.label)
		sb.WriteString(axisStyle.Render(" │ "))
		sb.WriteString(barStyle.Render(strings.Repeat("█", n)))
		sb.WriteString(" " + formatValue(b.value) + "\n")
	}
	sb.WriteString(axisStyle.Render(fmt.Sprintf("x: %s  y: %s", bc.XKey, bc.YKey)))
	sb.WriteString("\n")
	return sb.String(), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func label(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return formatValue(x)
	default:
		return fmt.Sprint(x)
	}
}

func formatValue(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
