package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"ffdc.sales_insights/pkg/chart"
	"ffdc.sales_insights/pkg/tabular"
)

// ChartHandler renders a posted answer array as a PNG bar chart.
func ChartHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "bad request: "+err.Error())
			return
		}

		rows, ok := tabular.Decode(body)
		if !ok {
			writeDetail(w, http.StatusUnprocessableEntity, "answer must be an array of objects")
			return
		}
		bc, err := tabular.NewBarChart(rows)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		var buf bytes.Buffer
		if err := chart.RenderPNG(&buf, bc); err != nil {
			if errors.Is(err, chart.ErrNoNumericValues) {
				writeDetail(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			logger.Error("chart render failed", zap.Error(err))
			writeDetail(w, http.StatusInternalServerError, "failed to render chart")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}
}
