package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ffdc.sales_insights/pkg/qa"
)

// Asker answers a question; *qa.Service is the production implementation.
type Asker interface {
	Ask(ctx context.Context, question string) (*qa.Result, error)
}

type QuestionRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON encodes v before touching the response so an encoding failure
// can still be reported as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errorResponse{Detail: "encode response: " + err.Error()})
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// AskHandler serves POST /ask.
func AskHandler(asker Asker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req QuestionRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
			return
		}

		res, err := asker.Ask(r.Context(), req.Question)
		if err != nil {
			if errors.Is(err, qa.ErrEmptyQuestion) {
				writeDetail(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			logger.Error("ask failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := writeJSON(w, http.StatusOK, res); err != nil {
			logger.Error("writing answer failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		}
	}
}
