package qa

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"ffdc.sales_insights/pkg/sqlgen"
	"ffdc.sales_insights/pkg/tabular"
)

var ErrEmptyQuestion = errors.New("question must not be empty")

const (
	StageSchema     = "schema"
	StageGeneration = "generation"
	StageQuery      = "query"
)

// StageError records which step of the pipeline failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Store is the part of the database the pipeline needs.
type Store interface {
	Schemas(ctx context.Context, tables []string) (map[string][]string, error)
	ExecuteQuery(ctx context.Context, query string) ([]tabular.Row, error)
}

type Result struct {
	Question     string            `json:"question"`
	GeneratedSQL string            `json:"generated_sql"`
	Answer       []tabular.Row     `json:"answer"`
	Chart        *tabular.BarChart `json:"chart,omitempty"`
}

type Service struct {
	store     Store
	generator sqlgen.Generator
	tables    []string
	logger    *zap.Logger
}

func NewService(store Store, generator sqlgen.Generator, tables []string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		generator: generator,
		tables:    tables,
		logger:    logger,
	}
}

func (s *Service) Tables() []string {
	return append([]string(nil), s.tables...)
}

// Ask answers question by generating SQL over the configured tables and
// running it.
func (s *Service) Ask(ctx context.Context, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	log := s.logger.With(zap.String("question", question))
	start := time.Now()

	cols, err := s.store.Schemas(ctx, s.tables)
	if err != nil {
		return nil, &StageError{Stage: StageSchema, Err: err}
	}
	schemas := make([]sqlgen.TableSchema, 0, len(s.tables))
	for _, t := range s.tables {
		schemas = append(schemas, sqlgen.TableSchema{Table: t, Columns: cols[t]})
	}
	log.Debug("schema fetched", zap.Any("schemas", cols))

	query, err := s.generator.GenerateSQL(ctx, question, schemas)
	if err != nil {
		return nil, &StageError{Stage: StageGeneration, Err: err}
	}
	log.Debug("sql generated", zap.String("generator", s.generator.Name()), zap.String("sql", query))

	rows, err := s.store.ExecuteQuery(ctx, query)
	if err != nil {
		log.Warn("query failed", zap.String("sql", query), zap.Error(err))
		return nil, &StageError{Stage: StageQuery, Err: err}
	}
	if err := checkFinite(rows); err != nil {
		log.Warn("query returned a value JSON cannot carry", zap.String("sql", query), zap.Error(err))
		return nil, &StageError{Stage: StageQuery, Err: err}
	}

	res := &Result{
		Question:     question,
		GeneratedSQL: query,
		Answer:       rows,
	}
	if bc, err := tabular.NewBarChart(rows); err == nil {
		res.Chart = &bc
	}

	log.Info("question answered",
		zap.Int("rows", len(rows)),
		zap.Bool("chart", res.Chart != nil),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// checkFinite rejects NaN and infinities, which have no JSON encoding.
func checkFinite(rows []tabular.Row) error {
	for i, row := range rows {
		for _, k := range row.Keys() {
			v, _ := row.Get(k)
			if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
				return fmt.Errorf("row %d column %q: %v is out of range", i+1, k, f)
			}
		}
	}
	return nil
}
