package loader

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ffdc.sales_insights/pkg/database"
)

// Dataset maps a CSV export onto the table it is loaded into.
type Dataset struct {
	Table string `yaml:"table"`
	Path  string `yaml:"path"`
}

func DefaultDatasets() []Dataset {
	return []Dataset{
		{Table: "ad_sales_metrics", Path: "data/Product-Level Ad Sales and Metrics (mapped).csv"},
		{Table: "total_sales_metrics", Path: "data/Product-Level Total Sales and Metrics (mapped).csv"},
		{Table: "eligibility_table", Path: "data/Product-Level Eligibility Table (mapped).csv"},
	}
}

type columnType int

const (
	typeInteger columnType = iota
	typeReal
	typeText
)

func (c columnType) String() string {
	switch c {
	case typeInteger:
		return "INTEGER"
	case typeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// LoadAll loads datasets in order and stops at the first failure.
func LoadAll(ctx context.Context, db *sql.DB, datasets []Dataset, logger *zap.Logger) error {
	for _, ds := range datasets {
		n, err := LoadFile(ctx, db, ds.Table, ds.Path)
		if err != nil {
			return fmt.Errorf("load %q: %w", ds.Path, err)
		}
		logger.Info("table loaded", zap.String("table", ds.Table), zap.Int("rows", n))
	}
	return nil
}

func LoadFile(ctx context.Context, db *sql.DB, table, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Load(ctx, db, table, f)
}

// Load replaces table with the CSV read from r and returns the row count.
// Column types are inferred from the non-empty cells; empty cells are NULL.
func Load(ctx context.Context, db *sql.DB, table string, r io.Reader) (int, error) {
	if strings.TrimSpace(table) == "" {
		return 0, errors.New("table name is required")
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, errors.New("csv has no header")
		}
		return 0, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	header = columnNames(header)

	records, err := cr.ReadAll()
	if err != nil {
		return 0, err
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return 0, fmt.Errorf("line %d: %d fields, header has %d", i+2, len(rec), len(header))
		}
	}

	types := inferTypes(header, records)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+database.QuoteIdent(table)); err != nil {
		return 0, err
	}

	defs := make([]string, len(header))
	marks := make([]string, len(header))
	for i, col := range header {
		defs[i] = database.QuoteIdent(col) + " " + types[i].String()
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", database.QuoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, err
	}

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", database.QuoteIdent(table), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for _, rec := range records {
		for i, cell := range rec {
			args[i] = convert(cell, types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// columnNames names blank header cells "Unnamed: <index>" and suffixes
// repeated names with ".1", ".2" and so on. SQLite compares column names
// case-insensitively, so repeats are detected the same way.
func columnNames(header []string) []string {
	out := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, col := range header {
		if strings.TrimSpace(col) == "" {
			col = fmt.Sprintf("Unnamed: %d", i)
		}
		n := counts[strings.ToLower(col)]
		for n > 0 {
			counts[strings.ToLower(col)] = n + 1
			col = fmt.Sprintf("%s.%d", col, n)
			n = counts[strings.ToLower(col)]
		}
		counts[strings.ToLower(col)] = n + 1
		out[i] = col
	}
	return out
}

func inferTypes(header []string, records [][]string) []columnType {
	types := make([]columnType, len(header))
	for i := range header {
		t := typeInteger
		seen := false
		for _, rec := range records {
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			seen = true
			if t == typeInteger {
				if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
					continue
				}
				t = typeReal
			}
			if t == typeReal {
				if _, err := strconv.ParseFloat(cell, 64); err == nil {
					continue
				}
				t = typeText
				break
			}
		}
		if !seen {
			t = typeText
		}
		types[i] = t
	}
	return types
}

func convert(cell string, t columnType) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	switch t {
	case typeInteger:
		v, _ := strconv.ParseInt(trimmed, 10, 64)
		return v
	case typeReal:
		v, _ := strconv.ParseFloat(trimmed, 64)
		return v
	default:
		return cell
	}
}
