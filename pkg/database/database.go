package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"ffdc.sales_insights/pkg/tabular"
)

// InitDB opens the SQLite file at dbPath. Read-only handles are used for
// model generated queries so nothing the model writes can reach the data.
// A missing file is created empty in both modes.
func InitDB(dbPath string, readOnly bool) (*sql.DB, error) {
	dsn := dbPath
	if readOnly {
		if err := createIfMissing(dbPath); err != nil {
			return nil, fmt.Errorf("open %s: %w", dbPath, err)
		}
		dsn = "file:" + dbPath + "?mode=ro"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return db, nil
}

// createIfMissing leaves an empty file at path, which SQLite reads as an
// empty database.
func createIfMissing(path string) error {
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// QuoteIdent quotes a table or column name for SQLite.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// TableSchema returns the column names of table in declaration order. A
// missing table yields no columns and no error, like PRAGMA table_info.
func (s *Store) TableSchema(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+QuoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (s *Store) Schemas(ctx context.Context, tables []string) (map[string][]string, error) {
	out := make(map[string][]string, len(tables))
	for _, t := range tables {
		cols, err := s.TableSchema(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("schema of %s: %w", t, err)
		}
		out[t] = cols
	}
	return out, nil
}

// IsDBPopulated reports whether every table in tables exists.
func (s *Store) IsDBPopulated(ctx context.Context, tables []string) (bool, error) {
	for _, t := range tables {
		var count int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", t,
		).Scan(&count)
		if err != nil {
			return false, err
		}
		if count == 0 {
			return false, nil
		}
	}
	return len(tables) > 0, nil
}

// ExecuteQuery runs query and returns every row with the column order of
// the result set.
func (s *Store) ExecuteQuery(ctx context.Context, query string) ([]tabular.Row, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []tabular.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, tabular.NewRow(cols, values))
	}
	return result, rows.Err()
}

func (s *Store) Sample(ctx context.Context, table string, limit int) ([]tabular.Row, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", QuoteIdent(table), limit))
}
