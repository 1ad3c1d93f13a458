// Package store runs compiled plans against the SQLite copy of the sales dataset.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ventas-cli/internal/nlsql"
)

var (
	ErrDatasetNotFound = errors.New("sales dataset not found")
	ErrMissingColumns  = errors.New("dataset is missing required columns")
	ErrInvalidTable    = errors.New("invalid table name")
	ErrStoreClosed     = errors.New("store is closed")
)

// Querier executes read-only SQL with positional parameters.
type Querier interface {
	Query(ctx context.Context, query string, params ...any) (*Result, error)
}

// Result is a fully materialised row set.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Column returns the index of name, or -1.
func (r *Result) Column(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumns reports whether every name is present.
func (r *Result) HasColumns(names ...string) bool {
	for _, n := range names {
		if r.Column(n) < 0 {
			return false
		}
	}
	return true
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store wraps the SQLite database holding the sales table.
type Store struct {
	db    *sql.DB
	table string
}

// Open opens (creating if needed) the SQLite file at path.
func Open(path, table string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	s, err := New(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, table string) (*Store, error) {
	if !identifierRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &Store{db: db, table: table}, nil
}

// Table returns the name of the sales table.
func (s *Store) Table() string {
	return s.table
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Query validates query and runs it. Unsafe statements never reach the driver.
func (s *Store) Query(ctx context.Context, query string, params ...any) (*Result, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if err := nlsql.ValidateFor(query, s.table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return result, nil
}

// Count returns the number of rows in the sales table.
func (s *Store) Count(ctx context.Context) (int, error) {
	res, err := s.Query(ctx, "SELECT COUNT(*) AS n FROM "+s.table)
	if err != nil {
		return 0, err
	}
	if res.Empty() {
		return 0, nil
	}
	n, _ := ToFloat(res.Rows[0][0])
	return int(n), nil
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02")
	}
	return v
}

// ToFloat converts a scanned numeric value.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}
