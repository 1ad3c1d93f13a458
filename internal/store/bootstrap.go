package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// RequiredColumns must be present in the source CSV.
var RequiredColumns = []string{"id", "vendedor", "sede", "producto", "cantidad", "precio", "fecha"}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
}

// LoadReport describes a completed bootstrap.
type LoadReport struct {
	Source string `json:"source"`
	Rows   int    `json:"rows"`
}

// FindCSV returns the first candidate that exists on disk.
func FindCSV(candidates []string) (string, error) {
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: looked for %s", ErrDatasetNotFound, strings.Join(candidates, ", "))
}

// Bootstrap loads the first available CSV candidate into the store.
func (s *Store) Bootstrap(ctx context.Context, candidates []string) (*LoadReport, error) {
	path, err := FindCSV(candidates)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	n, err := s.Load(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &LoadReport{Source: path, Rows: n}, nil
}

type sale struct {
	id       int64
	vendedor string
	sede     string
	producto string
	cantidad int64
	precio   float64
	fecha    string
	total    float64
}

// Load replaces the sales table with the rows read from r.
func (s *Store) Load(ctx context.Context, r io.Reader) (int, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	sales, err := readSales(r)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ddl := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table),
		fmt.Sprintf(`CREATE TABLE %s (
			id INTEGER, vendedor TEXT, sede TEXT, producto TEXT,
			cantidad INTEGER, precio REAL, fecha TEXT, total REAL)`, s.table),
	}
	for _, stmt := range ddl {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to prepare table: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, vendedor, sede, producto, cantidad, precio, fecha, total) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	for _, v := range sales {
		if _, err := insert.ExecContext(ctx, v.id, v.vendedor, v.sede, v.producto, v.cantidad, v.precio, v.fecha, v.total); err != nil {
			return 0, fmt.Errorf("failed to insert sale %d: %w", v.id, err)
		}
	}

	for _, col := range []string{"sede", "vendedor", "producto", "fecha"} {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s ON %s(%s)", col, s.table, col)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to create index on %s: %w", col, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(sales), nil
}

func readSales(r io.Reader) ([]sale, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	totalIdx, hasTotal := index["total"]

	var sales []sale
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(col string) string { return strings.TrimSpace(record[index[col]]) }

		v := sale{vendedor: field("vendedor"), sede: field("sede"), producto: field("producto")}
		if v.id, err = strconv.ParseInt(field("id"), 10, 64); err != nil {
			return nil, fmt.Errorf("line %d: invalid id %q", line, field("id"))
		}
		cantidad, err := strconv.ParseFloat(field("cantidad"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid cantidad %q", line, field("cantidad"))
		}
		v.cantidad = int64(cantidad)
		if v.precio, err = strconv.ParseFloat(field("precio"), 64); err != nil {
			return nil, fmt.Errorf("line %d: invalid precio %q", line, field("precio"))
		}
		if v.fecha, err = NormalizeDate(field("fecha")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v.total = float64(v.cantidad) * v.precio
		if hasTotal {
			if t, err := strconv.ParseFloat(strings.TrimSpace(record[totalIdx]), 64); err == nil {
				v.total = t
			}
		}
		sales = append(sales, v)
	}
	return sales, nil
}

// NormalizeDate rewrites a date in any accepted layout as YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("invalid fecha %q", s)
}
