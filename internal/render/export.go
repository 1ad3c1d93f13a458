package render

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/store"
)

const sheetName = "ventas"

// ExportResult describes a file written by Export.
type ExportResult struct {
	Path         string `json:"path"`
	RecordCount  int    `json:"record_count"`
	BytesWritten int64  `json:"bytes_written"`
}

// Export writes res to salida_<timestamp>.csv or .xlsx.
func (r *Renderer) Export(kind nlsql.ExportKind, res *store.Result) (*ExportResult, error) {
	if res.Empty() {
		return nil, ErrNoData
	}
	var (
		ext   string
		write func(io.Writer, *store.Result) error
	)
	switch kind {
	case nlsql.ExportCSV:
		ext, write = ".csv", WriteCSV
	case nlsql.ExportExcel:
		ext, write = ".xlsx", WriteExcel
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, kind)
	}

	f, path, err := r.create("salida", ext)
	if err != nil {
		return nil, err
	}
	cw := &countingWriter{w: f}
	if err := write(cw, res); err != nil {
		f.Close()
		r.fs.Remove(path)
		return nil, fmt.Errorf("failed to export %s: %w", kind, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &ExportResult{Path: path, RecordCount: len(res.Rows), BytesWritten: cw.n}, nil
}

// WriteCSV writes a header row followed by every result row.
func WriteCSV(w io.Writer, res *store.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(res.Columns); err != nil {
		return err
	}
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		if err := writer.Write(cells); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteExcel writes res as a single-sheet workbook, keeping numeric cells numeric.
func WriteExcel(w io.Writer, res *store.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	header := make([]any, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	for i, row := range res.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := append([]any(nil), row...)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
