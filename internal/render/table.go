package render

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"ventas-cli/internal/store"
)

// EmptyMessage is printed for result sets without rows.
const EmptyMessage = "Sin resultados."

// Table prints res as a bordered table with a header row.
func Table(w io.Writer, res *store.Result) error {
	if res.Empty() {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	data := pterm.TableData{res.Columns}
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		data = append(data, cells)
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
