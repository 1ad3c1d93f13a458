package service

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ventas-cli/internal/render"
	"ventas-cli/internal/store"
)

// numbers groups thousands with commas.
var numbers = message.NewPrinter(language.English)

// Summarize phrases a one-line answer from the first row, chosen by the
// columns present. Unknown shapes fall back to a rendered table.
func Summarize(res *store.Result) string {
	if res.Empty() {
		return render.EmptyMessage
	}
	row := res.Rows[0]
	value := func(col string) float64 {
		v, _ := store.ToFloat(row[res.Column(col)])
		return v
	}
	label := func(col string) string {
		return render.FormatValue(row[res.Column(col)])
	}

	switch {
	case res.HasColumns("producto", "total_cantidad"):
		return fmt.Sprintf("Producto líder: %s con %d unidades", label("producto"), int64(value("total_cantidad")))
	case res.HasColumns("vendedor", "total_ventas"):
		return numbers.Sprintf("Vendedor líder: %s con total_ventas=%d", label("vendedor"), int64(value("total_ventas")))
	case res.HasColumns("ticket_promedio"):
		return numbers.Sprintf("Ticket promedio: %.2f", value("ticket_promedio"))
	case res.HasColumns("precio_promedio"):
		return numbers.Sprintf("Precio promedio: %.2f", value("precio_promedio"))
	case res.HasColumns("total_ventas"):
		return numbers.Sprintf("Total de ventas: %d", int64(value("total_ventas")))
	}

	var b strings.Builder
	if err := render.Table(&b, res); err != nil {
		return fmt.Sprint(res.Rows)
	}
	return b.String()
}
