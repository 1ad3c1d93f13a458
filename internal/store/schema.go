package store

import (
	"fmt"
	"strings"
)

// ColumnInfo documents one column of the sales table.
type ColumnInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schema describes the sales table.
type Schema struct {
	Table   string       `json:"table"`
	Columns []ColumnInfo `json:"columns"`
}

// Schema returns the table description shared by the CLI, API and tools.
func (s *Store) Schema() Schema {
	return DescribeSchema(s.table)
}

// DescribeSchema returns the fixed column layout for table.
func DescribeSchema(table string) Schema {
	return Schema{
		Table: table,
		Columns: []ColumnInfo{
			{"id", "INTEGER", "Identificador único de la venta"},
			{"vendedor", "TEXT", "Nombre del vendedor"},
			{"sede", "TEXT", "Ciudad o sede de la venta (Medellín, Bogotá, Cali, Barranquilla)"},
			{"producto", "TEXT", "Nombre del producto vendido"},
			{"cantidad", "INTEGER", "Unidades vendidas"},
			{"precio", "REAL", "Precio unitario"},
			{"fecha", "TEXT", "Fecha de la venta en formato YYYY-MM-DD"},
			{"total", "REAL", "Monto total de la venta (cantidad × precio)"},
		},
	}
}

// String renders the schema as plain text for prompts and terminals.
func (s Schema) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tabla: %s\n\nColumnas:\n", s.Table)
	for _, c := range s.Columns {
		fmt.Fprintf(&b, "- %s (%s): %s\n", c.Name, c.Type, c.Description)
	}
	return b.String()
}
