package nlsql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{"plain select", "SELECT * FROM ventas LIMIT 5;", false},
		{"aggregate", "SELECT sede, SUM(cantidad*precio) AS total_ventas FROM ventas GROUP BY sede;", false},
		{"drop table", "SELECT 1 FROM ventas; DROP TABLE ventas;", true},
		{"drop table lowercase", "drop table ventas", true},
		{"insert", "INSERT INTO ventas VALUES (1)", true},
		{"update", "UPDATE ventas SET precio = 0", true},
		{"delete", "DELETE FROM ventas", true},
		{"alter", "ALTER TABLE ventas ADD x", true},
		{"create", "CREATE TABLE x AS SELECT * FROM ventas", true},
		{"attach", "ATTACH DATABASE 'x' AS y; SELECT * FROM ventas", true},
		{"pragma", "PRAGMA table_info(ventas); SELECT * FROM ventas", true},
		{"no from", "SELECT 1", true},
		{"other table", "SELECT * FROM usuarios", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.sql)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsafeQuery))
				assert.False(t, IsSafe(tt.sql))
			} else {
				assert.NoError(t, err)
				assert.True(t, IsSafe(tt.sql))
			}
		})
	}
}

func TestValidate_DropTableAnywhere(t *testing.T) {
	for _, sql := range []string{
		"drop table",
		"SELECT * FROM ventas WHERE producto = 'x' ; drop table ventas",
		"select * from ventas /* drop table */",
	} {
		assert.ErrorIs(t, Validate(sql), ErrUnsafeQuery, sql)
	}
}

func TestValidate_AnyWhitespaceAroundKeywords(t *testing.T) {
	rejected := []string{
		"SELECT * FROM ventas;\nDELETE\nFROM ventas",
		"delete\tfrom ventas",
		"DROP\tTABLE ventas",
		"SELECT * FROM ventas WHERE 1=1;\tupdate ventas SET precio=0",
		"insert\ninto ventas VALUES (1)",
		"SELECT * FROM ventas; SELECT * FROM ventas",
		"SELECT * FROM ventas -- comentario",
		"SELECT * FROM ventas /* x */",
	}
	for _, sql := range rejected {
		assert.ErrorIs(t, Validate(sql), ErrUnsafeQuery, sql)
	}
}

func TestValidate_MultiLineSelect(t *testing.T) {
	allowed := []string{
		"SELECT sede, SUM(cantidad*precio) AS t\nFROM ventas\nGROUP BY sede",
		"SELECT *\tFROM\tventas;",
		"SELECT producto\r\nFROM ventas\r\nWHERE sede = ?;\n",
	}
	for _, sql := range allowed {
		assert.NoError(t, Validate(sql), sql)
	}
}

func TestValidate_KeywordsInsideIdentifiersAreAllowed(t *testing.T) {
	assert.NoError(t, Validate("SELECT fecha AS created_at, id AS updated FROM ventas"))
}

func TestValidateFor_CustomTable(t *testing.T) {
	assert.NoError(t, ValidateFor("SELECT * FROM ventas_2024", "ventas_2024"))
	assert.ErrorIs(t, ValidateFor("SELECT * FROM ventas", "pedidos"), ErrUnsafeQuery)
}

func TestCompiler_ValidateUsesConfiguredTable(t *testing.T) {
	c := New(Options{Table: "pedidos"})

	plan, err := c.CompileChecked("total de ventas")
	require.NoError(t, err)
	assert.Equal(t, "SELECT SUM(cantidad*precio) AS total_ventas FROM pedidos;", plan.SQL)
	assert.ErrorIs(t, c.Validate("SELECT * FROM ventas"), ErrUnsafeQuery)
}
