package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	args, err := parseArgs("")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = parseArgs(`{"sql_query": " SELECT * FROM ventas ", "limit": 3}`)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM ventas", getString(args, "sql_query"))
	assert.Equal(t, "", getString(args, "limit"))
	assert.Equal(t, "", getString(args, "missing"))

	_, err = parseArgs("{not json")
	assert.Error(t, err)
}

func TestQueryDatabaseTool(t *testing.T) {
	answers, _ := newTestAnswers(t)
	tool := &QueryDatabaseTool{backend: answers, guard: NewGuard(2, nil)}
	ctx := context.Background()

	out, err := tool.Call(ctx, `{"sql_query": "SELECT id, vendedor FROM ventas ORDER BY id"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "id,vendedor\n1,Ana\n2,Luis\n")
	assert.NotContains(t, out, "Marta")
	assert.Contains(t, out, "Total de filas: 4 (se muestran 2)")

	out, err = tool.Call(ctx, `{"sql_query": "SELECT * FROM ventas WHERE sede = 'Pasto'"}`)
	require.NoError(t, err)
	assert.Equal(t, "La consulta no devolvió resultados.", out)

	_, err = tool.Call(ctx, `{}`)
	assert.EqualError(t, err, "sql_query parameter is required")
}

func TestGenerateChartTool(t *testing.T) {
	answers, fs := newTestAnswers(t)
	tool := &GenerateChartTool{backend: answers, guard: NewGuard(100, nil)}
	ctx := context.Background()

	out, err := tool.Call(ctx, `{"sql_query": "SELECT sede, SUM(total) FROM ventas GROUP BY sede", "chart_type": "pie", "title": "Ventas por sede"}`)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Gráfico generado exitosamente."))
	path := strings.TrimPrefix(out[strings.Index(out, "Archivo: "):], "Archivo: ")
	assert.Contains(t, path, "grafico_pie_")
	ok, _ := afero.Exists(fs, path)
	assert.True(t, ok)

	out, err = tool.Call(ctx, `{"sql_query": "SELECT COUNT(*) FROM ventas", "chart_type": "bar"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "al menos 2 columnas")

	_, err = tool.Call(ctx, `{"sql_query": "SELECT sede, total FROM ventas", "chart_type": "radar"}`)
	assert.Error(t, err)
}

func TestExportToFileTool(t *testing.T) {
	answers, fs := newTestAnswers(t)
	tool := &ExportToFileTool{backend: answers, guard: NewGuard(100, nil)}
	ctx := context.Background()

	out, err := tool.Call(ctx, `{"sql_query": "SELECT vendedor, SUM(total) AS total_ventas FROM ventas GROUP BY vendedor"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Filas exportadas: 3")
	assert.Contains(t, out, ".csv")

	out, err = tool.Call(ctx, `{"sql_query": "SELECT * FROM ventas", "format": "excel"}`)
	require.NoError(t, err)
	assert.Contains(t, out, ".xlsx")

	files, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	out, err = tool.Call(ctx, `{"sql_query": "SELECT * FROM ventas WHERE id < 0"}`)
	require.NoError(t, err)
	assert.Equal(t, "La consulta no devolvió datos para exportar.", out)

	_, err = tool.Call(ctx, `{"sql_query": "SELECT * FROM ventas", "format": "pdf"}`)
	assert.Error(t, err)
}

func TestSchemaTool(t *testing.T) {
	answers, _ := newTestAnswers(t)
	out, err := (&SchemaTool{backend: answers}).Call(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Tabla: ventas")
	assert.Contains(t, out, "- total (REAL)")
}
