package render

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/store"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func newTestRenderer() (*Renderer, afero.Fs) {
	fs := afero.NewMemMapFs()
	r := New(fs, "/out")
	r.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	return r, fs
}

func productResult() *store.Result {
	return &store.Result{
		Columns: []string{"producto", "unidades"},
		Rows: [][]any{
			{"Laptop", int64(12)},
			{"Mouse", int64(30)},
			{"Monitor", 7.5},
		},
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "Bogota", FormatValue("Bogota"))
	assert.Equal(t, "12", FormatValue(int64(12)))
	assert.Equal(t, "12", FormatValue(12.0))
	assert.Equal(t, "7.50", FormatValue(7.5))
	assert.Equal(t, "true", FormatValue(true))
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, productResult()))
	out := buf.String()
	assert.Contains(t, out, "producto")
	assert.Contains(t, out, "Laptop")
	assert.Contains(t, out, "7.50")
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, &store.Result{Columns: []string{"producto"}}))
	assert.Equal(t, EmptyMessage+"\n", buf.String())
}

func TestSeries(t *testing.T) {
	labels, values, err := Series(productResult())
	require.NoError(t, err)
	assert.Equal(t, []string{"Laptop", "Mouse", "Monitor"}, labels)
	assert.Equal(t, []float64{12, 30, 7.5}, values)

	_, _, err = Series(&store.Result{Columns: []string{"total"}, Rows: [][]any{{1.0}}})
	assert.ErrorIs(t, err, ErrNoData)

	_, _, err = Series(&store.Result{Columns: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrNoData)

	_, _, err = Series(&store.Result{Columns: []string{"a", "b"}, Rows: [][]any{{"x", "y"}}})
	assert.Error(t, err)
}

func TestChartKinds(t *testing.T) {
	for _, kind := range []nlsql.ChartKind{nlsql.ChartBar, nlsql.ChartLine, nlsql.ChartPie} {
		t.Run(string(kind), func(t *testing.T) {
			r, fs := newTestRenderer()
			path, err := r.Chart(kind, productResult(), "")
			require.NoError(t, err)
			assert.Equal(t, "/out/grafico_"+string(kind)+"_20240315_103000.png", path)

			data, err := afero.ReadFile(fs, path)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, pngMagic))
		})
	}
}

func TestChartNoData(t *testing.T) {
	r, fs := newTestRenderer()
	_, err := r.Chart(nlsql.ChartBar, &store.Result{Columns: []string{"total"}, Rows: [][]any{{3.0}}}, "")
	assert.ErrorIs(t, err, ErrNoData)

	exists, _ := afero.DirExists(fs, "/out")
	assert.False(t, exists)
}

func TestChartUniqueNames(t *testing.T) {
	r, _ := newTestRenderer()
	first, err := r.Chart(nlsql.ChartBar, productResult(), "")
	require.NoError(t, err)
	second, err := r.Chart(nlsql.ChartBar, productResult(), "")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "/out/grafico_bar_20240315_103000_2.png", second)
}

func TestExportCSV(t *testing.T) {
	r, fs := newTestRenderer()
	res, err := r.Export(nlsql.ExportCSV, productResult())
	require.NoError(t, err)
	assert.Equal(t, "/out/salida_20240315_103000.csv", res.Path)
	assert.Equal(t, 3, res.RecordCount)

	data, err := afero.ReadFile(fs, res.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), res.BytesWritten)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"producto", "unidades"},
		{"Laptop", "12"},
		{"Mouse", "30"},
		{"Monitor", "7.50"},
	}, records)
}

func TestExportExcel(t *testing.T) {
	r, fs := newTestRenderer()
	res, err := r.Export(nlsql.ExportExcel, productResult())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Path, ".xlsx"))

	file, err := fs.Open(res.Path)
	require.NoError(t, err)
	defer file.Close()

	book, err := excelize.OpenReader(file)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"producto", "unidades"}, rows[0])
	assert.Equal(t, "Mouse", rows[2][0])
	assert.Equal(t, "30", rows[2][1])
}

func TestExportUnsupported(t *testing.T) {
	r, _ := newTestRenderer()
	_, err := r.Export(nlsql.ExportKind("pdf"), productResult())
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestExportEmpty(t *testing.T) {
	r, _ := newTestRenderer()
	_, err := r.Export(nlsql.ExportCSV, &store.Result{Columns: []string{"producto"}})
	assert.ErrorIs(t, err, ErrNoData)
}
