package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `id,vendedor,sede,producto,cantidad,precio,fecha
1,Ana,Medellín,Café,10,2500,2024-01-15
2,Luis,Bogotá,Arroz,5,3000,2024-02-01
3,Ana,Medellín,Arroz,2,3000,2024-02-10
4,Marta,Cali,Café,7,2500,2024-03-15
`

// setupEnv points every path setting at a temp dir.
func setupEnv(t *testing.T, withCSV bool) string {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "ventas.csv")
	if withCSV {
		require.NoError(t, os.WriteFile(csvPath, []byte(salesCSV), 0644))
	}
	t.Setenv("VENTAS_CSV", csvPath)
	t.Setenv("VENTAS_SQLITE_PATH", filepath.Join(dir, "ventas.sqlite"))
	t.Setenv("VENTAS_OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("VENTAS_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", "", "--env-file", ""}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSQLCommand(t *testing.T) {
	setupEnv(t, false)

	out, err := run(t, "sql", "top", "3", "productos", "en", "Cali")
	require.NoError(t, err)

	var got planOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "product_ranking", got.Plan.Intent)
	assert.Contains(t, got.Plan.SQL, "LIMIT 3;")
	assert.Equal(t, []any{"Cali"}, got.Plan.Params)
	assert.True(t, got.Safe)
}

func TestSQLCommand_RequiresQuestion(t *testing.T) {
	setupEnv(t, false)
	_, err := run(t, "sql")
	assert.Error(t, err)
}

func TestLoadCommand(t *testing.T) {
	dir := setupEnv(t, true)

	out, err := run(t, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "Cargadas 4 filas")
	assert.FileExists(t, filepath.Join(dir, "ventas.sqlite"))
}

func TestLoadCommand_MissingCSV(t *testing.T) {
	setupEnv(t, false)
	_, err := run(t, "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sales dataset not found")
}

func TestAskCommand(t *testing.T) {
	setupEnv(t, true)

	out, err := run(t, "ask", "¿Cuál es el producto más vendido?")
	require.NoError(t, err)
	assert.Contains(t, out, "Producto líder: Café con 17 unidades")

	out, err = run(t, "ask", "total", "de", "ventas", "por", "sede", "a", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Archivo guardado en:")
}

func TestAskCommand_MissingDataset(t *testing.T) {
	setupEnv(t, false)
	_, err := run(t, "ask", "total de ventas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sales dataset not found")
}

func TestEnvFile(t *testing.T) {
	dir := setupEnv(t, false)
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("VENTAS_DEFAULT_LIMIT=7\n"), 0644))
	t.Setenv("VENTAS_DEFAULT_LIMIT", "")
	os.Unsetenv("VENTAS_DEFAULT_LIMIT")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", "", "--env-file", envPath, "sql", "top productos"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "LIMIT 7;")
}

func TestInitConfigCommand(t *testing.T) {
	dir := setupEnv(t, false)
	path := filepath.Join(dir, "conf", "config.yaml")

	out, err := run(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuración escrita en "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "table: ventas")

	_, err = run(t, "init-config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "init-config", "--force", path)
	require.NoError(t, err)
}
