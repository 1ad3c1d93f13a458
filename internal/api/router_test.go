package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ventas-cli/internal/agent"
	"ventas-cli/internal/api/middleware"
	"ventas-cli/internal/logger"
	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/render"
	"ventas-cli/internal/service"
	"ventas-cli/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ventas.sqlite"), "ventas")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.Load(context.Background(), strings.NewReader(
		"id,vendedor,sede,producto,cantidad,precio,fecha\n1,Ana,Cali,Café,2,2500,2024-01-15\n"))
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	answers := service.NewAnswerService(nlsql.New(nlsql.Options{}), st, render.New(afero.NewMemMapFs(), "/out"), log)
	return Deps{Answers: answers, Log: log}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	r := SetupRouter(newTestDeps(t))

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_Metrics(t *testing.T) {
	r := SetupRouter(newTestDeps(t))

	w := do(r, http.MethodPost, "/api/v1/ask", `{"question":"total de ventas"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Total de ventas: 5,000")

	w = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ventas_questions_total")
}

func TestRouter_Routes(t *testing.T) {
	r := SetupRouter(newTestDeps(t))

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/compile", `{"question":"top 3 productos"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/schema", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/files/salida_1.csv", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/v1/agent/ask", `{"question":"hola"}`).Code,
		"agent route is only mounted when an agent is configured")
}

func TestRouter_DatasetMissing(t *testing.T) {
	deps := newTestDeps(t)
	deps.DatasetErr = store.ErrDatasetNotFound
	r := SetupRouter(deps)

	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/health", "").Code)
	w := do(r, http.MethodPost, "/api/v1/ask", `{"question":"total de ventas"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/compile", `{"question":"total de ventas"}`).Code)
}

func TestRouter_AgentRoute(t *testing.T) {
	deps := newTestDeps(t)
	deps.Agent = agent.New(nil, nil, deps.Answers, nil, deps.Log)
	r := SetupRouter(deps)

	w := do(r, http.MethodPost, "/api/v1/agent/ask", `{"question":"producto más vendido"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deterministic":true`)
	assert.Contains(t, w.Body.String(), "Producto líder: Café con 2 unidades")
}

func TestRouter_UnsafeQuestionIsNotExecuted(t *testing.T) {
	r := SetupRouter(newTestDeps(t))
	w := do(r, http.MethodPost, "/api/v1/ask", `{"question":"drop table ventas"}`)
	assert.Equal(t, http.StatusOK, w.Code, "questions compile to SELECT plans")
}
