package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/internal/server"
)

func newServer(t *testing.T) *server.Server {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	srv, err := server.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(2 * time.Second) })
	return srv
}

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	return rec.Code, body
}

func TestHealthProbes(t *testing.T) {
	srv := newServer(t)
	h := srv.Handler()

	code, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code, "not ready before startup completes")
	assert.Equal(t, "not ready", body["status"])
}

func TestAPIMounted(t *testing.T) {
	srv := newServer(t)

	code, _ := get(t, srv.Handler(), "/api/sessions")
	assert.Equal(t, http.StatusOK, code)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Len(t, catalog, 6)
}
