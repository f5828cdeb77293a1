package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/preflight/internal/api"
	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/internal/infrastructure"
	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/internal/sessions"
)

func newAPI(t *testing.T, validatorURL string, mode string) *httptest.Server {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("PREFLIGHT_VALIDATOR_BASE_URL", validatorURL)
	t.Setenv("PREFLIGHT_UPLOAD_MODE", mode)
	t.Setenv("PREFLIGHT_UPLOAD_INTERVAL", "0s")
	t.Setenv("PREFLIGHT_UPLOAD_CHUNK_SIZE", "8")

	cfg, err := config.Load()
	require.NoError(t, err)

	infra, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, infra.Start())

	m, err := api.NewModule(cfg, infra)
	require.NoError(t, err)
	require.NoError(t, m.Start(infra.Lifecycle))
	t.Cleanup(func() { infra.Lifecycle.Shutdown(2 * time.Second) })

	root := chi.NewRouter()
	m.Mount(root)

	srv := httptest.NewServer(root)
	t.Cleanup(srv.Close)
	return srv
}

func validator(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validate_barcodes" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func uploadPDF(t *testing.T, url string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="artwork.pdf"`)
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	part.Write([]byte("%PDF-1.7 artwork body for chunking"))
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPut, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func post(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestBarcodeRuleEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		mode string
		body string
		want rules.Status
	}{
		{"simulated upload passes", config.UploadModeSimulate, `{"results":[{"barcodes":[{"contrast_pass":true}]}]}`, rules.StatusPassed},
		{"storage upload fails contrast", config.UploadModeStorage, `{"results":[{"barcodes":[{"contrast_pass":false}]}]}`, rules.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAPI(t, validator(t, tt.body).URL, tt.mode)

			resp := post(t, srv.URL+"/api/sessions")
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			snap := decode[sessions.Snapshot](t, resp)
			base := srv.URL + "/api/sessions/" + snap.ID.String()

			resp = uploadPDF(t, base+"/artifacts/artwork?wait=true")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()

			resp = post(t, base+"/rules/barcode/validate?wait=true")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			rule := decode[rules.Rule](t, resp)
			assert.Equal(t, tt.want, rule.Status)

			content, err := http.Get(base + "/artifacts/artwork/content")
			require.NoError(t, err)
			data, _ := io.ReadAll(content.Body)
			content.Body.Close()
			assert.Equal(t, "%PDF-1.7 artwork body for chunking", string(data))
		})
	}
}

func TestBackendErrorIsRecordedOnRule(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	srv := newAPI(t, broken.URL, config.UploadModeSimulate)

	snap := decode[sessions.Snapshot](t, post(t, srv.URL+"/api/sessions"))
	base := srv.URL + "/api/sessions/" + snap.ID.String()

	resp := uploadPDF(t, base+"/artifacts/artwork?wait=true")
	resp.Body.Close()

	rule := decode[rules.Rule](t, post(t, base+"/rules/barcode/validate?wait=true"))
	assert.Equal(t, rules.StatusFailed, rule.Status)
	assert.Equal(t, "backend error: 500 Internal Server Error", rule.ErrorDetails)

	resp = post(t, base+"/rules/layout/validate")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
}

func TestCatalogAndUnknownSession(t *testing.T) {
	srv := newAPI(t, "http://localhost:8000", config.UploadModeSimulate)

	resp, err := http.Get(srv.URL + "/api/rules")
	require.NoError(t, err)
	defs := decode[[]rules.Definition](t, resp)
	require.Len(t, defs, 6)
	assert.Equal(t, rules.Layout, defs[0].ID)
	assert.Equal(t, rules.Compliance, defs[5].ID)

	resp, err = http.Get(srv.URL + "/api/sessions/" + "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
