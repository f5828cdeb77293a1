package checks_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/checks"
	"github.com/JaimeStill/preflight/internal/rules"
)

func artwork() artifacts.Artifact {
	return artifacts.Artifact{
		ID:        uuid.New(),
		Slot:      artifacts.SlotArtwork,
		Filename:  "artwork.pdf",
		MediaType: artifacts.MediaTypePDF,
		Progress:  100,
		Ready:     true,
		Payload:   []byte("%PDF-1.7 artwork"),
	}
}

func service(t *testing.T, status int, body string) *checks.Barcode {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/validate_barcodes", r.URL.Path)

		file, header, err := r.FormFile("file")
		if assert.NoError(t, err) {
			data, _ := io.ReadAll(file)
			assert.Equal(t, "%PDF-1.7 artwork", string(data))
			assert.Equal(t, "artwork.pdf", header.Filename)
			assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	b, err := checks.NewBarcode(srv.Client(), srv.URL, "")
	require.NoError(t, err)
	return b
}

func TestBarcodeVerdicts(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		passed bool
		detail string
	}{
		{
			name:   "all barcodes pass contrast",
			body:   `{"results":[{"barcodes":[{"contrast_pass":true},{"contrast_pass":true}]}]}`,
			passed: true,
			detail: "2 barcodes detected across 1 page, all passed the contrast check",
		},
		{
			name:   "no barcodes found",
			body:   `{"results":[{"barcodes":[]}]}`,
			detail: "no barcodes detected",
		},
		{
			name:   "contrast failure",
			body:   `{"results":[{"barcodes":[{"contrast_pass":false}]}]}`,
			detail: "1 of 1 barcode failed the contrast check",
		},
		{
			name:   "failure on a later page",
			body:   `{"results":[{"barcodes":[{"contrast_pass":true}]},{"barcodes":[{"contrast_pass":false,"value":"0123"}]}]}`,
			detail: "1 of 2 barcodes failed the contrast check",
		},
		{
			name:   "no pages",
			body:   `{"results":[]}`,
			detail: "no barcodes detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := service(t, http.StatusOK, tt.body)

			v, err := b.Check(context.Background(), artwork())
			require.NoError(t, err)
			assert.Equal(t, tt.passed, v.Passed)
			assert.Equal(t, tt.detail, v.Details)
		})
	}
}

func TestBarcodeBackendError(t *testing.T) {
	b := service(t, http.StatusInternalServerError, `{"detail":"boom"}`)

	_, err := b.Check(context.Background(), artwork())
	require.Error(t, err)
	assert.True(t, errors.Is(err, checks.ErrBackend))
	assert.Equal(t, "backend error: 500 Internal Server Error", err.Error())
}

func TestBarcodeParseError(t *testing.T) {
	b := service(t, http.StatusOK, `{"results": [`)

	_, err := b.Check(context.Background(), artwork())
	assert.True(t, errors.Is(err, checks.ErrParse))
}

func TestBarcodeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	b, err := checks.NewBarcode(&http.Client{Timeout: time.Second}, addr, "/validate_barcodes")
	require.NoError(t, err)

	_, err = b.Check(context.Background(), artwork())
	assert.True(t, errors.Is(err, checks.ErrTransport))
}

func TestBarcodeRequiresPayload(t *testing.T) {
	b, err := checks.NewBarcode(nil, "http://localhost:8000", "")
	require.NoError(t, err)

	a := artwork()
	a.Payload = nil
	_, err = b.Check(context.Background(), a)
	assert.True(t, errors.Is(err, checks.ErrNoPayload))
}

func TestNewBarcodeRejectsInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost", "://bad"} {
		_, err := checks.NewBarcode(nil, raw, "")
		assert.Error(t, err, raw)
	}
}

func TestRegistryFallback(t *testing.T) {
	reg := checks.NewRegistry()

	pass := checks.StrategyFunc(func(context.Context, artifacts.Artifact) (checks.Verdict, error) {
		return checks.Verdict{Passed: true}, nil
	})
	reg.Register(rules.Barcode, pass)

	v, err := reg.For(rules.Barcode).Check(context.Background(), artwork())
	require.NoError(t, err)
	assert.True(t, v.Passed)

	_, err = reg.For(rules.Layout).Check(context.Background(), artwork())
	assert.True(t, errors.Is(err, checks.ErrNotImplemented))
	assert.Equal(t, "not yet implemented", err.Error())
}
