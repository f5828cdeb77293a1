package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/preflight/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory(discardLogger())

	require.NoError(t, store.Upload(ctx, "artifacts/a/art.pdf", strings.NewReader("%PDF-1.7"), "application/pdf"))

	ok, err := store.Exists(ctx, "artifacts/a/art.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Download(ctx, "artifacts/a/art.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	require.NoError(t, store.Delete(ctx, "artifacts/a/art.pdf"))
	assert.True(t, errors.Is(store.Delete(ctx, "artifacts/a/art.pdf"), storage.ErrNotFound))
}

func TestMemoryKeyValidation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory(discardLogger())

	err := store.Upload(ctx, "", strings.NewReader("x"), "text/plain")
	assert.True(t, errors.Is(err, storage.ErrEmptyKey))

	_, err = store.Download(ctx, "../etc/passwd")
	assert.True(t, errors.Is(err, storage.ErrInvalidKey))
}

func TestMemoryUploadHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := storage.NewMemory(discardLogger())
	err := store.Upload(ctx, "k", strings.NewReader("data"), "text/plain")
	assert.True(t, errors.Is(err, context.Canceled))

	ok, _ := store.Exists(context.Background(), "k")
	assert.False(t, ok)
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults to memory", func(t *testing.T) {
		var cfg storage.Config
		require.NoError(t, cfg.Finalize(nil))
		assert.Equal(t, storage.ProviderMemory, cfg.Provider)
		assert.Equal(t, "artifacts", cfg.ContainerName)
	})

	t.Run("azure requires connection", func(t *testing.T) {
		cfg := storage.Config{Provider: storage.ProviderAzure}
		assert.Error(t, cfg.Finalize(nil))
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_PROVIDER", "azure")
		t.Setenv("TEST_STORAGE_SERVICE_URL", "https://example.blob.core.windows.net")

		var cfg storage.Config
		err := cfg.Finalize(&storage.Env{
			Provider:   "TEST_STORAGE_PROVIDER",
			ServiceURL: "TEST_STORAGE_SERVICE_URL",
		})
		require.NoError(t, err)
		assert.Equal(t, storage.ProviderAzure, cfg.Provider)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := storage.Config{Provider: "s3"}
		assert.Error(t, cfg.Finalize(nil))
	})
}
