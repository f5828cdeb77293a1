// Package storage provides the blob storage targets for chunked artifact
// uploads: an Azure Blob Storage implementation and an in-memory one.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/preflight/pkg/lifecycle"
)

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that prepares the storage container.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to a blob at the given key with the specified content type.
	// The reader is consumed incrementally, so a counting reader observes transfer progress.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns a stream for the blob at the given key. The caller must close the reader.
	// Returns ErrNotFound if the blob does not exist.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob at the given key. Returns ErrNotFound if the blob does not exist.
	Delete(ctx context.Context, key string) error
	// Exists reports whether a blob exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)
}

// New creates the storage system selected by cfg.Provider.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Provider {
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderMemory, "":
		return NewMemory(logger), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Provider)
	}
}
