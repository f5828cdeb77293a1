package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/JaimeStill/preflight/pkg/lifecycle"
)

type blobEntry struct {
	data        []byte
	contentType string
}

// Memory is a process-local System. Blobs live only as long as the process.
type Memory struct {
	mu     sync.RWMutex
	blobs  map[string]blobEntry
	logger *slog.Logger
}

// NewMemory creates an empty in-memory storage system.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		blobs:  make(map[string]blobEntry),
		logger: logger.With("system", "storage", "provider", ProviderMemory),
	}
}

func (m *Memory) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("starting storage system")
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		m.mu.Lock()
		m.blobs = make(map[string]blobEntry)
		m.mu.Unlock()
	})
	return nil
}

func (m *Memory) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("upload blob %s: %w", key, err)
		}

		n, err := reader.Read(chunk)
		buf.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("upload blob %s: %w", key, err)
		}
	}

	m.mu.Lock()
	m.blobs[key] = blobEntry{data: buf.Bytes(), contentType: contentType}
	m.mu.Unlock()

	return nil
}

func (m *Memory) Download(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entry, ok := m.blobs[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(entry.data)), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	m.mu.RLock()
	_, ok := m.blobs[key]
	m.mu.RUnlock()
	return ok, nil
}
