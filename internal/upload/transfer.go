package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/pkg/storage"
)

// Transfer is a Producer that streams the payload to blob storage in chunks
// and reports progress from the bytes the storage client has consumed.
type Transfer struct {
	store     storage.System
	chunkSize int
}

// NewTransfer creates a Transfer that reads at most chunkSize bytes per step.
func NewTransfer(store storage.System, chunkSize int) *Transfer {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	return &Transfer{store: store, chunkSize: chunkSize}
}

func (t *Transfer) Produce(ctx context.Context, a artifacts.Artifact, report func(int)) (Receipt, error) {
	key := storageKey(a)
	report(0)

	r := &progressReader{
		src:   bytes.NewReader(a.Payload),
		total: int64(len(a.Payload)),
		chunk: t.chunkSize,
		ctx:   ctx,
		report: func(p int) {
			// 100 is reserved for a committed upload
			report(min(p, 99))
		},
	}

	if err := t.store.Upload(ctx, key, r, a.MediaType); err != nil {
		return Receipt{}, fmt.Errorf("transfer %s: %w", a.Filename, err)
	}

	return Receipt{StorageKey: key}, nil
}

// Discard removes the stored blob for an artifact that left its slot.
func (t *Transfer) Discard(ctx context.Context, a artifacts.Artifact) error {
	if a.StorageKey == "" {
		return nil
	}
	return t.store.Delete(ctx, a.StorageKey)
}

func storageKey(a artifacts.Artifact) string {
	name := filepath.Base(a.Filename)
	if name == "." || name == "/" || name == "" {
		name = "document.pdf"
	}
	return fmt.Sprintf("artifacts/%s/%s/%s", a.Slot, a.ID, url.PathEscape(name))
}

type progressReader struct {
	src    io.Reader
	total  int64
	read   int64
	chunk  int
	ctx    context.Context
	report func(int)
}

func (r *progressReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) > r.chunk {
		p = p[:r.chunk]
	}

	n, err := r.src.Read(p)
	r.read += int64(n)
	if n > 0 && r.total > 0 {
		r.report(int(r.read * 100 / r.total))
	}
	return n, err
}
