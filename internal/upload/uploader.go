package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/pkg/lifecycle"
)

// CompletionFunc is called once per sequence that ends while its artifact
// still owns the slot: with a nil error after the artifact became ready, or
// with the producer error that was recorded on the artifact. It runs before
// the sequence reports done.
type CompletionFunc func(a artifacts.Artifact, err error)

// Uploader starts, supersedes, and cancels uploads into a Store.
type Uploader struct {
	store    *artifacts.Store
	producer Producer
	lc       *lifecycle.Coordinator
	logger   *slog.Logger
	onDone   CompletionFunc

	mu     sync.Mutex
	active map[artifacts.Slot]*Sequence
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithCompletion registers fn to observe finished uploads.
func WithCompletion(fn CompletionFunc) Option {
	return func(u *Uploader) {
		u.onDone = fn
	}
}

// New creates an Uploader whose transfers run as tracked work on lc.
func New(
	store *artifacts.Store,
	producer Producer,
	lc *lifecycle.Coordinator,
	logger *slog.Logger,
	opts ...Option,
) *Uploader {
	u := &Uploader{
		store:    store,
		producer: producer,
		lc:       lc,
		logger:   logger.With("system", "upload"),
		active:   make(map[artifacts.Slot]*Sequence),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// SelectFile validates the media type, places a fresh artifact (progress 0,
// not ready) in slot, and starts its progress sequence. Any sequence still
// running for the slot is superseded. A non-PDF file returns
// ErrInvalidMediaType and leaves the store untouched.
func (u *Uploader) SelectFile(slot artifacts.Slot, file File) (*Sequence, error) {
	if !artifacts.IsPDF(file.MediaType) {
		return nil, fmt.Errorf("%w: got %q", artifacts.ErrInvalidMediaType, file.MediaType)
	}
	if u.lc.Closed() {
		return nil, lifecycle.ErrClosed
	}

	a := artifacts.Artifact{
		ID:         uuid.New(),
		Slot:       slot,
		Filename:   file.Filename,
		MediaType:  artifacts.MediaTypePDF,
		SizeBytes:  int64(len(file.Data)),
		PageCount:  pageCount(u.logger, file.Data),
		SelectedAt: time.Now().UTC(),
		Payload:    file.Data,
	}

	ctx, cancel := context.WithCancel(u.lc.Context())
	seq := newSequence(slot, a.ID, cancel)

	// scheduled before the slot changes so a closed lifecycle leaves it untouched
	start := make(chan struct{})
	err := u.lc.Go(func(context.Context) {
		<-start
		u.run(ctx, seq, a)
	})
	if err != nil {
		cancel()
		seq.finish(ErrCancelled)
		return nil, err
	}

	u.mu.Lock()
	previous := u.active[slot]
	replaced := u.store.Get(slot)
	if previous != nil {
		previous.supersede()
	}
	u.active[slot] = seq
	u.store.Set(slot, &a)
	u.mu.Unlock()

	close(start)
	u.discard(replaced)

	u.logger.Info(
		"artifact selected",
		"slot", slot,
		"artifact", a.ID,
		"filename", a.Filename,
		"size_bytes", a.SizeBytes,
	)
	return seq, nil
}

// Remove clears slot and cancels its in-flight sequence, if any.
func (u *Uploader) Remove(slot artifacts.Slot) {
	u.mu.Lock()
	if seq, ok := u.active[slot]; ok {
		seq.Cancel()
		delete(u.active, slot)
	}
	removed := u.store.Get(slot)
	u.store.Set(slot, nil)
	u.mu.Unlock()

	u.discard(removed)

	if removed != nil {
		u.logger.Info("artifact removed", "slot", slot, "artifact", removed.ID)
	}
}

// Close cancels every in-flight sequence.
func (u *Uploader) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()

	for slot, seq := range u.active {
		seq.Cancel()
		delete(u.active, slot)
	}
}

func (u *Uploader) run(ctx context.Context, seq *Sequence, a artifacts.Artifact) {
	report := func(p int) {
		p = min(max(p, 0), 100)
		if p <= seq.lastValue() || ctx.Err() != nil {
			return
		}
		ok := u.store.Update(seq.Slot, seq.ArtifactID, func(cur *artifacts.Artifact) {
			cur.Progress = max(cur.Progress, p)
		})
		if !ok {
			seq.Cancel()
			return
		}
		seq.emit(p)
	}

	receipt, err := u.producer.Produce(ctx, a, report)

	if ctx.Err() != nil {
		seq.finish(ErrCancelled)
		return
	}

	if err != nil {
		ok := u.store.Update(seq.Slot, seq.ArtifactID, func(cur *artifacts.Artifact) {
			cur.Error = err.Error()
		})
		u.release(seq)
		if ok {
			u.logger.Warn("upload failed", "slot", seq.Slot, "artifact", a.ID, "error", err)
			u.complete(seq, err)
		}
		seq.finish(err)
		return
	}

	ok := u.store.Update(seq.Slot, seq.ArtifactID, func(cur *artifacts.Artifact) {
		cur.Progress = 100
		cur.Ready = true
		cur.Error = ""
		cur.StorageKey = receipt.StorageKey
	})
	if !ok {
		seq.finish(ErrCancelled)
		return
	}

	seq.emit(100)
	u.release(seq)

	u.logger.Info("upload complete", "slot", seq.Slot, "artifact", a.ID)
	u.complete(seq, nil)
	seq.finish(nil)
}

func (u *Uploader) complete(seq *Sequence, err error) {
	if u.onDone == nil {
		return
	}
	if a := u.store.Get(seq.Slot); a != nil && a.ID == seq.ArtifactID {
		u.onDone(*a, err)
	}
}

// release forgets seq if it still owns its slot.
func (u *Uploader) release(seq *Sequence) {
	u.mu.Lock()
	if u.active[seq.Slot] == seq {
		delete(u.active, seq.Slot)
	}
	u.mu.Unlock()
}

func (u *Uploader) discard(a *artifacts.Artifact) {
	d, ok := u.producer.(Discarder)
	if !ok || a == nil || a.StorageKey == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(u.lc.Context()), 30*time.Second)
	defer cancel()

	if err := d.Discard(ctx, *a); err != nil && !errors.Is(err, context.Canceled) {
		u.logger.Warn("discard artifact failed", "slot", a.Slot, "artifact", a.ID, "error", err)
	}
}

func pageCount(logger *slog.Logger, data []byte) (n *int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("PDF page count panicked", "panic", r)
			n = nil
		}
	}()

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}
	return &count
}
