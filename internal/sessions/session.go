package sessions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/checks"
	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/internal/upload"
	"github.com/JaimeStill/preflight/internal/validation"
	"github.com/JaimeStill/preflight/pkg/lifecycle"
	"github.com/JaimeStill/preflight/pkg/storage"
)

// Options carries what every session is built from.
type Options struct {
	Producer   upload.Producer
	Storage    storage.System
	Checks     *checks.Registry
	Rules      []rules.Definition
	Validation validation.Config
	// ShutdownTimeout bounds how long closing a session waits for its
	// in-flight uploads and rule checks.
	ShutdownTimeout time.Duration
	EventBuffer     int
}

// Session owns one artifact store, rule registry, and orchestrator for the
// lifetime of a single user's validation. Nothing is shared between
// sessions.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	lc       *lifecycle.Coordinator
	store    *artifacts.Store
	uploader *upload.Uploader
	registry *rules.Registry
	orch     *validation.Orchestrator
	storage  storage.System
	bus      *Bus
	logger   *slog.Logger
	timeout  time.Duration

	lastActive atomic.Int64
	submitted  atomic.Bool
	closeOnce  sync.Once
	stops      []func()
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID         uuid.UUID            `json:"id"`
	CreatedAt  time.Time            `json:"created_at"`
	LastActive time.Time            `json:"last_active"`
	Submitted  bool                 `json:"submitted"`
	Artifacts  []artifacts.Artifact `json:"artifacts"`
	Rules      []rules.Rule         `json:"rules"`
	Summary    validation.Summary   `json:"summary"`
}

func newSession(parent *lifecycle.Coordinator, opts Options, logger *slog.Logger) *Session {
	id := uuid.New()
	lc := lifecycle.NewWithParent(parent.Context())

	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		lc:        lc,
		store:     artifacts.NewStore(),
		registry:  rules.NewRegistry(opts.Rules),
		storage:   opts.Storage,
		bus:       NewBus(opts.EventBuffer),
		logger:    logger.With("session", id),
		timeout:   opts.ShutdownTimeout,
	}
	s.touch()

	s.uploader = upload.New(s.store, opts.Producer, lc, s.logger, upload.WithCompletion(s.uploaded))
	s.orch = validation.New(s.registry, s.store, opts.Checks, lc, s.logger, opts.Validation)

	s.stops = append(s.stops,
		s.store.Observe(s.artifactChanged),
		s.registry.Observe(s.ruleChanged),
	)

	return s
}

// Events subscribes to the session's event stream.
func (s *Session) Events() (<-chan Event, func()) {
	ch := s.bus.Subscribe()
	return ch, func() { s.bus.Unsubscribe(ch) }
}

// SelectFile starts uploading file into slot, superseding any upload in
// progress there.
func (s *Session) SelectFile(slot artifacts.Slot, file upload.File) (*upload.Sequence, error) {
	s.touch()

	seq, err := s.uploader.SelectFile(slot, file)
	if errors.Is(err, artifacts.ErrInvalidMediaType) {
		s.notify(Notice{
			Title:       "Invalid File Type",
			Description: "Please upload a PDF file only.",
			Variant:     VariantDestructive,
		})
	}
	if err != nil {
		return nil, err
	}

	s.submitted.Store(false)
	return seq, nil
}

// Artifact returns the artifact in slot.
func (s *Session) Artifact(slot artifacts.Slot) (*artifacts.Artifact, error) {
	s.touch()

	a := s.store.Get(slot)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", artifacts.ErrNotFound, slot)
	}
	return a, nil
}

// Content opens the stored bytes of the artifact in slot.
func (s *Session) Content(ctx context.Context, slot artifacts.Slot) (*artifacts.Artifact, io.ReadCloser, error) {
	a, err := s.Artifact(slot)
	if err != nil {
		return nil, nil, err
	}

	if a.StorageKey != "" && s.storage != nil {
		rc, err := s.storage.Download(ctx, a.StorageKey)
		if err != nil {
			return nil, nil, err
		}
		return a, rc, nil
	}

	return a, io.NopCloser(bytes.NewReader(a.Payload)), nil
}

// Remove clears slot, cancelling its upload.
func (s *Session) Remove(slot artifacts.Slot) {
	s.touch()
	s.uploader.Remove(slot)
	s.submitted.Store(false)
}

// Submit confirms both artifacts are ready to validate.
func (s *Session) Submit() error {
	s.touch()

	if !s.store.Ready(artifacts.Slots...) {
		s.notify(Notice{
			Title:       "Upload Required",
			Description: "Please upload both MDF and Artwork PDFs before proceeding.",
			Variant:     VariantDestructive,
		})
		return ErrUploadRequired
	}

	s.submitted.Store(true)
	s.notify(Notice{
		Title:       "Files Uploaded Successfully!",
		Description: "Proceeding to validation...",
		Variant:     VariantDefault,
	})
	return nil
}

// Rules returns every rule in catalog order.
func (s *Session) Rules() []rules.Rule {
	s.touch()
	return s.orch.Rules()
}

// Rule returns one rule's current state.
func (s *Session) Rule(id rules.ID) (rules.Rule, error) {
	return s.registry.Get(id)
}

// Trigger starts validating one rule.
func (s *Session) Trigger(id rules.ID) (*validation.Invocation, error) {
	s.touch()

	inv, err := s.orch.Trigger(id)
	if errors.Is(err, validation.ErrMissingArtifact) {
		s.notify(Notice{
			Title:       "Artwork Required",
			Description: "Upload an Artwork PDF before running validation.",
			Variant:     VariantDestructive,
		})
	}
	return inv, err
}

// RunAll resets and re-runs every rule.
func (s *Session) RunAll() (*validation.Run, error) {
	s.touch()

	run, err := s.orch.RunAll()
	if err != nil {
		if errors.Is(err, validation.ErrMissingArtifact) {
			s.notify(Notice{
				Title:       "Artwork Required",
				Description: "Upload an Artwork PDF before running validation.",
				Variant:     VariantDestructive,
			})
		}
		return nil, err
	}

	s.publish(EventRun, RunProgress{Progress: 0})

	err = s.lc.Go(func(ctx context.Context) {
		select {
		case <-run.Done():
			s.runFinished()
		case <-ctx.Done():
		}
	})
	if err != nil {
		s.logger.Warn("run watcher not started", "error", err)
	}
	return run, nil
}

// Summary derives the aggregate result.
func (s *Session) Summary() validation.Summary {
	s.touch()
	return s.orch.Summary()
}

// Report returns the validation report when one is available.
func (s *Session) Report() (validation.Report, error) {
	s.touch()
	return s.orch.Report()
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() Snapshot {
	snapshot := s.store.Snapshot()
	arts := make([]artifacts.Artifact, 0, len(snapshot))
	for _, slot := range artifacts.Slots {
		if a := snapshot[slot]; a != nil {
			arts = append(arts, *a)
		}
	}

	rs := s.orch.Rules()
	return Snapshot{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive(),
		Submitted:  s.submitted.Load(),
		Artifacts:  arts,
		Rules:      rs,
		Summary:    validation.Summarize(rs),
	}
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load()).UTC()
}

// Close cancels every upload and rule check, discards stored artifacts, and
// ends the event stream. Close is idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, slot := range artifacts.Slots {
			s.uploader.Remove(slot)
		}
		s.uploader.Close()

		err = s.lc.Shutdown(s.timeout)

		for _, stop := range s.stops {
			stop()
		}

		s.publish(EventClosed, nil)
		s.bus.Close()

		s.logger.Info("session closed")
	})
	return err
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Session) publish(t EventType, data any) {
	s.bus.Publish(Event{
		Type:      t,
		SessionID: s.ID,
		Time:      time.Now().UTC(),
		Data:      data,
	})
}

func (s *Session) notify(n Notice) {
	s.publish(EventNotice, n)
}

type artifactChange struct {
	Slot     artifacts.Slot      `json:"slot"`
	Artifact *artifacts.Artifact `json:"artifact"`
}

func (s *Session) artifactChanged(slot artifacts.Slot, a *artifacts.Artifact) {
	s.publish(EventArtifact, artifactChange{Slot: slot, Artifact: a})
}

func (s *Session) uploaded(a artifacts.Artifact, err error) {
	if err != nil {
		s.notify(Notice{
			Title:       "Upload Failed",
			Description: fmt.Sprintf("%s PDF could not be uploaded: %v", a.Slot.Label(), err),
			Variant:     VariantDestructive,
		})
		return
	}
	s.notify(Notice{
		Title:       "Upload Complete!",
		Description: fmt.Sprintf("%s PDF uploaded successfully.", a.Slot.Label()),
		Variant:     VariantDefault,
	})
}

func (s *Session) ruleChanged(r rules.Rule) {
	s.publish(EventRule, r)

	running := s.orch.Running()
	if r.Status == rules.StatusFailed && !running {
		s.notify(Notice{
			Title:       fmt.Sprintf("%s Failed", r.Name),
			Description: r.ErrorDetails,
			Variant:     VariantDestructive,
		})
	}

	if running {
		s.publishRunProgress(r)
	}
}

func (s *Session) publishRunProgress(current rules.Rule) {
	rs := s.registry.List()
	summary := validation.Summarize(rs)

	progress := RunProgress{Progress: (summary.Passed + summary.Failed) * 100 / max(summary.Total, 1)}
	if current.Status == rules.StatusValidating {
		for i, r := range rs {
			if r.ID == current.ID {
				progress.Step = fmt.Sprintf("Step %d: %s", i+1, r.Name)
				break
			}
		}
	}
	s.publish(EventRun, progress)
}

func (s *Session) runFinished() {
	summary := s.orch.Summary()
	s.publish(EventRun, RunProgress{Progress: 100, Step: "Validation Complete", Done: true})

	if summary.Failed == 0 && summary.Passed == summary.Total {
		s.notify(Notice{
			Title:       "Validation Successful!",
			Description: "All validation rules passed. Your artwork is ready for production!",
			Variant:     VariantDefault,
		})
		return
	}

	s.notify(Notice{
		Title:       "Validation Issues Found",
		Description: fmt.Sprintf("%d issues found. Please review the failed items.", summary.Total-summary.Passed),
		Variant:     VariantDestructive,
	})
}
