package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/internal/upload"
	"github.com/JaimeStill/preflight/pkg/handlers"
	"github.com/JaimeStill/preflight/pkg/routes"
)

// Handler provides HTTP endpoints for session operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "sessions"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "POST", Pattern: "/{id}/submit", Handler: h.Submit},
			{Method: "POST", Pattern: "/{id}/validate", Handler: h.RunAll},
			{Method: "GET", Pattern: "/{id}/rules", Handler: h.Rules},
			{Method: "POST", Pattern: "/{id}/rules/{rule}/validate", Handler: h.Trigger},
			{Method: "GET", Pattern: "/{id}/summary", Handler: h.Summary},
			{Method: "GET", Pattern: "/{id}/report", Handler: h.Report},
			{Method: "GET", Pattern: "/{id}/events", Handler: h.Events},
		},
		Children: []routes.Group{
			{
				Prefix: "/{id}/artifacts/{slot}",
				Routes: []routes.Route{
					{Method: "PUT", Pattern: "", Handler: h.SelectFile},
					{Method: "GET", Pattern: "", Handler: h.Artifact},
					{Method: "DELETE", Pattern: "", Handler: h.Remove},
					{Method: "GET", Pattern: "/content", Handler: h.Content},
				},
			},
		},
	}
}

// RulesGroup returns the catalog endpoint, which needs no session.
func (h *Handler) RulesGroup() routes.Group {
	return routes.Group{
		Prefix: "/rules",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Catalog},
		},
	}
}

// Catalog returns the rule definitions in display order.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Catalog())
}

// List returns a snapshot of every live session.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.List())
}

// Create starts a new session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.sys.Create()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, s.Snapshot())
}

// Find returns the session snapshot.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, s.Snapshot())
}

// Delete tears the session down.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	if err := h.sys.Delete(id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectFile accepts a multipart upload in field "file" and starts its
// upload into the slot. With ?wait=true the response is deferred until the
// upload finishes.
func (h *Handler) SelectFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidFile, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: missing form field \"file\"", ErrInvalidFile))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	seq, err := s.SelectFile(slot, upload.File{
		Filename:  header.Filename,
		MediaType: detectContentType(header.Header.Get("Content-Type"), data),
		Data:      data,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if wait(r) {
		if err := seq.Wait(r.Context()); err != nil {
			handlers.RespondError(w, h.logger, http.StatusConflict, err)
			return
		}
		h.respondArtifact(w, s, slot, http.StatusOK)
		return
	}

	h.respondArtifact(w, s, slot, http.StatusAccepted)
}

// Artifact returns the artifact in the slot.
func (h *Handler) Artifact(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}
	h.respondArtifact(w, s, slot, http.StatusOK)
}

// Content streams the artifact's PDF bytes.
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}

	a, body, err := s.Content(r.Context(), slot)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", a.MediaType)
	if a.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}

// Remove clears the slot.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}

	s.Remove(slot)
	w.WriteHeader(http.StatusNoContent)
}

// Submit checks that both artifacts are ready.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Submit(); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, s.Snapshot())
}

// Rules returns the session's rules in catalog order.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, s.Rules())
}

// Trigger starts validating one rule. With ?wait=true the response carries
// the committed verdict.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	inv, err := s.Trigger(rules.ID(chi.URLParam(r, "rule")))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if wait(r) {
		rule, err := inv.Wait(r.Context())
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusRequestTimeout, err)
			return
		}
		handlers.RespondJSON(w, http.StatusOK, rule)
		return
	}

	rule, err := s.Rule(inv.Rule)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusAccepted, rule)
}

// RunAll resets and re-runs every rule. With ?wait=true the response is
// deferred until the run finishes.
func (h *Handler) RunAll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	run, err := s.RunAll()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusAccepted
	if wait(r) {
		if err := run.Wait(r.Context()); err != nil {
			handlers.RespondError(w, h.logger, http.StatusRequestTimeout, err)
			return
		}
		status = http.StatusOK
	}
	handlers.RespondJSON(w, status, s.Snapshot())
}

// Summary returns the aggregate result.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, s.Summary())
}

// Report returns the validation report when every validated rule passed.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	report, err := s.Report()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, report)
}

// Events streams session events as Server-Sent Events until the client
// disconnects or the session closes.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	events, stop := s.Events()
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	h.writeEvent(w, flusher, "snapshot", s.Snapshot())

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			h.writeEvent(w, flusher, string(e.Type), e)
		}
	}
}

func (h *Handler) writeEvent(w http.ResponseWriter, flusher http.Flusher, name string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal event", "event", name, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	flusher.Flush()
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return nil, false
	}

	s, err := h.sys.Find(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return s, true
}

func (h *Handler) slot(w http.ResponseWriter, r *http.Request) (artifacts.Slot, bool) {
	slot, err := artifacts.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return "", false
	}
	return slot, true
}

func (h *Handler) respondArtifact(w http.ResponseWriter, s *Session, slot artifacts.Slot, status int) {
	a, err := s.Artifact(slot)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, status, a)
}

func wait(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return v
}

// detectContentType returns the part's declared media type. Only a part
// that declares none is sniffed from its bytes; a declared type, including
// application/octet-stream, is taken as given.
func detectContentType(header string, data []byte) string {
	if header = strings.TrimSpace(header); header != "" {
		return header
	}
	return http.DetectContentType(data)
}
