package sessions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/validation"
	"github.com/JaimeStill/preflight/pkg/lifecycle"
	"github.com/JaimeStill/preflight/pkg/storage"
)

// Domain errors for session operations.
var (
	ErrNotFound       = errors.New("session not found")
	ErrInvalidID      = errors.New("invalid session id")
	ErrUploadRequired = errors.New("both MDF and Artwork PDFs must finish uploading before proceeding")
	ErrFileTooLarge   = errors.New("file exceeds maximum upload size")
	ErrInvalidFile    = errors.New("invalid file")
)

// MapHTTPStatus maps session, artifact, and validation errors to
// appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidFile) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUploadRequired) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, lifecycle.ErrClosed) {
		return http.StatusGone
	}
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	if status := artifacts.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return validation.MapHTTPStatus(err)
}
