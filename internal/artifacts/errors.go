package artifacts

import (
	"errors"
	"net/http"
)

// Domain errors for artifact operations.
var (
	ErrInvalidSlot      = errors.New("invalid artifact slot")
	ErrInvalidMediaType = errors.New("invalid media type: only application/pdf is accepted")
	ErrNotFound         = errors.New("artifact not found")
)

// MapHTTPStatus maps artifact domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidSlot) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrInvalidMediaType) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}
