package rules

import (
	"errors"
	"net/http"
)

// Domain errors for rule operations.
var (
	ErrUnknownRule       = errors.New("unknown validation rule")
	ErrAlreadyValidating = errors.New("rule is already validating")
	ErrInvalidTransition = errors.New("invalid rule status transition")
	ErrInvalidCatalog    = errors.New("invalid rule catalog")
)

// MapHTTPStatus maps rule domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnknownRule) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrAlreadyValidating) || errors.Is(err, ErrInvalidTransition) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
