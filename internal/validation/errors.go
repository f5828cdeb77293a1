package validation

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/preflight/internal/rules"
)

// Domain errors for validation operations.
var (
	ErrMissingArtifact   = errors.New("artwork artifact is missing or not ready")
	ErrReportUnavailable = errors.New("report is available only when every validated rule passed")
)

// MapHTTPStatus maps validation and rule errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrMissingArtifact) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrReportUnavailable) {
		return http.StatusConflict
	}
	return rules.MapHTTPStatus(err)
}
