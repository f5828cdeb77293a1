package checks

import "errors"

var (
	ErrBackend        = errors.New("backend error")
	ErrTransport      = errors.New("transport error")
	ErrParse          = errors.New("parse error")
	ErrNotImplemented = errors.New("not yet implemented")
	ErrNoPayload      = errors.New("artifact has no payload")
)
