package upload

import "errors"

var (
	// ErrSuperseded ends a sequence whose slot was taken by a newer selection.
	ErrSuperseded = errors.New("upload superseded by a newer selection")
	// ErrCancelled ends a sequence whose artifact was removed or whose session closed.
	ErrCancelled = errors.New("upload cancelled")
)
