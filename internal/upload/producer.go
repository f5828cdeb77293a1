// Package upload moves selected documents into the artifact store. A Producer
// performs the transfer and reports progress; the Uploader owns slot
// supersession and guarantees that only the newest selection can write.
package upload

import (
	"context"

	"github.com/JaimeStill/preflight/internal/artifacts"
)

// File is a document chosen by the user for a slot.
type File struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Receipt describes where a completed transfer landed.
type Receipt struct {
	StorageKey string
}

// Producer transfers an artifact's payload, calling report with cumulative
// progress percentages. Producers must return promptly once ctx is done.
type Producer interface {
	Produce(ctx context.Context, a artifacts.Artifact, report func(percent int)) (Receipt, error)
}

// Discarder is implemented by producers that leave state behind (such as a
// stored blob) which should be released when an artifact is replaced or removed.
type Discarder interface {
	Discard(ctx context.Context, a artifacts.Artifact) error
}
