// Package artifacts holds the two document slots a validation session tracks
// (the MDF and the Artwork PDF) and the store that publishes their state.
package artifacts

import (
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaTypePDF is the only media type accepted for either slot.
const MediaTypePDF = "application/pdf"

// Slot identifies one of the document kinds tracked by a Store.
type Slot string

const (
	SlotMDF     Slot = "mdf"
	SlotArtwork Slot = "artwork"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotMDF, SlotArtwork}

// ParseSlot converts a path or flag value to a Slot.
func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case SlotMDF:
		return SlotMDF, nil
	case SlotArtwork:
		return SlotArtwork, nil
	}
	return "", ErrInvalidSlot
}

// Label is the user-facing name of the slot.
func (s Slot) Label() string {
	switch s {
	case SlotMDF:
		return "MDF"
	case SlotArtwork:
		return "Artwork"
	}
	return string(s)
}

// Artifact is a selected document moving through the upload lifecycle.
// Ready implies Progress == 100; the reverse does not hold while the
// final write is pending.
type Artifact struct {
	ID         uuid.UUID `json:"id"`
	Slot       Slot      `json:"slot"`
	Filename   string    `json:"filename"`
	MediaType  string    `json:"media_type"`
	SizeBytes  int64     `json:"size_bytes"`
	PageCount  *int      `json:"page_count,omitempty"`
	StorageKey string    `json:"storage_key,omitempty"`
	Progress   int       `json:"progress"`
	Ready      bool      `json:"ready"`
	Error      string    `json:"error,omitempty"`
	SelectedAt time.Time `json:"selected_at"`

	// Payload is the document body. It is never mutated after selection.
	Payload []byte `json:"-"`
}

// IsPDF reports whether mediaType names a PDF, ignoring case and parameters.
func IsPDF(mediaType string) bool {
	base, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	return base == MediaTypePDF
}
