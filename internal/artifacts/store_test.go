package artifacts_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/preflight/internal/artifacts"
)

func sample(slot artifacts.Slot) *artifacts.Artifact {
	return &artifacts.Artifact{
		ID:        uuid.New(),
		Slot:      slot,
		Filename:  "artwork.pdf",
		MediaType: artifacts.MediaTypePDF,
		Payload:   []byte("%PDF-1.7"),
	}
}

func TestSetGetClear(t *testing.T) {
	store := artifacts.NewStore()
	assert.Nil(t, store.Get(artifacts.SlotArtwork))

	a := sample(artifacts.SlotArtwork)
	store.Set(artifacts.SlotArtwork, a)

	got := store.Get(artifacts.SlotArtwork)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
	assert.Nil(t, store.Get(artifacts.SlotMDF), "slots are independent")

	store.Set(artifacts.SlotArtwork, nil)
	assert.Nil(t, store.Get(artifacts.SlotArtwork))
}

func TestSetReplacesNotMerges(t *testing.T) {
	store := artifacts.NewStore()

	first := sample(artifacts.SlotMDF)
	first.Progress = 60
	store.Set(artifacts.SlotMDF, first)

	second := sample(artifacts.SlotMDF)
	second.Filename = "mdf-v2.pdf"
	store.Set(artifacts.SlotMDF, second)

	got := store.Get(artifacts.SlotMDF)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, "mdf-v2.pdf", got.Filename)
}

func TestGetReturnsCopy(t *testing.T) {
	store := artifacts.NewStore()
	store.Set(artifacts.SlotArtwork, sample(artifacts.SlotArtwork))

	got := store.Get(artifacts.SlotArtwork)
	got.Progress = 100
	got.Ready = true

	again := store.Get(artifacts.SlotArtwork)
	assert.Equal(t, 0, again.Progress)
	assert.False(t, again.Ready)
}

func TestUpdateDropsStaleWrites(t *testing.T) {
	store := artifacts.NewStore()

	old := sample(artifacts.SlotArtwork)
	store.Set(artifacts.SlotArtwork, old)

	ok := store.Update(artifacts.SlotArtwork, old.ID, func(a *artifacts.Artifact) { a.Progress = 30 })
	assert.True(t, ok)

	current := sample(artifacts.SlotArtwork)
	store.Set(artifacts.SlotArtwork, current)

	ok = store.Update(artifacts.SlotArtwork, old.ID, func(a *artifacts.Artifact) {
		a.Progress = 100
		a.Ready = true
	})
	assert.False(t, ok)

	got := store.Get(artifacts.SlotArtwork)
	assert.Equal(t, current.ID, got.ID)
	assert.False(t, got.Ready)

	store.Set(artifacts.SlotArtwork, nil)
	assert.False(t, store.Update(artifacts.SlotArtwork, current.ID, func(a *artifacts.Artifact) {}))
}

func TestObserversSeeEveryWriteInOrder(t *testing.T) {
	store := artifacts.NewStore()

	var seen []int
	var cleared int
	stop := store.Observe(func(slot artifacts.Slot, a *artifacts.Artifact) {
		if a == nil {
			cleared++
			return
		}
		seen = append(seen, a.Progress)
		// observers may read back the committed state
		assert.Equal(t, a.Progress, store.Get(slot).Progress)
	})

	a := sample(artifacts.SlotArtwork)
	store.Set(artifacts.SlotArtwork, a)
	for _, p := range []int{10, 20, 30} {
		store.Update(artifacts.SlotArtwork, a.ID, func(x *artifacts.Artifact) { x.Progress = p })
	}
	store.Set(artifacts.SlotArtwork, nil)

	assert.Equal(t, []int{0, 10, 20, 30}, seen)
	assert.Equal(t, 1, cleared)

	stop()
	store.Set(artifacts.SlotArtwork, sample(artifacts.SlotArtwork))
	assert.Len(t, seen, 4, "observer removed")
}

func TestReady(t *testing.T) {
	store := artifacts.NewStore()
	assert.False(t, store.Ready(artifacts.SlotMDF, artifacts.SlotArtwork))

	for _, slot := range artifacts.Slots {
		a := sample(slot)
		a.Progress = 100
		a.Ready = true
		store.Set(slot, a)
	}
	assert.True(t, store.Ready(artifacts.SlotMDF, artifacts.SlotArtwork))
	assert.Len(t, store.Snapshot(), 2)
}

func TestParseSlot(t *testing.T) {
	slot, err := artifacts.ParseSlot(" Artwork ")
	require.NoError(t, err)
	assert.Equal(t, artifacts.SlotArtwork, slot)
	assert.Equal(t, "Artwork", slot.Label())

	_, err = artifacts.ParseSlot("cover")
	assert.True(t, errors.Is(err, artifacts.ErrInvalidSlot))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, artifacts.IsPDF("application/pdf"))
	assert.True(t, artifacts.IsPDF("Application/PDF; name=art.pdf"))
	assert.False(t, artifacts.IsPDF("image/png"))
	assert.False(t, artifacts.IsPDF(""))
}
