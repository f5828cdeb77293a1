package rules_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/preflight/internal/rules"
)

func TestCatalog(t *testing.T) {
	defs := rules.Catalog()
	require.Len(t, defs, 6)

	want := []rules.ID{
		rules.Layout,
		rules.Barcode,
		rules.Dimensions,
		rules.Colors,
		rules.Quality,
		rules.Compliance,
	}
	for i, d := range defs {
		assert.Equal(t, want[i], d.ID)
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Description)
	}

	defs[0].Name = "mutated"
	assert.Equal(t, "Layout Verification", rules.Catalog()[0].Name, "catalog copies are independent")
}

func TestParseCatalogErrors(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"no rules":     "rules: []",
		"missing id":   "rules:\n  - name: X\n",
		"missing name": "rules:\n  - id: x\n",
		"duplicate":    "rules:\n  - id: x\n    name: X\n  - id: x\n    name: Y\n",
		"malformed":    "rules: [",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := rules.ParseCatalog([]byte(data))
			assert.True(t, errors.Is(err, rules.ErrInvalidCatalog), "got %v", err)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to rules.Status
		want     bool
	}{
		{rules.StatusPending, rules.StatusValidating, true},
		{rules.StatusPassed, rules.StatusValidating, true},
		{rules.StatusFailed, rules.StatusValidating, true},
		{rules.StatusValidating, rules.StatusValidating, false},
		{rules.StatusValidating, rules.StatusPassed, true},
		{rules.StatusValidating, rules.StatusFailed, true},
		{rules.StatusPending, rules.StatusPassed, false},
		{rules.StatusPassed, rules.StatusFailed, false},
		{rules.StatusFailed, rules.StatusPending, true},
		{rules.StatusValidating, rules.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, rules.CanTransition(tt.from, tt.to))
		})
	}
}

func TestRegistryStartsPending(t *testing.T) {
	reg := rules.NewRegistry(rules.Catalog())
	for _, r := range reg.List() {
		assert.Equal(t, rules.StatusPending, r.Status)
		assert.Empty(t, r.Details)
		assert.Empty(t, r.ErrorDetails)
	}
	assert.False(t, reg.Validating())
}

func TestBeginCommit(t *testing.T) {
	reg := rules.NewRegistry(rules.Catalog())

	attempt, err := reg.Begin(rules.Barcode)
	require.NoError(t, err)
	assert.Equal(t, 1, attempt)
	assert.True(t, reg.Validating())

	_, err = reg.Begin(rules.Barcode)
	assert.True(t, errors.Is(err, rules.ErrAlreadyValidating))

	r, ok := reg.Commit(rules.Barcode, attempt, rules.Outcome{Passed: true, Details: "2 barcodes passed"})
	require.True(t, ok)
	assert.Equal(t, rules.StatusPassed, r.Status)
	assert.Equal(t, "2 barcodes passed", r.Details)
	assert.Empty(t, r.ErrorDetails)

	_, ok = reg.Commit(rules.Barcode, attempt, rules.Outcome{Passed: false, Details: "late"})
	assert.False(t, ok, "commit after terminal status must be rejected")

	attempt, err = reg.Begin(rules.Barcode)
	require.NoError(t, err, "terminal status is re-enterable")
	assert.Equal(t, 2, attempt)

	current, _ := reg.Get(rules.Barcode)
	assert.Equal(t, rules.StatusValidating, current.Status)
	assert.Empty(t, current.Details)

	r, ok = reg.Commit(rules.Barcode, attempt, rules.Outcome{Passed: false, Details: "contrast failed"})
	require.True(t, ok)
	assert.Equal(t, rules.StatusFailed, r.Status)
	assert.Equal(t, "contrast failed", r.ErrorDetails)
	assert.Empty(t, r.Details)
}

func TestCommitRequiresValidating(t *testing.T) {
	reg := rules.NewRegistry(rules.Catalog())

	_, ok := reg.Commit(rules.Colors, 0, rules.Outcome{Passed: true})
	assert.False(t, ok, "pending rule cannot take a verdict")

	colors, _ := reg.Get(rules.Colors)
	assert.Equal(t, rules.StatusPending, colors.Status)
	assert.Nil(t, colors.UpdatedAt)
}

func TestCommitIsScopedToRule(t *testing.T) {
	reg := rules.NewRegistry(rules.Catalog())

	layoutAttempt, err := reg.Begin(rules.Layout)
	require.NoError(t, err)
	barcodeAttempt, err := reg.Begin(rules.Barcode)
	require.NoError(t, err)

	_, ok := reg.Commit(rules.Barcode, barcodeAttempt, rules.Outcome{Passed: true})
	require.True(t, ok)

	layout, _ := reg.Get(rules.Layout)
	assert.Equal(t, rules.StatusValidating, layout.Status)

	_, ok = reg.Commit(rules.Layout, layoutAttempt, rules.Outcome{Passed: false, Details: "x"})
	require.True(t, ok)

	barcode, _ := reg.Get(rules.Barcode)
	assert.Equal(t, rules.StatusPassed, barcode.Status)
}

func TestUnknownRule(t *testing.T) {
	reg := rules.NewRegistry(rules.Catalog())

	_, err := reg.Get("fonts")
	assert.True(t, errors.Is(err, rules.ErrUnknownRule))

	_, err = reg.Begin("fonts")
	assert.True(t, errors.Is(err, rules.ErrUnknownRule))
}

func TestReset(t *testing.T) {
	reg := rules.NewRegistry(rules.Catalog())

	attempt, _ := reg.Begin(rules.Layout)
	assert.True(t, errors.Is(reg.Reset(), rules.ErrAlreadyValidating))

	reg.Commit(rules.Layout, attempt, rules.Outcome{Passed: false, Details: "bad"})
	require.NoError(t, reg.Reset())

	layout, _ := reg.Get(rules.Layout)
	assert.Equal(t, rules.StatusPending, layout.Status)
	assert.Empty(t, layout.ErrorDetails)
}

func TestObserve(t *testing.T) {
	reg := rules.NewRegistry(rules.Catalog())

	var mu sync.Mutex
	var seen []rules.Status
	stop := reg.Observe(func(r rules.Rule) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.Status)
	})

	attempt, _ := reg.Begin(rules.Quality)
	reg.Commit(rules.Quality, attempt, rules.Outcome{Passed: true})
	require.NoError(t, reg.Reset())

	stop()
	reg.Begin(rules.Quality)

	assert.Equal(t, []rules.Status{rules.StatusValidating, rules.StatusPassed, rules.StatusPending}, seen)
}
