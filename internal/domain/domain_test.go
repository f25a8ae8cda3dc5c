package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"Acme.example":                 "acme.example",
		"  https://www.Acme.example/x ": "acme.example",
		"http://acme.example?q=1":      "acme.example",
		"www.acme.example":             "acme.example",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeDomain(in), in)
	}
}

func TestSnapshotTitle(t *testing.T) {
	assert.Equal(t, "Acme Terms of Service", SnapshotTitle("Acme", DocumentTerms))
	assert.Equal(t, "Acme Privacy Policy", SnapshotTitle("Acme", DocumentPrivacy))
	assert.Equal(t, "Acme Document", SnapshotTitle("Acme", DocumentType("cookies")))
}

func TestLineageScope(t *testing.T) {
	a := LineageScope("https://acme.example/terms")

	assert.Equal(t, a, LineageScope("https://acme.example/terms"))
	assert.NotEqual(t, a, LineageScope("https://acme.example/privacy"))
	assert.Equal(t, 5, int(a.Version()))
}

func TestNewAggregateResult(t *testing.T) {
	ok := ItemResult{DocumentType: DocumentTerms, State: StateArchived, Archived: &ArchivedItem{Version: 1}}
	failed := ItemResult{
		DocumentType: DocumentPrivacy,
		State:        StateFailed,
		Failure:      &ItemFailure{Stage: StateFetching, Message: "Failed to scrape privacy: HTTP 404: Not Found", Err: errors.New("x")},
	}

	partial := NewAggregateResult([]ItemResult{ok, failed})
	assert.True(t, partial.OverallSuccess)
	assert.Equal(t, []string{"Failed to scrape privacy: HTTP 404: Not Found"}, partial.Errors)
	assert.Len(t, partial.Succeeded(), 1)
	assert.Len(t, partial.Failed(), 1)

	none := NewAggregateResult(nil)
	assert.False(t, none.OverallSuccess)
	assert.Empty(t, none.Errors)
	assert.NotNil(t, none.Errors)

	allFailed := NewAggregateResult([]ItemResult{failed, failed})
	assert.False(t, allFailed.OverallSuccess)
	assert.Len(t, allFailed.Errors, 2)
}

func TestArchiveEntryHasChanges(t *testing.T) {
	marker := "content changed since version 1"

	assert.False(t, (&ArchiveEntry{}).HasChanges())
	assert.True(t, (&ArchiveEntry{ChangeMarker: &marker}).HasChanges())
}
