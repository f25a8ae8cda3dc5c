package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveEntry links a snapshot into the version lineage of its URL.
type ArchiveEntry struct {
	ID              int64     `json:"id" db:"id"`
	SnapshotID      int64     `json:"-" db:"snapshot_id"`
	ScopeID         uuid.UUID `json:"scope_id" db:"scope_id"`
	Version         int       `json:"version" db:"version"`
	Checksum        string    `json:"checksum" db:"checksum"`
	ChangeMarker    *string   `json:"change_marker,omitempty" db:"change_marker"`
	RecordedBy      string    `json:"recorded_by" db:"recorded_by"`
	PreviousEntryID *int64    `json:"previous_entry_id,omitempty" db:"previous_entry_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// HasChanges reports whether the entry was recorded against a predecessor.
func (e *ArchiveEntry) HasChanges() bool {
	return e.ChangeMarker != nil && *e.ChangeMarker != ""
}

// LineageScope derives the version scope of a URL: every snapshot of the same
// URL shares one counter.
func LineageScope(url string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url))
}
