package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"veritas/internal/domain"
)

type lineageRepository interface {
	FindPreviousSnapshot(ctx context.Context, tx *sqlx.Tx, url string, excludeID int64) (*domain.Snapshot, error)
	LatestEntryForSnapshot(ctx context.Context, tx *sqlx.Tx, snapshotID int64) (*domain.ArchiveEntry, error)
	MaxVersion(ctx context.Context, tx *sqlx.Tx, scopeID uuid.UUID) (int, error)
}

// VersionChain numbers snapshots within their URL lineage and links each new
// entry to the latest entry of the previous snapshot of the same URL.
type VersionChain struct {
	repo       lineageRepository
	recordedBy string
	now        func() time.Time
}

func NewVersionChain(repo lineageRepository, recordedBy string) *VersionChain {
	if recordedBy == "" {
		recordedBy = "system"
	}
	return &VersionChain{
		repo:       repo,
		recordedBy: recordedBy,
		now:        utcNow,
	}
}

// LinkAndAssignVersion drafts the archive entry for a snapshot that was just
// inserted in tx. The draft is not persisted. A concurrent writer that takes
// the same version is rejected by the (scope_id, version) unique index when
// the draft is inserted.
func (c *VersionChain) LinkAndAssignVersion(ctx context.Context, tx *sqlx.Tx, snapshot *domain.Snapshot, checksum string) (*domain.ArchiveEntry, error) {
	scope := domain.LineageScope(snapshot.URL)

	entry := &domain.ArchiveEntry{
		SnapshotID: snapshot.ID,
		ScopeID:    scope,
		Checksum:   checksum,
		RecordedBy: c.recordedBy,
		CreatedAt:  c.now(),
	}

	previous, err := c.repo.FindPreviousSnapshot(ctx, tx, snapshot.URL, snapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find previous snapshot: %w", err)
	}
	if previous != nil {
		prevEntry, err := c.repo.LatestEntryForSnapshot(ctx, tx, previous.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find previous entry: %w", err)
		}
		if prevEntry != nil {
			entry.PreviousEntryID = &prevEntry.ID
			marker := fmt.Sprintf("content changed since version %d", prevEntry.Version)
			entry.ChangeMarker = &marker
		}
	}

	maxVersion, err := c.repo.MaxVersion(ctx, tx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	entry.Version = maxVersion + 1

	return entry, nil
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
