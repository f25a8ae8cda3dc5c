package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"veritas/internal/domain"
)

type archiveRepository interface {
	lineageRepository
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	CreateSnapshot(ctx context.Context, tx *sqlx.Tx, s *domain.Snapshot) error
	CreateEntry(ctx context.Context, tx *sqlx.Tx, e *domain.ArchiveEntry) error
}

// ArchiveRecorder writes a snapshot and its version entry atomically.
type ArchiveRecorder struct {
	repo  archiveRepository
	chain *VersionChain
}

func NewArchiveRecorder(repo archiveRepository, chain *VersionChain) *ArchiveRecorder {
	return &ArchiveRecorder{repo: repo, chain: chain}
}

// Record inserts snapshot, links it into its lineage and inserts the entry.
// On any error nothing is committed.
func (r *ArchiveRecorder) Record(ctx context.Context, snapshot *domain.Snapshot, checksum string) (*domain.ArchiveEntry, error) {
	tx, err := r.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := r.repo.CreateSnapshot(ctx, tx, snapshot); err != nil {
		return nil, err
	}

	entry, err := r.chain.LinkAndAssignVersion(ctx, tx, snapshot, checksum)
	if err != nil {
		return nil, err
	}

	if err := r.repo.CreateEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit archive: %w", err)
	}

	return entry, nil
}
