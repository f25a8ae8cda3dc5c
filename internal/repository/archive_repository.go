package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"veritas/internal/domain"
)

// ArchiveRepository persists snapshots and their archive entries. Writes go
// through an explicit transaction so a snapshot never exists without its entry.
type ArchiveRepository struct {
	db *sqlx.DB
}

func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func (r *ArchiveRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

func (r *ArchiveRepository) CreateSnapshot(ctx context.Context, tx *sqlx.Tx, s *domain.Snapshot) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}

	query := tx.Rebind(`
        INSERT INTO snapshots (
            uuid, company_id, url, document_type, title, page_title,
            content, content_id, size_bytes, captured_at
        ) VALUES (
            ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
        ) RETURNING id`)

	err := tx.QueryRowxContext(
		ctx,
		query,
		s.UUID,
		s.CompanyID,
		s.URL,
		s.DocumentType,
		s.Title,
		s.PageTitle,
		s.Content,
		s.ContentID,
		s.SizeBytes,
		s.CapturedAt,
	).Scan(&s.ID)

	return wrap("create snapshot", err)
}

// FindPreviousSnapshot returns the most recent snapshot of url other than
// excludeID, or nil when the URL has no history.
func (r *ArchiveRepository) FindPreviousSnapshot(ctx context.Context, tx *sqlx.Tx, url string, excludeID int64) (*domain.Snapshot, error) {
	query := tx.Rebind(`
        SELECT * FROM snapshots
        WHERE url = ? AND id <> ?
        ORDER BY captured_at DESC, id DESC
        LIMIT 1`)

	var s domain.Snapshot
	if err := tx.GetContext(ctx, &s, query, url, excludeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("find previous snapshot", err)
	}

	return &s, nil
}

// LatestEntryForSnapshot returns the highest-version entry of a snapshot, or nil.
func (r *ArchiveRepository) LatestEntryForSnapshot(ctx context.Context, tx *sqlx.Tx, snapshotID int64) (*domain.ArchiveEntry, error) {
	query := tx.Rebind(`
        SELECT * FROM archive_entries
        WHERE snapshot_id = ?
        ORDER BY version DESC
        LIMIT 1`)

	var e domain.ArchiveEntry
	if err := tx.GetContext(ctx, &e, query, snapshotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("find latest entry", err)
	}

	return &e, nil
}

// MaxVersion returns the highest version recorded in scope, or 0.
func (r *ArchiveRepository) MaxVersion(ctx context.Context, tx *sqlx.Tx, scopeID uuid.UUID) (int, error) {
	query := tx.Rebind(`SELECT COALESCE(MAX(version), 0) FROM archive_entries WHERE scope_id = ?`)

	var version int
	if err := tx.GetContext(ctx, &version, query, scopeID); err != nil {
		return 0, wrap("max version", err)
	}

	return version, nil
}

func (r *ArchiveRepository) CreateEntry(ctx context.Context, tx *sqlx.Tx, e *domain.ArchiveEntry) error {
	if e.Version < 1 {
		return &PersistenceError{Kind: KindValidation, Op: "create archive entry", Detail: fmt.Sprintf("version must be positive, got %d", e.Version)}
	}
	if e.Checksum == "" {
		return &PersistenceError{Kind: KindValidation, Op: "create archive entry", Detail: "checksum is required"}
	}

	query := tx.Rebind(`
        INSERT INTO archive_entries (
            snapshot_id, scope_id, version, checksum, change_marker,
            recorded_by, previous_entry_id, created_at
        ) VALUES (
            ?, ?, ?, ?, ?, ?, ?, ?
        ) RETURNING id`)

	err := tx.QueryRowxContext(
		ctx,
		query,
		e.SnapshotID,
		e.ScopeID,
		e.Version,
		e.Checksum,
		e.ChangeMarker,
		e.RecordedBy,
		e.PreviousEntryID,
		e.CreatedAt,
	).Scan(&e.ID)

	return wrap("create archive entry", err)
}

func (r *ArchiveRepository) GetSnapshotByUUID(ctx context.Context, id uuid.UUID) (*domain.Snapshot, error) {
	query := r.db.Rebind(`SELECT * FROM snapshots WHERE uuid = ?`)

	var s domain.Snapshot
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, wrap("get snapshot", err)
	}

	return &s, nil
}

// ListSnapshotsByCompany returns the newest snapshots first, without their text.
func (r *ArchiveRepository) ListSnapshotsByCompany(ctx context.Context, companyID int64, limit int) ([]domain.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Rebind(`
        SELECT id, uuid, company_id, url, document_type, title, page_title,
               '' AS content, content_id, size_bytes, captured_at
        FROM snapshots
        WHERE company_id = ?
        ORDER BY captured_at DESC, id DESC
        LIMIT ?`)

	snapshots := make([]domain.Snapshot, 0)
	if err := r.db.SelectContext(ctx, &snapshots, query, companyID, limit); err != nil {
		return nil, wrap("list snapshots", err)
	}

	return snapshots, nil
}

// ListEntriesBySnapshot returns the entries of a snapshot ordered by version.
func (r *ArchiveRepository) ListEntriesBySnapshot(ctx context.Context, snapshotID int64) ([]domain.ArchiveEntry, error) {
	query := r.db.Rebind(`SELECT * FROM archive_entries WHERE snapshot_id = ? ORDER BY version`)

	entries := make([]domain.ArchiveEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, snapshotID); err != nil {
		return nil, wrap("list archive entries", err)
	}

	return entries, nil
}

// ListEntriesByScope returns the whole lineage of a URL ordered by version.
func (r *ArchiveRepository) ListEntriesByScope(ctx context.Context, scopeID uuid.UUID) ([]domain.ArchiveEntry, error) {
	query := r.db.Rebind(`SELECT * FROM archive_entries WHERE scope_id = ? ORDER BY version`)

	entries := make([]domain.ArchiveEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, scopeID); err != nil {
		return nil, wrap("list archive entries", err)
	}

	return entries, nil
}
