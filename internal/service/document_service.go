package service

import (
	"context"

	"github.com/google/uuid"

	"veritas/internal/domain"
	"veritas/internal/service/cas"
)

type documentRepository interface {
	GetSnapshotByUUID(ctx context.Context, id uuid.UUID) (*domain.Snapshot, error)
	ListSnapshotsByCompany(ctx context.Context, companyID int64, limit int) ([]domain.Snapshot, error)
	ListEntriesBySnapshot(ctx context.Context, snapshotID int64) ([]domain.ArchiveEntry, error)
}

// Document is a snapshot as served to readers.
type Document struct {
	*domain.Snapshot
	GatewayURL    string `json:"gateway_url,omitempty"`
	LatestVersion int    `json:"latest_version"`
}

// DocumentService reads archived snapshots and their stored content.
type DocumentService struct {
	repo       documentRepository
	store      cas.Store
	gatewayURL string
}

func NewDocumentService(repo documentRepository, store cas.Store, gatewayURL string) *DocumentService {
	return &DocumentService{repo: repo, store: store, gatewayURL: gatewayURL}
}

func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	snapshot, err := s.repo.GetSnapshotByUUID(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListEntriesBySnapshot(ctx, snapshot.ID)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Snapshot:   snapshot,
		GatewayURL: cas.GatewayURL(s.gatewayURL, snapshot.ContentID),
	}
	if n := len(entries); n > 0 {
		doc.LatestVersion = entries[n-1].Version
	}
	return doc, nil
}

func (s *DocumentService) ListByCompany(ctx context.Context, companyID int64, limit int) ([]domain.Snapshot, error) {
	return s.repo.ListSnapshotsByCompany(ctx, companyID, limit)
}

func (s *DocumentService) Entries(ctx context.Context, id uuid.UUID) ([]domain.ArchiveEntry, error) {
	snapshot, err := s.repo.GetSnapshotByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEntriesBySnapshot(ctx, snapshot.ID)
}

// Content fetches the stored bytes of a snapshot from the content store.
func (s *DocumentService) Content(ctx context.Context, id uuid.UUID) ([]byte, error) {
	snapshot, err := s.repo.GetSnapshotByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, snapshot.ContentID)
}

func (s *DocumentService) StoreMode() cas.Mode {
	return s.store.Mode()
}
