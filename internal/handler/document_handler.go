package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"veritas/internal/domain"
	"veritas/internal/logging"
	"veritas/internal/repository"
	"veritas/internal/service"
	"veritas/internal/service/cas"
)

type DocumentService interface {
	Get(ctx context.Context, id uuid.UUID) (*service.Document, error)
	ListByCompany(ctx context.Context, companyID int64, limit int) ([]domain.Snapshot, error)
	Entries(ctx context.Context, id uuid.UUID) ([]domain.ArchiveEntry, error)
	Content(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type DocumentHandler struct {
	documents DocumentService
	logger    *zap.Logger
}

func NewDocumentHandler(documents DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logging.OrNop(logger)}
}

func (h *DocumentHandler) ListCompanyDocuments(w http.ResponseWriter, r *http.Request) {
	companyID, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid company ID")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	docs, err := h.documents.ListByCompany(r.Context(), companyID, limit)
	if err != nil {
		h.logger.Error("failed to list documents", zap.Int64("company_id", companyID), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list documents")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		h.documentError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, doc)
}

func (h *DocumentHandler) GetArchives(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	entries, err := h.documents.Entries(r.Context(), id)
	if err != nil {
		h.documentError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, entries)
}

// GetContent streams the stored text back from the content store.
func (h *DocumentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	data, err := h.documents.Content(r.Context(), id)
	if err != nil {
		h.documentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write content", zap.Error(err))
	}
}

func (h *DocumentHandler) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid document ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *DocumentHandler) documentError(w http.ResponseWriter, err error) {
	var se *cas.StoreError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "Document not found")
	case errors.As(err, &se) && se.Kind == cas.KindBackendUnavailable:
		writeError(w, h.logger, http.StatusServiceUnavailable, se.Error())
	case errors.As(err, &se) && se.Kind == cas.KindNotFound:
		writeError(w, h.logger, http.StatusNotFound, se.Error())
	case errors.As(err, &se) && se.Kind == cas.KindCorrupt:
		h.logger.Error("stored content failed verification", zap.Error(err))
		writeError(w, h.logger, http.StatusBadGateway, se.Error())
	default:
		h.logger.Error("document lookup failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load document")
	}
}
