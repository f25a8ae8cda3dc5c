package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"veritas/internal/domain"
	"veritas/internal/logging"
	"veritas/internal/repository"
	"veritas/internal/service"
)

type CompanyService interface {
	Create(ctx context.Context, in domain.CompanyInput) (*domain.Company, *domain.AggregateResult, error)
	Rearchive(ctx context.Context, id int64) (*domain.Company, *domain.AggregateResult, error)
	Get(ctx context.Context, id int64) (*domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
}

type CompanyHandler struct {
	companies CompanyService
	logger    *zap.Logger
}

type archiveResponse struct {
	Company *domain.Company         `json:"company"`
	Archive *domain.AggregateResult `json:"archive"`
	Notice  string                  `json:"notice,omitempty"`
	Alert   string                  `json:"alert,omitempty"`
}

func NewCompanyHandler(companies CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, logger: logging.OrNop(logger)}
}

func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req domain.CompanyInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	company, res, err := h.companies.Create(r.Context(), req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeError(w, h.logger, http.StatusUnprocessableEntity, "Validation failed", ve.Problems...)
			return
		}
		h.logger.Error("failed to create company", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create company")
		return
	}

	notice, alert := createNotice(res)
	writeJSON(w, h.logger, http.StatusCreated, archiveResponse{
		Company: company,
		Archive: res,
		Notice:  notice,
		Alert:   alert,
	})
}

func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list companies", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list companies")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, companies)
}

func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid company ID")
		return
	}

	company, err := h.companies.Get(r.Context(), id)
	if err != nil {
		h.companyError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, company)
}

func (h *CompanyHandler) Rearchive(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid company ID")
		return
	}

	company, res, err := h.companies.Rearchive(r.Context(), id)
	if err != nil {
		h.companyError(w, err)
		return
	}

	notice, alert := rearchiveNotice(res)
	writeJSON(w, h.logger, http.StatusOK, archiveResponse{
		Company: company,
		Archive: res,
		Notice:  notice,
		Alert:   alert,
	})
}

func (h *CompanyHandler) companyError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Company not found")
		return
	}
	h.logger.Error("company lookup failed", zap.Error(err))
	writeError(w, h.logger, http.StatusInternalServerError, "Failed to load company")
}
