package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"veritas/internal/domain"
	"veritas/internal/logging"
	"veritas/internal/repository"
)

type companyRepository interface {
	CompanyReader
	Create(ctx context.Context, company *domain.Company) error
	List(ctx context.Context) ([]domain.Company, error)
}

// Archiver archives the documents of one company.
type Archiver interface {
	ArchiveCompany(ctx context.Context, company *domain.Company) *domain.AggregateResult
}

// ValidationError lists every problem with a company input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == repository.ErrValidation
}

type CompanyService struct {
	repo     companyRepository
	archiver Archiver
	logger   *zap.Logger
}

func NewCompanyService(repo companyRepository, archiver Archiver, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:     repo,
		archiver: archiver,
		logger:   logging.OrNop(logger),
	}
}

// Create registers a company and archives its documents right away. A failed
// archive run still leaves the company created; the result says what failed.
func (s *CompanyService) Create(ctx context.Context, in domain.CompanyInput) (*domain.Company, *domain.AggregateResult, error) {
	company, err := buildCompany(in)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.Create(ctx, company); err != nil {
		if errors.Is(err, repository.ErrUniqueConflict) {
			return nil, nil, &ValidationError{Problems: []string{"domain has already been taken"}}
		}
		return nil, nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.logger.Info("company created", zap.Int64("company_id", company.ID), zap.String("domain", company.Domain))

	return company, s.archiver.ArchiveCompany(ctx, company), nil
}

// Rearchive captures fresh snapshots of every configured document.
func (s *CompanyService) Rearchive(ctx context.Context, id int64) (*domain.Company, *domain.AggregateResult, error) {
	company, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return company, s.archiver.ArchiveCompany(ctx, company), nil
}

func (s *CompanyService) Get(ctx context.Context, id int64) (*domain.Company, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CompanyService) List(ctx context.Context) ([]domain.Company, error) {
	return s.repo.List(ctx)
}

func buildCompany(in domain.CompanyInput) (*domain.Company, error) {
	var problems []string

	name := strings.TrimSpace(in.Name)
	if name == "" {
		problems = append(problems, "name can't be blank")
	}
	domainName := domain.NormalizeDomain(in.Domain)
	if domainName == "" {
		problems = append(problems, "domain can't be blank")
	}

	termsURL := strings.TrimSpace(in.TermsURL)
	switch {
	case termsURL == "":
		problems = append(problems, "terms_url can't be blank")
	case !isWebURL(termsURL):
		problems = append(problems, "terms_url must be a valid URL")
	}

	var privacyURL *string
	if in.PrivacyURL != nil {
		if p := strings.TrimSpace(*in.PrivacyURL); p != "" {
			if !isWebURL(p) {
				problems = append(problems, "privacy_url must be a valid URL")
			}
			privacyURL = &p
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	now := utcNow()
	return &domain.Company{
		Name:        name,
		Domain:      domainName,
		TermsURL:    termsURL,
		PrivacyURL:  privacyURL,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
