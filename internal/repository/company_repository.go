package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"veritas/internal/domain"
)

type CompanyRepository struct {
	db *sqlx.DB
}

func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	query := r.db.Rebind(`
        INSERT INTO companies (
            name, domain, terms_url, privacy_url, description, created_at, updated_at
        ) VALUES (
            ?, ?, ?, ?, ?, ?, ?
        ) RETURNING id`)

	err := r.db.QueryRowxContext(
		ctx,
		query,
		company.Name,
		company.Domain,
		company.TermsURL,
		company.PrivacyURL,
		company.Description,
		company.CreatedAt,
		company.UpdatedAt,
	).Scan(&company.ID)

	return wrap("create company", err)
}

func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*domain.Company, error) {
	query := r.db.Rebind(`SELECT * FROM companies WHERE id = ?`)

	var company domain.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		return nil, wrap("get company", err)
	}

	return &company, nil
}

func (r *CompanyRepository) GetByDomain(ctx context.Context, domainName string) (*domain.Company, error) {
	query := r.db.Rebind(`SELECT * FROM companies WHERE domain = ?`)

	var company domain.Company
	if err := r.db.GetContext(ctx, &company, query, domainName); err != nil {
		return nil, wrap("get company", err)
	}

	return &company, nil
}

// List returns companies ordered by name.
func (r *CompanyRepository) List(ctx context.Context) ([]domain.Company, error) {
	query := `SELECT * FROM companies ORDER BY name, id`

	companies := make([]domain.Company, 0)
	if err := r.db.SelectContext(ctx, &companies, query); err != nil {
		return nil, wrap("list companies", err)
	}

	return companies, nil
}
