package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/domain"
	"veritas/internal/repository"
	"veritas/internal/testutil"
)

func TestCompanyRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCompanyRepository(db)
	ctx := context.Background()

	privacy := "https://acme.example/privacy"
	now := testutil.Now()
	c := &domain.Company{
		Name:        "Acme",
		Domain:      "acme.example",
		TermsURL:    "https://acme.example/terms",
		PrivacyURL:  &privacy,
		Description: "Anvils",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Create(ctx, c))
	require.NotZero(t, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, privacy, got.PrivacyURLValue())

	byDomain, err := repo.GetByDomain(ctx, "acme.example")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byDomain.ID)
}

func TestCompanyRepository_DuplicateDomain(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCompanyRepository(db)
	testutil.CreateCompany(t, db, "Acme", "https://acme.example/terms", "")

	now := testutil.Now()
	err := repo.Create(context.Background(), &domain.Company{
		Name:      "Acme Again",
		Domain:    "acme.example",
		TermsURL:  "https://acme.example/terms",
		CreatedAt: now,
		UpdatedAt: now,
	})

	assert.ErrorIs(t, err, repository.ErrUniqueConflict)
}

func TestCompanyRepository_GetMissing(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := repository.NewCompanyRepository(db).GetByID(context.Background(), 42)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCompanyRepository_List(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateCompany(t, db, "Zeta", "https://zeta.example/terms", "")
	testutil.CreateCompany(t, db, "Acme", "https://acme.example/terms", "")

	companies, err := repository.NewCompanyRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "Acme", companies[0].Name)
	assert.Nil(t, companies[0].PrivacyURL)
}
