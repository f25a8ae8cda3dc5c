package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"veritas/internal/domain"
	"veritas/internal/repository"
	"veritas/internal/testutil"
)

type recordingArchiver struct {
	calls []int64
}

func (a *recordingArchiver) ArchiveCompany(_ context.Context, c *domain.Company) *domain.AggregateResult {
	a.calls = append(a.calls, c.ID)
	return domain.NewAggregateResult([]domain.ItemResult{{
		DocumentType: domain.DocumentTerms,
		State:        domain.StateArchived,
		Archived:     &domain.ArchivedItem{Version: 1},
	}})
}

func newCompanyService(t *testing.T) (*CompanyService, *recordingArchiver) {
	t.Helper()
	archiver := &recordingArchiver{}
	db := testutil.NewDB(t)
	return NewCompanyService(repository.NewCompanyRepository(db), archiver, zaptest.NewLogger(t)), archiver
}

func TestCompanyService_CreateArchives(t *testing.T) {
	svc, archiver := newCompanyService(t)
	privacy := " https://acme.example/privacy "

	company, res, err := svc.Create(context.Background(), domain.CompanyInput{
		Name:       " Acme ",
		Domain:     "https://www.Acme.example/",
		TermsURL:   "https://acme.example/terms",
		PrivacyURL: &privacy,
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme", company.Name)
	assert.Equal(t, "acme.example", company.Domain)
	assert.Equal(t, "https://acme.example/privacy", company.PrivacyURLValue())
	assert.True(t, res.OverallSuccess)
	assert.Equal(t, []int64{company.ID}, archiver.calls)

	_, res, err = svc.Rearchive(context.Background(), company.ID)
	require.NoError(t, err)
	assert.True(t, res.OverallSuccess)
	assert.Len(t, archiver.calls, 2)
}

func TestCompanyService_Validation(t *testing.T) {
	svc, archiver := newCompanyService(t)
	bad := "ftp://acme.example/privacy"

	_, _, err := svc.Create(context.Background(), domain.CompanyInput{
		TermsURL:   "not a url",
		PrivacyURL: &bad,
	})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ElementsMatch(t, []string{
		"name can't be blank",
		"domain can't be blank",
		"terms_url must be a valid URL",
		"privacy_url must be a valid URL",
	}, ve.Problems)
	assert.ErrorIs(t, err, repository.ErrValidation)
	assert.Empty(t, archiver.calls)
}

func TestCompanyService_DuplicateDomain(t *testing.T) {
	svc, _ := newCompanyService(t)
	in := domain.CompanyInput{Name: "Acme", Domain: "acme.example", TermsURL: "https://acme.example/terms"}

	_, _, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	_, _, err = svc.Create(context.Background(), in)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "domain has already been taken", ve.Error())
}

func TestCompanyService_RearchiveUnknown(t *testing.T) {
	svc, _ := newCompanyService(t)

	_, _, err := svc.Rearchive(context.Background(), 99)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}
