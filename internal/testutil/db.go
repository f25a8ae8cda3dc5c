// Package testutil holds shared test fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"veritas/internal/config"
	"veritas/internal/domain"
	"veritas/internal/repository"
)

// NewDB returns a migrated in-memory SQLite database closed at test cleanup.
// Every :memory: connection is a separate database, so the pool is pinned
// to a single connection.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open(config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}
	require.NoError(t, repository.Migrate(db, cfg, zaptest.NewLogger(t)))

	return db
}

// Now is a UTC timestamp at the precision both databases keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CreateCompany inserts a company with the given URLs.
func CreateCompany(t testing.TB, db *sqlx.DB, name, termsURL, privacyURL string) *domain.Company {
	t.Helper()

	now := Now()
	c := &domain.Company{
		Name:      name,
		Domain:    domain.NormalizeDomain(name + ".example"),
		TermsURL:  termsURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if privacyURL != "" {
		c.PrivacyURL = &privacyURL
	}
	require.NoError(t, repository.NewCompanyRepository(db).Create(context.Background(), c))
	return c
}
