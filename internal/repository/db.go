package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"veritas/internal/config"
	"veritas/internal/logging"
	"veritas/migrations"
)

const migrateAttempts = 5

// Open connects to the configured database and checks the connection.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == config.DriverPostgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

// Migrate brings the schema up to date. A dirty version left by an earlier
// failed run is forced before migrating.
func Migrate(db *sqlx.DB, cfg config.DatabaseConfig, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	m, closeFn, err := newMigrate(db, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		logger.Warn("dirty database state, forcing version", zap.Uint("version", version))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ = m.Version()
	logger.Info("database migrated", zap.String("driver", cfg.Driver), zap.Uint("version", version))
	return nil
}

func newMigrate(db *sqlx.DB, cfg config.DatabaseConfig, logger *zap.Logger) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrations.FS, cfg.Driver)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	switch cfg.Driver {
	case config.DriverSQLite:
		driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create migrate driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
		}
		// Closing m would close the shared *sql.DB; only the source is released.
		return m, func() { _ = src.Close() }, nil

	case config.DriverPostgres:
		var m *migrate.Migrate
		for i := 0; i < migrateAttempts; i++ {
			m, err = migrate.NewWithSourceInstance("iofs", src, cfg.GetURL())
			if err == nil {
				break
			}
			logger.Warn("failed to create migrate instance",
				zap.Int("attempt", i+1),
				zap.Int("of", migrateAttempts),
				zap.Error(err))
			time.Sleep(5 * time.Second)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create migrate instance after retries: %w", err)
		}
		return m, func() { m.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
