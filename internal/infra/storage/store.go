// Package storage persists orders, contracts, positions and transfers
// behind gorm. It supports SQLite for embedded use and PostgreSQL for
// deployments; row locking is only issued on PostgreSQL since SQLite
// serializes writers at the file level anyway.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"exchange_go/internal/domain"
	"exchange_go/internal/infra"
)

const otcOrdersTable = "otc_orders"

// Store wraps the database handle and knows which dialect it speaks.
type Store struct {
	db     *gorm.DB
	driver string
}

// Open connects to the configured database and migrates the schema.
func Open(cfg *infra.Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	default:
		// Ensure directory exists for the SQLite file
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create DB directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Database.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, driver: cfg.Database.Driver}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Order{},
		&domain.Contract{},
		&domain.Position{},
		&domain.Transfer{},
	); err != nil {
		return err
	}
	// OTC liquidity shares the order schema in its own table.
	return db.Table(otcOrdersTable).AutoMigrate(&domain.Order{})
}

// Transaction runs fn inside one database transaction. A returned error
// rolls everything back; errors from gorm itself surface as STORAGE_ERROR.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	return domain.WrapError(domain.CodeStorage, err)
}

// Reader returns a handle for read-only queries outside the writer.
func (s *Store) Reader(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return domain.WrapError(domain.CodeStorage, err)
	}
	return domain.WrapError(domain.CodeStorage, sqlDB.PingContext(ctx))
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// forUpdate adds FOR UPDATE on dialects that support it.
func (s *Store) forUpdate(tx *gorm.DB, lock bool) *gorm.DB {
	if lock && s.driver == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// orders selects the normal or OTC order table. The model is always set
// so timestamp handling applies regardless of the table.
func orders(tx *gorm.DB, otc bool) *gorm.DB {
	q := tx.Model(&domain.Order{})
	if otc {
		q = q.Table(otcOrdersTable)
	}
	return q
}
