// Package postgres implements the storage interfaces on PostgreSQL with sqlx.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/content-factory/topic-monitor/internal/storage"
)

//go:embed schema.sql
var schema string

// Open connects and verifies the database
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates the tables if they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Store combines the three postgres stores into a storage.Store
type Store struct {
	*KeywordStore
	*ReportStore
	*SettingsStore
}

var _ storage.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		KeywordStore:  NewKeywordStore(db),
		ReportStore:   NewReportStore(db),
		SettingsStore: NewSettingsStore(db),
	}
}
