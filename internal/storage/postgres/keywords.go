package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/storage"
)

const uniqueViolation = "23505"

const keywordColumns = `id, keyword, platform, enabled, last_run_at, created_at, updated_at`

type KeywordStore struct {
	db *sqlx.DB
}

func NewKeywordStore(db *sqlx.DB) *KeywordStore {
	return &KeywordStore{db: db}
}

func (s *KeywordStore) ListKeywords(ctx context.Context) ([]models.MonitoredKeyword, error) {
	keywords := []models.MonitoredKeyword{}
	err := s.db.SelectContext(ctx, &keywords,
		`SELECT `+keywordColumns+` FROM monitored_keywords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	return keywords, nil
}

func (s *KeywordStore) ListEnabledKeywords(ctx context.Context) ([]models.MonitoredKeyword, error) {
	keywords := []models.MonitoredKeyword{}
	err := s.db.SelectContext(ctx, &keywords,
		`SELECT `+keywordColumns+` FROM monitored_keywords WHERE enabled = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled keywords: %w", err)
	}
	return keywords, nil
}

func (s *KeywordStore) GetKeyword(ctx context.Context, id int64) (*models.MonitoredKeyword, error) {
	var kw models.MonitoredKeyword
	err := s.db.GetContext(ctx, &kw,
		`SELECT `+keywordColumns+` FROM monitored_keywords WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("keyword %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get keyword %d: %w", id, err)
	}
	return &kw, nil
}

func (s *KeywordStore) CreateKeyword(ctx context.Context, keyword string, platform models.Platform, enabled bool) (*models.MonitoredKeyword, error) {
	var kw models.MonitoredKeyword
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO monitored_keywords (keyword, platform, enabled)
		VALUES ($1, $2, $3)
		RETURNING `+keywordColumns,
		keyword, string(platform), enabled,
	).StructScan(&kw)
	if isUniqueViolation(err) {
		return nil, storage.ErrKeywordExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword: %w", err)
	}
	return &kw, nil
}

func (s *KeywordStore) UpdateKeyword(ctx context.Context, id int64, update models.KeywordUpdate) (*models.MonitoredKeyword, error) {
	var keyword, platform sql.NullString
	var enabled sql.NullBool
	if update.Keyword != nil {
		keyword = sql.NullString{String: *update.Keyword, Valid: true}
	}
	if update.Platform != nil {
		platform = sql.NullString{String: string(*update.Platform), Valid: true}
	}
	if update.Enabled != nil {
		enabled = sql.NullBool{Bool: *update.Enabled, Valid: true}
	}

	var kw models.MonitoredKeyword
	err := s.db.QueryRowxContext(ctx, `
		UPDATE monitored_keywords SET
			keyword = COALESCE($1, keyword),
			platform = COALESCE($2, platform),
			enabled = COALESCE($3, enabled),
			updated_at = NOW()
		WHERE id = $4
		RETURNING `+keywordColumns,
		keyword, platform, enabled, id,
	).StructScan(&kw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("keyword %d: %w", id, storage.ErrNotFound)
	}
	if isUniqueViolation(err) {
		return nil, storage.ErrKeywordExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update keyword %d: %w", id, err)
	}
	return &kw, nil
}

func (s *KeywordStore) DeleteKeyword(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitored_keywords WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword %d: %w", id, err)
	}
	return expectOneRow(res, "keyword", id)
}

func (s *KeywordStore) TouchLastRun(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE monitored_keywords SET last_run_at = $1, updated_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last run of keyword %d: %w", id, err)
	}
	return expectOneRow(res, "keyword", id)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func expectOneRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
