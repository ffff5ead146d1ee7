package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/storage"
)

const reportColumns = `id, keyword_id, keyword, platform, analysis_result, feishu_pushed,
	feishu_push_at, feishu_response, error, created_at`

type ReportStore struct {
	db *sqlx.DB
}

func NewReportStore(db *sqlx.DB) *ReportStore {
	return &ReportStore{db: db}
}

type reportRow struct {
	ID             int64          `db:"id"`
	KeywordID      sql.NullInt64  `db:"keyword_id"`
	Keyword        string         `db:"keyword"`
	Platform       string         `db:"platform"`
	AnalysisResult []byte         `db:"analysis_result"`
	FeishuPushed   bool           `db:"feishu_pushed"`
	FeishuPushAt   sql.NullTime   `db:"feishu_push_at"`
	FeishuResponse []byte         `db:"feishu_response"`
	Error          sql.NullString `db:"error"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r reportRow) toModel() (*models.Report, error) {
	report := &models.Report{
		ID:           r.ID,
		Keyword:      r.Keyword,
		Platform:     models.Platform(r.Platform),
		FeishuPushed: r.FeishuPushed,
		CreatedAt:    r.CreatedAt,
	}
	if r.KeywordID.Valid {
		id := r.KeywordID.Int64
		report.KeywordID = &id
	}
	if len(r.AnalysisResult) > 0 {
		var result models.AnalysisResult
		if err := json.Unmarshal(r.AnalysisResult, &result); err != nil {
			return nil, fmt.Errorf("report %d has an unreadable analysis result: %w", r.ID, err)
		}
		report.AnalysisResult = &result
	}
	if r.FeishuPushAt.Valid {
		t := r.FeishuPushAt.Time
		report.FeishuPushAt = &t
	}
	if len(r.FeishuResponse) > 0 {
		report.FeishuResponse = json.RawMessage(r.FeishuResponse)
	}
	if r.Error.Valid {
		e := r.Error.String
		report.Error = &e
	}
	return report, nil
}

// jsonParam renders a value for a $n::jsonb placeholder; nil stays SQL NULL
func jsonParam(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *ReportStore) InsertReport(ctx context.Context, draft models.ReportDraft) (int64, error) {
	var analysis sql.NullString
	if draft.AnalysisResult != nil {
		var err error
		if analysis, err = jsonParam(draft.AnalysisResult); err != nil {
			return 0, fmt.Errorf("failed to encode analysis result: %w", err)
		}
	}

	var keywordID sql.NullInt64
	if draft.KeywordID != nil {
		keywordID = sql.NullInt64{Int64: *draft.KeywordID, Valid: true}
	}

	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scheduled_reports (keyword_id, keyword, platform, analysis_result, error, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		RETURNING id`,
		keywordID, draft.Keyword, string(draft.Platform), analysis, nullString(draft.Error), createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}
	return id, nil
}

func (s *ReportStore) UpdateDelivery(ctx context.Context, id int64, delivery models.Delivery) error {
	var response sql.NullString
	if len(delivery.Response) > 0 {
		response = sql.NullString{String: string(delivery.Response), Valid: true}
	}
	var pushedAt sql.NullTime
	if delivery.PushedAt != nil {
		pushedAt = sql.NullTime{Time: *delivery.PushedAt, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_reports SET
			feishu_pushed = $1,
			feishu_push_at = $2,
			feishu_response = $3::jsonb,
			error = COALESCE($4, error)
		WHERE id = $5`,
		delivery.Pushed, pushedAt, response, nullString(delivery.Error), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery of report %d: %w", id, err)
	}
	return expectOneRow(res, "report", id)
}

func (s *ReportStore) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	var row reportRow
	err := s.db.GetContext(ctx, &row, `SELECT `+reportColumns+` FROM scheduled_reports WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", id, err)
	}
	return row.toModel()
}

func (s *ReportStore) ListReports(ctx context.Context, filter storage.ReportFilter) ([]models.Report, int, error) {
	filter = filter.Normalize()

	var conditions []string
	var args []any
	if filter.KeywordID != nil {
		args = append(args, *filter.KeywordID)
		conditions = append(conditions, fmt.Sprintf("keyword_id = $%d", len(args)))
	}
	if filter.Platform != "" {
		args = append(args, string(filter.Platform))
		conditions = append(conditions, fmt.Sprintf("platform = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM scheduled_reports`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM scheduled_reports%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		reportColumns, where, len(args)-1, len(args))

	var rows []reportRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]models.Report, 0, len(rows))
	for _, row := range rows {
		report, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, *report)
	}
	return reports, total, nil
}
