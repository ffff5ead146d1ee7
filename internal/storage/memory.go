package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/content-factory/topic-monitor/internal/models"
)

// MemoryStore is an in-process Store used by tests and STORAGE_DRIVER=memory
type MemoryStore struct {
	mu          sync.RWMutex
	keywords    map[int64]*models.MonitoredKeyword
	reports     []*models.Report
	settings    map[string]string
	nextKeyword int64
	nextReport  int64
	now         func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keywords: make(map[int64]*models.MonitoredKeyword),
		settings: make(map[string]string),
		now:      time.Now,
	}
}

func (m *MemoryStore) ListKeywords(ctx context.Context) ([]models.MonitoredKeyword, error) {
	return m.listKeywords(false), nil
}

func (m *MemoryStore) ListEnabledKeywords(ctx context.Context) ([]models.MonitoredKeyword, error) {
	return m.listKeywords(true), nil
}

func (m *MemoryStore) listKeywords(enabledOnly bool) []models.MonitoredKeyword {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.MonitoredKeyword, 0, len(m.keywords))
	for _, kw := range m.keywords {
		if enabledOnly && !kw.Enabled {
			continue
		}
		out = append(out, copyKeyword(kw))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) GetKeyword(ctx context.Context, id int64) (*models.MonitoredKeyword, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kw, ok := m.keywords[id]
	if !ok {
		return nil, fmt.Errorf("keyword %d: %w", id, ErrNotFound)
	}
	c := copyKeyword(kw)
	return &c, nil
}

func (m *MemoryStore) CreateKeyword(ctx context.Context, keyword string, platform models.Platform, enabled bool) (*models.MonitoredKeyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conflicts(0, keyword, platform) {
		return nil, ErrKeywordExists
	}

	m.nextKeyword++
	now := m.now()
	kw := &models.MonitoredKeyword{
		ID:        m.nextKeyword,
		Keyword:   keyword,
		Platform:  platform,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.keywords[kw.ID] = kw
	c := copyKeyword(kw)
	return &c, nil
}

func (m *MemoryStore) UpdateKeyword(ctx context.Context, id int64, update models.KeywordUpdate) (*models.MonitoredKeyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kw, ok := m.keywords[id]
	if !ok {
		return nil, fmt.Errorf("keyword %d: %w", id, ErrNotFound)
	}

	keyword, platform := kw.Keyword, kw.Platform
	if update.Keyword != nil {
		keyword = *update.Keyword
	}
	if update.Platform != nil {
		platform = *update.Platform
	}
	if m.conflicts(id, keyword, platform) {
		return nil, ErrKeywordExists
	}

	kw.Keyword, kw.Platform = keyword, platform
	if update.Enabled != nil {
		kw.Enabled = *update.Enabled
	}
	kw.UpdatedAt = m.now()
	c := copyKeyword(kw)
	return &c, nil
}

func (m *MemoryStore) DeleteKeyword(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keywords[id]; !ok {
		return fmt.Errorf("keyword %d: %w", id, ErrNotFound)
	}
	delete(m.keywords, id)

	for _, r := range m.reports {
		if r.KeywordID != nil && *r.KeywordID == id {
			r.KeywordID = nil
		}
	}
	return nil
}

func (m *MemoryStore) TouchLastRun(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kw, ok := m.keywords[id]
	if !ok {
		return fmt.Errorf("keyword %d: %w", id, ErrNotFound)
	}
	kw.LastRunAt = &at
	kw.UpdatedAt = at
	return nil
}

// conflicts must be called with the lock held
func (m *MemoryStore) conflicts(selfID int64, keyword string, platform models.Platform) bool {
	for id, kw := range m.keywords {
		if id != selfID && kw.Keyword == keyword && kw.Platform == platform {
			return true
		}
	}
	return false
}

func (m *MemoryStore) InsertReport(ctx context.Context, draft models.ReportDraft) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextReport++
	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = m.now()
	}

	r := &models.Report{
		ID:        m.nextReport,
		Keyword:   draft.Keyword,
		Platform:  draft.Platform,
		CreatedAt: createdAt,
	}
	if draft.KeywordID != nil {
		id := *draft.KeywordID
		r.KeywordID = &id
	}
	if draft.AnalysisResult != nil {
		snapshot, err := cloneAnalysis(draft.AnalysisResult)
		if err != nil {
			return 0, err
		}
		r.AnalysisResult = snapshot
	}
	if draft.Error != "" {
		e := draft.Error
		r.Error = &e
	}

	m.reports = append(m.reports, r)
	return r.ID, nil
}

func (m *MemoryStore) UpdateDelivery(ctx context.Context, id int64, delivery models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.findReport(id)
	if r == nil {
		return fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	r.FeishuPushed = delivery.Pushed
	r.FeishuPushAt = delivery.PushedAt
	r.FeishuResponse = append(json.RawMessage(nil), delivery.Response...)
	if delivery.Error != "" {
		e := delivery.Error
		r.Error = &e
	}
	return nil
}

func (m *MemoryStore) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.findReport(id)
	if r == nil {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	c, err := copyReport(r)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MemoryStore) ListReports(ctx context.Context, filter ReportFilter) ([]models.Report, int, error) {
	filter = filter.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.Report
	for i := len(m.reports) - 1; i >= 0; i-- {
		r := m.reports[i]
		if filter.KeywordID != nil && (r.KeywordID == nil || *r.KeywordID != *filter.KeywordID) {
			continue
		}
		if filter.Platform != "" && r.Platform != filter.Platform {
			continue
		}
		c, err := copyReport(r)
		if err != nil {
			return nil, 0, err
		}
		matched = append(matched, c)
	}

	total := len(matched)
	if filter.Offset >= total {
		return []models.Report{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

// findReport must be called with the lock held
func (m *MemoryStore) findReport(id int64) *models.Report {
	for _, r := range m.reports {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *MemoryStore) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.settings[key]
	if !ok {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return v, nil
}

func (m *MemoryStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = value
	return nil
}

func (m *MemoryStore) ListSettings(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func copyKeyword(kw *models.MonitoredKeyword) models.MonitoredKeyword {
	c := *kw
	if kw.LastRunAt != nil {
		t := *kw.LastRunAt
		c.LastRunAt = &t
	}
	return c
}

// copyReport detaches every pointer of a stored report from the store's state
func copyReport(r *models.Report) (models.Report, error) {
	c := *r
	if r.KeywordID != nil {
		id := *r.KeywordID
		c.KeywordID = &id
	}
	if r.AnalysisResult != nil {
		snapshot, err := cloneAnalysis(r.AnalysisResult)
		if err != nil {
			return models.Report{}, err
		}
		c.AnalysisResult = snapshot
	}
	if r.FeishuPushAt != nil {
		t := *r.FeishuPushAt
		c.FeishuPushAt = &t
	}
	if r.FeishuResponse != nil {
		c.FeishuResponse = append(json.RawMessage(nil), r.FeishuResponse...)
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return c, nil
}

// cloneAnalysis snapshots the result through JSON, the same round trip the
// relational store performs
func cloneAnalysis(a *models.AnalysisResult) (*models.AnalysisResult, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}
	var out models.AnalysisResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &out, nil
}
