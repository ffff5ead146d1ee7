package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/monitoring"
	"github.com/content-factory/topic-monitor/internal/storage"
)

// MockRunner is a mock implementation of Runner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunAnalysis(ctx context.Context) (*models.RunSummary, error) {
	args := m.Called(ctx)
	summary, _ := args.Get(0).(*models.RunSummary)
	return summary, args.Error(1)
}

func (m *MockRunner) GetMetrics() string {
	return m.Called().String(0)
}

// MockDispatcher is a mock implementation of notifications.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Push(ctx context.Context, webhookURL string, report *models.NotificationReport) models.DeliveryResult {
	args := m.Called(ctx, webhookURL, report)
	return args.Get(0).(models.DeliveryResult)
}

func (m *MockDispatcher) Test(ctx context.Context, webhookURL string) models.DeliveryResult {
	args := m.Called(ctx, webhookURL)
	return args.Get(0).(models.DeliveryResult)
}

// MockRescheduler is a mock implementation of Rescheduler
type MockRescheduler struct {
	mock.Mock
}

func (m *MockRescheduler) Reschedule(spec string) error {
	return m.Called(spec).Error(0)
}

type testServer struct {
	store      *storage.MemoryStore
	runner     *MockRunner
	dispatcher *MockDispatcher
	scheduler  *MockRescheduler
	handler    http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		store:      storage.NewMemoryStore(),
		runner:     &MockRunner{},
		dispatcher: &MockDispatcher{},
		scheduler:  &MockRescheduler{},
	}
	ts.handler = NewServer(ts.store, ts.runner, ts.dispatcher, ts.scheduler).Router()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec.Code, decoded
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer()
	ts.runner.On("GetMetrics").Return(`{"runs":3}`)

	code, body := ts.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, body = ts.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["runs"])
}

func TestCreateKeyword(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "Created", body: `{"keyword":" AI创作 ","platform":"wechat"}`, wantStatus: http.StatusCreated},
		{name: "Duplicate", body: `{"keyword":"AI创作","platform":"wechat"}`, wantStatus: http.StatusConflict, wantError: "already monitored"},
		{name: "Same keyword other platform", body: `{"keyword":"AI创作","platform":"xiaohongshu","enabled":false}`, wantStatus: http.StatusCreated},
		{name: "Empty keyword", body: `{"keyword":"  ","platform":"wechat"}`, wantStatus: http.StatusBadRequest, wantError: "empty"},
		{name: "Bad platform", body: `{"keyword":"x","platform":"douyin"}`, wantStatus: http.StatusBadRequest, wantError: "douyin"},
		{name: "Bad JSON", body: `{`, wantStatus: http.StatusBadRequest},
	}

	ts := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ts.do(t, "POST", "/api/keywords", tt.body)
			assert.Equal(t, tt.wantStatus, code)
			if tt.wantError != "" {
				assert.Equal(t, false, body["success"])
				assert.Contains(t, body["error"], tt.wantError)
			}
		})
	}

	keywords, err := ts.store.ListKeywords(context.Background())
	require.NoError(t, err)
	require.Len(t, keywords, 2)
	assert.Equal(t, "AI创作", keywords[0].Keyword)
	assert.True(t, keywords[0].Enabled)
	assert.False(t, keywords[1].Enabled)
}

func TestUpdateAndDeleteKeyword(t *testing.T) {
	ts := newTestServer()
	ctx := context.Background()
	kw, err := ts.store.CreateKeyword(ctx, "AI创作", models.PlatformWeChat, true)
	require.NoError(t, err)
	_, err = ts.store.CreateKeyword(ctx, "穿搭", models.PlatformWeChat, true)
	require.NoError(t, err)

	path := fmt.Sprintf("/api/keywords/%d", kw.ID)

	code, body := ts.do(t, "PUT", path, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, code)
	updated := body["keyword"].(map[string]any)
	assert.Equal(t, false, updated["enabled"])
	assert.Equal(t, "AI创作", updated["keyword"])

	code, _ = ts.do(t, "PUT", path, `{"keyword":"穿搭"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(t, "PUT", path, `{"keyword":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, "PUT", path, `{"platform":"weibo"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, "PUT", "/api/keywords/999", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, code)

	reportID, err := ts.store.InsertReport(ctx, models.ReportDraft{KeywordID: &kw.ID, Keyword: kw.Keyword, Platform: kw.Platform, Error: "x"})
	require.NoError(t, err)

	code, _ = ts.do(t, "DELETE", path, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, "DELETE", path, "")
	assert.Equal(t, http.StatusNotFound, code)

	report, err := ts.store.GetReport(ctx, reportID)
	require.NoError(t, err)
	assert.Nil(t, report.KeywordID)
}

func TestReports(t *testing.T) {
	ts := newTestServer()
	ctx := context.Background()
	kw, err := ts.store.CreateKeyword(ctx, "AI创作", models.PlatformWeChat, true)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := ts.store.InsertReport(ctx, models.ReportDraft{
			KeywordID:      &kw.ID,
			Keyword:        kw.Keyword,
			Platform:       kw.Platform,
			AnalysisResult: &models.AnalysisResult{Keyword: kw.Keyword, Platform: kw.Platform},
		})
		require.NoError(t, err)
	}
	_, err = ts.store.InsertReport(ctx, models.ReportDraft{Keyword: "other", Platform: models.PlatformXiaohongshu, Error: "down"})
	require.NoError(t, err)

	code, body := ts.do(t, "GET", fmt.Sprintf("/api/reports?keyword_id=%d&limit=2", kw.ID), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["total"])
	reports := body["reports"].([]any)
	require.Len(t, reports, 2)
	assert.Equal(t, float64(3), reports[0].(map[string]any)["id"])

	code, body = ts.do(t, "GET", "/api/reports?platform=xiaohongshu", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(20), body["limit"])

	code, _ = ts.do(t, "GET", "/api/reports?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = ts.do(t, "GET", "/api/reports/4", "")
	require.Equal(t, http.StatusOK, code)
	report := body["report"].(map[string]any)
	assert.Equal(t, "down", report["error"])
	assert.Nil(t, report["analysis_result"])

	code, _ = ts.do(t, "GET", "/api/reports/99", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSettings(t *testing.T) {
	ts := newTestServer()
	ts.scheduler.On("Reschedule", "0 9 * * *").Return(nil)
	ts.scheduler.On("Reschedule", "whenever").Return(errors.New("invalid cron schedule"))

	code, _ := ts.do(t, "PUT", "/api/settings", `{"key":"feishu_webhook","value":"https://example.com/hook"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, "PUT", "/api/settings", `{"key":"cron_time","value":"0 9 * * *"}`)
	assert.Equal(t, http.StatusOK, code)

	code, body := ts.do(t, "PUT", "/api/settings", `{"key":"cron_time","value":"whenever"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "invalid cron schedule")

	code, _ = ts.do(t, "PUT", "/api/settings", `{"value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = ts.do(t, "GET", "/api/settings", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{
		"feishu_webhook": "https://example.com/hook",
		"cron_time":      "0 9 * * *",
	}, body["settings"])

	code, body = ts.do(t, "GET", "/api/settings/cron_time", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0 9 * * *", body["setting"].(map[string]any)["value"])

	code, _ = ts.do(t, "GET", "/api/settings/missing", "")
	assert.Equal(t, http.StatusNotFound, code)

	ts.scheduler.AssertExpectations(t)
}

func TestWebhookTest(t *testing.T) {
	ts := newTestServer()
	ts.dispatcher.On("Test", mock.Anything, "https://example.com/given").Return(models.DeliveryResult{Success: true})
	ts.dispatcher.On("Test", mock.Anything, "https://example.com/stored").Return(models.DeliveryResult{Error: "token invalid"})

	code, body := ts.do(t, "POST", "/api/settings/webhook/test", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "webhookUrl")

	code, body = ts.do(t, "POST", "/api/settings/webhook/test", `{"webhookUrl":"https://example.com/given"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	require.NoError(t, ts.store.SetSetting(context.Background(), storage.SettingFeishuWebhook, "https://example.com/stored"))
	code, body = ts.do(t, "POST", "/api/settings/webhook/test", `{}`)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "token invalid", body["error"])
}

func TestTriggerRun(t *testing.T) {
	reportID := int64(7)
	tests := []struct {
		name        string
		summary     *models.RunSummary
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name: "Completed",
			summary: &models.RunSummary{
				RunID:   "run-1",
				Success: true,
				Results: []models.KeywordResult{
					{Keyword: "k1", Success: true, ReportID: &reportID},
					{Keyword: "k2", Error: "vendor down"},
				},
			},
			wantStatus:  http.StatusOK,
			wantMessage: "1/2 succeeded",
		},
		{
			name:        "Webhook missing",
			summary:     &models.RunSummary{Results: []models.KeywordResult{}},
			err:         monitoring.ErrWebhookNotConfigured,
			wantStatus:  http.StatusPreconditionFailed,
			wantMessage: monitoring.ErrWebhookNotConfigured.Error(),
		},
		{
			name:       "Run in progress",
			err:        fmt.Errorf("%w: lock is held", monitoring.ErrRunInProgress),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "Storage failure",
			err:        errors.New("failed to insert report: connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.runner.On("RunAnalysis", mock.Anything).Return(tt.summary, tt.err)

			code, body := ts.do(t, "POST", "/api/runs", "")
			assert.Equal(t, tt.wantStatus, code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, body["message"])
				assert.NotNil(t, body["results"])
			}
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, body["error"], "connection refused")
			}
		})
	}
}
