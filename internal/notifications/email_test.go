package notifications

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/models"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func sampleSummary() *models.RunSummary {
	reportID := int64(9)
	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	return &models.RunSummary{
		RunID:      "run-1",
		Success:    true,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Results: []models.KeywordResult{
			{KeywordID: 1, Keyword: "AI创作", Platform: models.PlatformWeChat, Success: true, ReportID: &reportID, Delivered: true},
			{KeywordID: 2, Keyword: "穿搭", Platform: models.PlatformXiaohongshu, Error: "vendor down"},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AppURL:            "http://localhost:3000",
		TimeZone:          "Asia/Shanghai",
		NotificationEmail: "ops@example.com",
		SMTPUsername:      "bot@example.com",
	}
}

func TestEmailNotifier_SendRunSummary(t *testing.T) {
	sender := &fakeSender{}
	notifier := &EmailNotifier{config: testConfig(), sender: sender}

	require.NoError(t, notifier.SendRunSummary(sampleSummary()))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"ops@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"选题分析日报 - 2026-03-09 (1/2 succeeded)"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
}

func TestEmailNotifier_SendError(t *testing.T) {
	notifier := &EmailNotifier{config: testConfig(), sender: &fakeSender{err: errors.New("smtp down")}}
	assert.ErrorContains(t, notifier.SendRunSummary(sampleSummary()), "smtp down")
}

func TestEmailNotifier_Bodies(t *testing.T) {
	notifier := &EmailNotifier{config: testConfig()}
	summary := sampleSummary()

	html, err := notifier.buildEmailHTML(summary)
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>1/2</strong> keywords succeeded")
	assert.Contains(t, html, `href="http://localhost:3000/reports/9"`)
	assert.Contains(t, html, "Failed: vendor down")
	assert.Contains(t, html, "took 1m30s")

	text := notifier.buildEmailText(summary)
	assert.Contains(t, text, "1. AI创作 (公众号) OK")
	assert.Contains(t, text, "2. 穿搭 (小红书) FAILED: vendor down")
	assert.Contains(t, text, "Report: http://localhost:3000/reports/9")
}
