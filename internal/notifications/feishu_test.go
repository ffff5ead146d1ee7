package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/content-factory/topic-monitor/internal/models"
)

func sampleReport() *models.NotificationReport {
	return &models.NotificationReport{
		Keyword:   "AI创作",
		Platform:  models.PlatformWeChat,
		ReportID:  42,
		ReportURL: "http://localhost:3000/reports/42",
		Stats:     models.Stats{TotalItems: 3, AvgReach: 12345, AvgLikes: 8, AvgEngagement: "12.1%"},
		TopByCount: []models.RankedItem{
			{Title: "item1", Likes: 10, Reads: 100, Engagement: "10%", URL: "https://mp.weixin.qq.com/s/1"},
			{Title: "item3", Likes: 8, Reads: 40, Engagement: "20%"},
		},
		Insights: &models.InsightBundle{
			Insights: []models.Insight{
				{Title: "工具评测", Description: "读者偏好横评", Trend: models.TrendRising},
				{Title: "入门教程", Description: "新手多", Trend: models.TrendDeclining},
				{Title: "案例拆解", Description: "稳定需求"},
			},
			RecommendedTopics: []string{"t1", "t2", "t3", "t4", "t5", "t6"},
		},
		Date: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC),
	}
}

func cardText(card feishuCardMessage) string {
	var parts []string
	for _, el := range card.Card.Elements {
		if el.Text != nil {
			parts = append(parts, el.Text.Content)
		}
		for _, t := range el.Elements {
			parts = append(parts, t.Content)
		}
	}
	return strings.Join(parts, "\n")
}

func TestBuildCard_WeChat(t *testing.T) {
	card := buildCard(sampleReport(), 7)

	assert.Equal(t, "interactive", card.MsgType)
	assert.Equal(t, "blue", card.Card.Header.Template)
	assert.Equal(t, "📱 公众号选题分析日报 - AI创作", card.Card.Header.Title.Content)

	text := cardText(card)
	assert.Contains(t, text, "📅 2026/03/09")
	assert.Contains(t, text, "分析文章数：**3** 篇")
	assert.Contains(t, text, "平均阅读量：**12,345**")
	assert.Contains(t, text, "平均互动率：**12.1%**")
	assert.Contains(t, text, "**1. [item1](https://mp.weixin.qq.com/s/1)**")
	assert.Contains(t, text, "**2. item3**")
	assert.Contains(t, text, "**1. 📈 工具评测**")
	assert.Contains(t, text, "**2. 📉 入门教程**")
	assert.Contains(t, text, "**3. ➡️ 案例拆解**")
	assert.Contains(t, text, "5. t5")
	assert.NotContains(t, text, "t6")
	assert.Contains(t, text, "最近7天")

	last := card.Card.Elements[len(card.Card.Elements)-1]
	assert.Equal(t, "action", last.Tag)
	require.Len(t, last.Actions, 1)
	assert.Equal(t, "http://localhost:3000/reports/42", last.Actions[0].URL)
}

func TestBuildCard_XiaohongshuWithoutInsights(t *testing.T) {
	report := sampleReport()
	report.Platform = models.PlatformXiaohongshu
	report.Insights = nil
	report.ReportURL = ""

	card := buildCard(report, 7)

	assert.Equal(t, "red", card.Card.Header.Template)
	assert.True(t, strings.HasPrefix(card.Card.Header.Title.Content, "📕 小红书"))

	text := cardText(card)
	assert.Contains(t, text, "分析笔记数")
	assert.Contains(t, text, "平均收藏数")
	assert.NotContains(t, text, "AI 选题洞察")
	assert.NotContains(t, text, "推荐选题方向")

	for _, el := range card.Card.Elements {
		assert.NotEqual(t, "action", el.Tag)
	}
}

func TestBuildCard_CapsTopList(t *testing.T) {
	report := sampleReport()
	report.TopByCount = nil
	for i := 0; i < 8; i++ {
		report.TopByCount = append(report.TopByCount, models.RankedItem{Title: fmt.Sprintf("a%d", i)})
	}

	text := cardText(buildCard(report, 7))
	assert.Contains(t, text, "**5. a4**")
	assert.NotContains(t, text, "a5")
}

func TestFeishuClient_Push(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantSuccess bool
		wantError   string
	}{
		{
			name:        "Success",
			status:      http.StatusOK,
			body:        `{"StatusCode":0,"StatusMessage":"success","code":0,"data":{},"msg":"success"}`,
			wantSuccess: true,
		},
		{
			name:      "HTTP 200 with provider error code",
			status:    http.StatusOK,
			body:      `{"code":19021,"msg":"sign match fail or timestamp is not within one hour from current time"}`,
			wantError: "sign match fail",
		},
		{
			name:      "HTTP error without message",
			status:    http.StatusInternalServerError,
			body:      `{"code":0}`,
			wantError: "飞书推送失败: 500",
		},
		{
			name:      "Non JSON body",
			status:    http.StatusBadGateway,
			body:      `<html>bad gateway</html>`,
			wantError: "飞书推送失败: 502",
		},
		{
			name:      "Empty object without code",
			status:    http.StatusOK,
			body:      `{}`,
			wantError: "飞书推送失败: 200",
		},
		{
			name:      "Null body",
			status:    http.StatusOK,
			body:      `null`,
			wantError: "飞书推送失败: 200",
		},
		{
			name:      "Foreign success shape",
			status:    http.StatusOK,
			body:      `{"ok":true}`,
			wantError: "飞书推送失败: 200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received feishuCardMessage
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(data, &received)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result := NewFeishuClient(7).Push(context.Background(), server.URL, sampleReport())

			assert.Equal(t, tt.wantSuccess, result.Success)
			if tt.wantError != "" {
				assert.Contains(t, result.Error, tt.wantError)
			} else {
				assert.Empty(t, result.Error)
				assert.JSONEq(t, tt.body, string(result.Response))
			}
			assert.Equal(t, "interactive", received.MsgType)
		})
	}
}

func TestFeishuClient_PushUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	result := NewFeishuClient(7).Push(context.Background(), url, sampleReport())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	result = NewFeishuClient(7).Push(context.Background(), "", sampleReport())
	assert.False(t, result.Success)
}

func TestFeishuClient_Test(t *testing.T) {
	var received feishuTextMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer server.Close()

	result := NewFeishuClient(7).Test(context.Background(), server.URL)
	assert.True(t, result.Success)
	assert.Equal(t, "text", received.MsgType)
	assert.Equal(t, testMessageText, received.Content.Text)
}
