package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/models"
)

func TestWeChatSource_IsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		apiURL   string
		apiKey   string
		expected bool
	}{
		{name: "Both provided", apiURL: "https://example.com", apiKey: "key", expected: true},
		{name: "Missing key", apiURL: "https://example.com", apiKey: "", expected: false},
		{name: "Missing url", apiURL: "", apiKey: "key", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewWeChatSource(tt.apiURL, tt.apiKey, 7, nil)
			assert.Equal(t, tt.expected, source.IsEnabled())
			assert.Equal(t, "wechat", source.GetName())
		})
	}
}

func TestWeChatSource_Search(t *testing.T) {
	var received wechatSearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": 0, "msg": "ok", "total": 2, "remain_money": 12.5,
			"data": [
				{"title": "AI 写作", "content": "<p>正文</p>", "url": "https://mp.weixin.qq.com/s/a", "ghid": "gh_tech", "wx_name": "科技号", "praise": 120, "read": 3400, "looking": 8},
				{"title": "提示词", "content": "", "url": "", "short_link": "https://mp.weixin.qq.com/s/b", "ghid": "gh_tech", "praise": "1.2万", "read": "10万+"}
			]
		}`))
	}))
	defer server.Close()

	source := NewWeChatSource(server.URL, "secret", 7, rate.NewLimiter(rate.Inf, 1))
	items, err := source.Search(context.Background(), "AI")
	require.NoError(t, err)

	assert.Equal(t, "AI", received.Keyword)
	assert.Equal(t, "secret", received.Key)
	assert.Equal(t, 7, received.Period)

	require.Len(t, items, 2)
	assert.Equal(t, models.ContentItem{
		ID:      "https://mp.weixin.qq.com/s/a",
		Title:   "AI 写作",
		URL:     "https://mp.weixin.qq.com/s/a",
		Content: "<p>正文</p>",
		Author:  "科技号",
		Likes:   120,
		Reads:   3400,
		Shares:  8,
	}, items[0])
	assert.Equal(t, "https://mp.weixin.qq.com/s/b", items[1].URL)
	// articles from one account keep distinct ids
	assert.Equal(t, "https://mp.weixin.qq.com/s/b", items[1].ID)
	assert.Equal(t, int64(12000), items[1].Likes)
	assert.Equal(t, int64(100000), items[1].Reads)
}

func TestWeChatSource_SearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "HTTP error", status: http.StatusBadGateway, body: `{}`},
		{name: "Vendor error code", status: http.StatusOK, body: `{"code": 1001, "msg": "余额不足"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			items, err := NewWeChatSource(server.URL, "secret", 7, nil).Search(context.Background(), "AI")
			assert.Error(t, err)
			assert.Nil(t, items)
		})
	}
}

func TestXiaohongshuSource_Search(t *testing.T) {
	var received xiaohongshuSearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": 0, "has_more": true,
			"items": [
				{"id": "n1", "xsec_token": "t1", "note_card": {"display_title": "春季穿搭", "user": {"nickname": "小美"},
					"interact_info": {"liked_count": "1.2万", "collected_count": "356", "comment_count": "20", "shared_count": "5"}}},
				{"id": "ad", "model_type": "hot_query"},
				{"id": "n2", "note_card": {"display_title": "", "user": {"nick_name": "阿强"},
					"interact_info": {"liked_count": "7", "collected_count": "", "comment_count": "1", "shared_count": "0"}}}
			]
		}`))
	}))
	defer server.Close()

	source := NewXiaohongshuSource(server.URL, "secret", nil)
	items, err := source.Search(context.Background(), "穿搭")
	require.NoError(t, err)

	assert.Equal(t, "穿搭", received.Keyword)
	assert.Equal(t, "general", received.Sort)

	require.Len(t, items, 2)
	assert.Equal(t, "n1", items[0].ID)
	assert.Equal(t, "https://www.xiaohongshu.com/explore/n1", items[0].URL)
	assert.Equal(t, int64(12000), items[0].Likes)
	assert.Equal(t, int64(356), items[0].Collects)
	assert.Equal(t, int64(12376), items[0].Interactions())
	assert.Equal(t, "小美", items[0].Author)

	assert.Equal(t, "无标题", items[1].Title)
	assert.Equal(t, "阿强", items[1].Author)
	assert.Equal(t, int64(0), items[1].Collects)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"356", 356},
		{"1.2万", 12000},
		{"3w", 30000},
		{"10万+", 100000},
		{"1,024", 1024},
		{"", 0},
		{"abc", 0},
		{"-5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseCount(tt.input))
		})
	}
}

// MockSource is a mock implementation of Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSource) Platform() models.Platform {
	args := m.Called()
	return args.Get(0).(models.Platform)
}

func (m *MockSource) Search(ctx context.Context, keyword string) ([]models.ContentItem, error) {
	args := m.Called(ctx, keyword)
	return args.Get(0).([]models.ContentItem), args.Error(1)
}

func (m *MockSource) IsEnabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func TestRouter(t *testing.T) {
	wechat := new(MockSource)
	wechat.On("IsEnabled").Return(true)
	wechat.On("Platform").Return(models.PlatformWeChat)
	wechat.On("GetName").Return("wechat")
	wechat.On("Search", mock.Anything, "AI").Return([]models.ContentItem{{Title: "a"}}, nil)

	disabled := new(MockSource)
	disabled.On("IsEnabled").Return(false)

	router := NewRouter(wechat, disabled)

	items, err := router.Search(context.Background(), "AI", models.PlatformWeChat)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = router.Search(context.Background(), "AI", models.PlatformXiaohongshu)
	assert.True(t, errors.Is(err, ErrNoSource))
	assert.Equal(t, []string{"wechat"}, router.Enabled())

	disabled.AssertNotCalled(t, "Platform")
}

func TestNewRouterFromConfig(t *testing.T) {
	cfg := &config.Config{
		WeChatSearchURL:      "https://vendor.example.com/kw_search",
		XiaohongshuSearchURL: "https://vendor.example.com/xhs",
		SearchPeriodDays:     7,
		SearchRatePerMinute:  30,
	}
	assert.Empty(t, NewRouterFromConfig(cfg).Enabled())

	cfg.SearchAPIKey = "key"
	assert.Equal(t, []string{"wechat", "xiaohongshu"}, NewRouterFromConfig(cfg).Enabled())

	cfg.SearchRatePerMinute = 0
	assert.Len(t, NewRouterFromConfig(cfg).Enabled(), 2)
}
