package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Platform identifies a content source
type Platform string

const (
	PlatformWeChat      Platform = "wechat"      // official-account articles (reads/likes)
	PlatformXiaohongshu Platform = "xiaohongshu" // notes (likes/collects/comments/shares)
)

// ParsePlatform validates a platform string
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformWeChat, PlatformXiaohongshu:
		return Platform(s), nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// DisplayName returns the name used in user-facing messages
func (p Platform) DisplayName() string {
	switch p {
	case PlatformWeChat:
		return "公众号"
	case PlatformXiaohongshu:
		return "小红书"
	default:
		return string(p)
	}
}

// MonitoredKeyword is a (keyword, platform) pair the scheduler re-analyzes on every run
type MonitoredKeyword struct {
	ID        int64      `json:"id" db:"id"`
	Keyword   string     `json:"keyword" db:"keyword"`
	Platform  Platform   `json:"platform" db:"platform"`
	Enabled   bool       `json:"enabled" db:"enabled"`
	LastRunAt *time.Time `json:"last_run_at" db:"last_run_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// KeywordUpdate carries the fields of a partial keyword update; nil fields are left untouched
type KeywordUpdate struct {
	Keyword  *string
	Platform *Platform
	Enabled  *bool
}

// Empty reports whether the update changes nothing
func (u KeywordUpdate) Empty() bool {
	return u.Keyword == nil && u.Platform == nil && u.Enabled == nil
}

// ContentItem is one article or note returned by a search. Counters that a
// platform does not report stay zero.
type ContentItem struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Content  string `json:"content,omitempty"`
	Author   string `json:"author,omitempty"`
	Likes    int64  `json:"likes"`
	Reads    int64  `json:"reads"`
	Collects int64  `json:"collects"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
}

// Interactions is the xiaohongshu substitute for an engagement ratio
func (c ContentItem) Interactions() int64 {
	return c.Likes + c.Collects + c.Comments
}

// Stats summarizes one search result set
type Stats struct {
	TotalItems    int    `json:"totalArticles"`
	AvgReach      int64  `json:"avgReads"`
	AvgLikes      int64  `json:"avgLikes"`
	AvgEngagement string `json:"avgEngagement"`
}

// RankedItem is an entry of a top-5 list
type RankedItem struct {
	Title      string `json:"title"`
	Likes      int64  `json:"likes"`
	Reads      int64  `json:"reads"`
	Engagement string `json:"engagement"`
	URL        string `json:"url,omitempty"`
}

// ShortlistItem is the curated input handed to the insight model
type ShortlistItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Likes   int64  `json:"likes"`
	Reads   int64  `json:"reads"`
	URL     string `json:"url,omitempty"`
}

// AnalysisResult is the snapshot persisted on a successful report
type AnalysisResult struct {
	Keyword    string         `json:"keyword"`
	Platform   Platform       `json:"platform"`
	Stats      Stats          `json:"stats"`
	TopByCount []RankedItem   `json:"topLikesArticles"`
	TopByRatio []RankedItem   `json:"topEngagementArticles"`
	Insights   *InsightBundle `json:"aiInsights,omitempty"`
}

// ReportDraft is what the orchestrator inserts for one keyword attempt
type ReportDraft struct {
	KeywordID      *int64
	Keyword        string
	Platform       Platform
	AnalysisResult *AnalysisResult
	Error          string
	CreatedAt      time.Time
}

// Delivery is the webhook outcome written back onto a report
type Delivery struct {
	Pushed   bool
	PushedAt *time.Time
	Response json.RawMessage
	Error    string
}

// Report is one persisted run attempt for one keyword
type Report struct {
	ID             int64           `json:"id"`
	KeywordID      *int64          `json:"keyword_id"`
	Keyword        string          `json:"keyword"`
	Platform       Platform        `json:"platform"`
	AnalysisResult *AnalysisResult `json:"analysis_result"`
	FeishuPushed   bool            `json:"feishu_pushed"`
	FeishuPushAt   *time.Time      `json:"feishu_push_at"`
	FeishuResponse json.RawMessage `json:"feishu_response"`
	Error          *string         `json:"error"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NotificationReport is the payload rendered into a chat card
type NotificationReport struct {
	Keyword    string
	Platform   Platform
	ReportID   int64
	ReportURL  string
	Stats      Stats
	TopByCount []RankedItem
	TopByRatio []RankedItem
	Insights   *InsightBundle
	Date       time.Time
}

// DeliveryResult is what a dispatcher returns; it never carries a Go error
type DeliveryResult struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// KeywordResult is one entry of a run summary
type KeywordResult struct {
	KeywordID     int64    `json:"keywordId"`
	Keyword       string   `json:"keyword"`
	Platform      Platform `json:"platform"`
	Success       bool     `json:"success"`
	Error         string   `json:"error,omitempty"`
	ReportID      *int64   `json:"reportId,omitempty"`
	Delivered     bool     `json:"delivered"`
	DeliveryError string   `json:"deliveryError,omitempty"`
}

// RunSummary is the aggregate result of one run
type RunSummary struct {
	RunID      string          `json:"runId"`
	Success    bool            `json:"success"`
	Results    []KeywordResult `json:"results"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// Succeeded counts the keywords whose pipeline completed
func (r *RunSummary) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}
