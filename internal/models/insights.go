package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInsightBundle marks model output that does not match the expected shape
var ErrInvalidInsightBundle = errors.New("invalid insight bundle")

// Trend is the direction attached to an insight
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// SummaryMetrics are the engagement numbers attached to an article summary
type SummaryMetrics struct {
	Likes      int64  `json:"likes"`
	Reads      int64  `json:"reads"`
	Engagement string `json:"engagement"`
}

// ArticleSummary is the structured digest of one shortlisted item
type ArticleSummary struct {
	ArticleTitle   string         `json:"articleTitle"`
	ArticleURL     string         `json:"articleUrl,omitempty"`
	Summary        string         `json:"summary"`
	Keywords       []string       `json:"keywords"`
	Highlights     []string       `json:"highlights"`
	TargetAudience string         `json:"targetAudience"`
	ContentType    string         `json:"contentType"`
	Metrics        SummaryMetrics `json:"metrics"`
}

// Insight is one topic idea derived from the summaries
type Insight struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	SupportingArticles []string `json:"supportingArticles"`
	CreativeAdvice     string   `json:"creativeAdvice"`
	RelatedKeywords    []string `json:"relatedKeywords"`
	Trend              Trend    `json:"trend,omitempty"`
}

// InsightBundle is the full LLM-derived result for one run of one keyword
type InsightBundle struct {
	Summaries         []ArticleSummary `json:"summaries"`
	Insights          []Insight        `json:"insights"`
	OverallTrends     []string         `json:"overallTrends"`
	RecommendedTopics []string         `json:"recommendedTopics"`
}

// Validate checks the bundle against the schema the report and card rely on
func (b *InsightBundle) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: bundle is nil", ErrInvalidInsightBundle)
	}
	if len(b.Summaries) == 0 && len(b.Insights) == 0 {
		return fmt.Errorf("%w: no summaries and no insights", ErrInvalidInsightBundle)
	}
	for i, s := range b.Summaries {
		if strings.TrimSpace(s.ArticleTitle) == "" {
			return fmt.Errorf("%w: summary %d has no article title", ErrInvalidInsightBundle, i)
		}
	}
	for i, in := range b.Insights {
		if strings.TrimSpace(in.Title) == "" {
			return fmt.Errorf("%w: insight %d has no title", ErrInvalidInsightBundle, i)
		}
		switch in.Trend {
		case "", TrendRising, TrendStable, TrendDeclining:
		default:
			return fmt.Errorf("%w: insight %d has unknown trend %q", ErrInvalidInsightBundle, i, in.Trend)
		}
	}
	for i, t := range b.OverallTrends {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: overall trend %d is empty", ErrInvalidInsightBundle, i)
		}
	}
	for i, t := range b.RecommendedTopics {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: recommended topic %d is empty", ErrInvalidInsightBundle, i)
		}
	}
	return nil
}

// UnmatchedSupportingArticles lists supporting titles that do not name a summarized article.
// The model is asked to cite only summarized titles but nothing enforces it.
func (b *InsightBundle) UnmatchedSupportingArticles() []string {
	if b == nil {
		return nil
	}
	known := make(map[string]struct{}, len(b.Summaries))
	for _, s := range b.Summaries {
		known[strings.TrimSpace(s.ArticleTitle)] = struct{}{}
	}
	var unmatched []string
	for _, in := range b.Insights {
		for _, title := range in.SupportingArticles {
			if _, ok := known[strings.TrimSpace(title)]; !ok {
				unmatched = append(unmatched, title)
			}
		}
	}
	return unmatched
}
