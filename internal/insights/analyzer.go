package insights

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/content-factory/topic-monitor/internal/models"
)

// MaxItems caps the shortlist sent to the model
const MaxItems = 10

const (
	summaryTemperature = 0.5
	insightTemperature = 0.7
)

// Requester produces an InsightBundle for a shortlist
type Requester interface {
	Analyze(ctx context.Context, keyword string, platform models.Platform, items []models.ShortlistItem) (*models.InsightBundle, error)
}

// Analyzer is the two-step Requester backed by a Completer
type Analyzer struct {
	completer Completer
}

// NewAnalyzer creates a new insight analyzer
func NewAnalyzer(completer Completer) *Analyzer {
	return &Analyzer{completer: completer}
}

// Analyze summarizes the shortlist, then derives insights from the summaries.
// The returned bundle has passed Validate.
func (a *Analyzer) Analyze(ctx context.Context, keyword string, platform models.Platform, items []models.ShortlistItem) (*models.InsightBundle, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to analyze")
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	prepared := make([]models.ShortlistItem, len(items))
	for i, item := range items {
		prepared[i] = item
		body := item.Content
		if platform == models.PlatformWeChat {
			body = CleanHTML(body)
		}
		prepared[i].Content = truncate(body, maxContentRunes)
	}

	logrus.WithFields(logrus.Fields{
		"keyword":  keyword,
		"platform": platform,
		"items":    len(prepared),
		"model":    a.completer.ModelName(),
	}).Info("Generating article summaries")

	summaries, err := a.summarize(ctx, keyword, platform, prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to generate article summaries: %w", err)
	}

	bundle, err := a.deriveInsights(ctx, keyword, platform, summaries)
	if err != nil {
		return nil, fmt.Errorf("failed to generate topic insights: %w", err)
	}

	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	if unmatched := bundle.UnmatchedSupportingArticles(); len(unmatched) > 0 {
		logrus.WithFields(logrus.Fields{
			"keyword":   keyword,
			"unmatched": unmatched,
		}).Warn("Insights cite articles that were not summarized")
	}

	logrus.WithFields(logrus.Fields{
		"keyword":   keyword,
		"summaries": len(bundle.Summaries),
		"insights":  len(bundle.Insights),
	}).Info("Insight bundle generated")

	return bundle, nil
}

func (a *Analyzer) summarize(ctx context.Context, keyword string, platform models.Platform, items []models.ShortlistItem) ([]models.ArticleSummary, error) {
	content, err := a.completer.Complete(ctx, summarySystemPrompt, summaryPrompt(keyword, platform, items), summaryTemperature)
	if err != nil {
		return nil, err
	}

	var summaries []models.ArticleSummary
	if err := json.Unmarshal([]byte(extractJSON(content)), &summaries); err != nil {
		return nil, fmt.Errorf("%w: summaries are not a JSON array: %v", models.ErrInvalidInsightBundle, err)
	}

	// Summaries come back in input order; attach the numbers the model never saw reliably.
	for i := range summaries {
		if i >= len(items) {
			break
		}
		item := items[i]
		summaries[i].ArticleURL = item.URL
		summaries[i].Metrics = models.SummaryMetrics{
			Likes:      item.Likes,
			Reads:      item.Reads,
			Engagement: engagement(platform, item),
		}
	}

	return summaries, nil
}

func (a *Analyzer) deriveInsights(ctx context.Context, keyword string, platform models.Platform, summaries []models.ArticleSummary) (*models.InsightBundle, error) {
	content, err := a.completer.Complete(ctx, insightSystemPrompt, insightPrompt(keyword, platform, summaries), insightTemperature)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Insights          []models.Insight `json:"insights"`
		OverallTrends     []string         `json:"overallTrends"`
		RecommendedTopics []string         `json:"recommendedTopics"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: insights are not a JSON object: %v", models.ErrInvalidInsightBundle, err)
	}

	return &models.InsightBundle{
		Summaries:         summaries,
		Insights:          parsed.Insights,
		OverallTrends:     parsed.OverallTrends,
		RecommendedTopics: parsed.RecommendedTopics,
	}, nil
}

// engagement is the per-summary metric: a one-decimal ratio for articles, the
// interaction total for notes
func engagement(platform models.Platform, item models.ShortlistItem) string {
	if platform == models.PlatformXiaohongshu {
		return fmt.Sprintf("%d", item.Reads)
	}
	if item.Reads <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(item.Likes)/float64(item.Reads)*100)
}
