package analysis

import (
	"strconv"

	"github.com/content-factory/topic-monitor/internal/models"
)

// xiaohongshuStrategy has no reach denominator: collects stand in for reads and
// the interaction total replaces the engagement ratio.
type xiaohongshuStrategy struct{}

func (xiaohongshuStrategy) Platform() models.Platform { return models.PlatformXiaohongshu }

func (s xiaohongshuStrategy) Aggregate(items []models.ContentItem) Analysis {
	result := Analysis{
		Stats:      models.Stats{AvgEngagement: "0"},
		TopByCount: []models.RankedItem{},
		TopByRatio: []models.RankedItem{},
	}
	if len(items) == 0 {
		return result
	}

	var totalLikes, totalCollects, totalInteractions int64
	for _, item := range items {
		totalLikes += item.Likes
		totalCollects += item.Collects
		totalInteractions += item.Interactions()
	}
	result.Stats = models.Stats{
		TotalItems:    len(items),
		AvgReach:      average(totalCollects, len(items)),
		AvgLikes:      average(totalLikes, len(items)),
		AvgEngagement: strconv.FormatInt(average(totalInteractions, len(items)), 10),
	}

	for _, i := range s.byLikes(items) {
		result.TopByCount = append(result.TopByCount, s.ranked(items[i]))
	}
	for _, i := range s.byInteractions(items) {
		result.TopByRatio = append(result.TopByRatio, s.ranked(items[i]))
	}
	return result
}

// Shortlist deduplicates by note id
func (s xiaohongshuStrategy) Shortlist(items []models.ContentItem) []models.ShortlistItem {
	seen := make(map[string]int)
	var shortlist []models.ShortlistItem
	for _, i := range append(s.byLikes(items), s.byInteractions(items)...) {
		item := items[i]
		key := item.ID
		if key == "" {
			key = item.Title
		}
		entry := models.ShortlistItem{
			Title:   item.Title,
			Content: item.Content,
			Likes:   item.Likes,
			Reads:   item.Interactions(),
			URL:     item.URL,
		}
		if pos, ok := seen[key]; ok {
			shortlist[pos] = entry
			continue
		}
		seen[key] = len(shortlist)
		shortlist = append(shortlist, entry)
	}
	return shortlist
}

func (xiaohongshuStrategy) byLikes(items []models.ContentItem) []int {
	return rankBy(allIndexes(len(items)), func(a, b int) bool {
		return items[a].Likes > items[b].Likes
	})
}

func (xiaohongshuStrategy) byInteractions(items []models.ContentItem) []int {
	return rankBy(allIndexes(len(items)), func(a, b int) bool {
		return items[a].Interactions() > items[b].Interactions()
	})
}

func (xiaohongshuStrategy) ranked(item models.ContentItem) models.RankedItem {
	return models.RankedItem{
		Title:      item.Title,
		Likes:      item.Likes,
		Reads:      item.Collects,
		Engagement: strconv.FormatInt(item.Interactions(), 10),
		URL:        item.URL,
	}
}
