package analysis

import (
	"github.com/content-factory/topic-monitor/internal/models"
)

// wechatStrategy ranks articles by likes and by likes/reads
type wechatStrategy struct{}

func (wechatStrategy) Platform() models.Platform { return models.PlatformWeChat }

func (s wechatStrategy) Aggregate(items []models.ContentItem) Analysis {
	result := Analysis{
		Stats:      models.Stats{AvgEngagement: "0%"},
		TopByCount: []models.RankedItem{},
		TopByRatio: []models.RankedItem{},
	}
	if len(items) == 0 {
		return result
	}

	var totalReads, totalLikes int64
	for _, item := range items {
		totalReads += item.Reads
		totalLikes += item.Likes
	}
	result.Stats = models.Stats{
		TotalItems:    len(items),
		AvgReach:      average(totalReads, len(items)),
		AvgLikes:      average(totalLikes, len(items)),
		AvgEngagement: percent(totalLikes, totalReads, 1),
	}

	for _, i := range s.byLikes(items) {
		result.TopByCount = append(result.TopByCount, s.ranked(items[i]))
	}
	for _, i := range s.byRatio(items) {
		result.TopByRatio = append(result.TopByRatio, s.ranked(items[i]))
	}
	return result
}

// Shortlist deduplicates by title; the first occurrence keeps its position
func (s wechatStrategy) Shortlist(items []models.ContentItem) []models.ShortlistItem {
	seen := make(map[string]int)
	var shortlist []models.ShortlistItem
	for _, i := range append(s.byLikes(items), s.byRatio(items)...) {
		item := items[i]
		entry := models.ShortlistItem{
			Title:   item.Title,
			Content: item.Content,
			Likes:   item.Likes,
			Reads:   item.Reads,
			URL:     item.URL,
		}
		if pos, ok := seen[item.Title]; ok {
			shortlist[pos] = entry
			continue
		}
		seen[item.Title] = len(shortlist)
		shortlist = append(shortlist, entry)
	}
	return shortlist
}

func (wechatStrategy) byLikes(items []models.ContentItem) []int {
	return rankBy(allIndexes(len(items)), func(a, b int) bool {
		return items[a].Likes > items[b].Likes
	})
}

// byRatio skips articles without reads, their ratio is undefined
func (wechatStrategy) byRatio(items []models.ContentItem) []int {
	var withReads []int
	for i, item := range items {
		if item.Reads > 0 {
			withReads = append(withReads, i)
		}
	}
	return rankBy(withReads, func(a, b int) bool {
		// likes_a/reads_a > likes_b/reads_b without float rounding
		return items[a].Likes*items[b].Reads > items[b].Likes*items[a].Reads
	})
}

func (wechatStrategy) ranked(item models.ContentItem) models.RankedItem {
	return models.RankedItem{
		Title:      item.Title,
		Likes:      item.Likes,
		Reads:      item.Reads,
		Engagement: percent(item.Likes, item.Reads, 0),
		URL:        item.URL,
	}
}
