// Package analysis computes the statistics and rankings of a search result set.
// Everything here is pure: no I/O, no clock, deterministic for a given input.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/content-factory/topic-monitor/internal/models"
)

// TopN is the length of both ranked lists
const TopN = 5

// Analysis is the output of Strategy.Aggregate
type Analysis struct {
	Stats      models.Stats
	TopByCount []models.RankedItem
	TopByRatio []models.RankedItem
}

// Strategy holds the per-platform formulas. The two platforms use different
// engagement semantics and must not share them.
type Strategy interface {
	Platform() models.Platform
	Aggregate(items []models.ContentItem) Analysis
	// Shortlist returns the union of both rankings, deduplicated, for the insight model
	Shortlist(items []models.ContentItem) []models.ShortlistItem
}

// ForPlatform returns the strategy for a platform
func ForPlatform(p models.Platform) (Strategy, error) {
	switch p {
	case models.PlatformWeChat:
		return wechatStrategy{}, nil
	case models.PlatformXiaohongshu:
		return xiaohongshuStrategy{}, nil
	default:
		return nil, fmt.Errorf("no aggregation strategy for platform %q", p)
	}
}

// rankBy stably sorts item indexes so that greater(a, b) puts a first and caps the
// result to TopN. Ties keep input order.
func rankBy(indexes []int, greater func(a, b int) bool) []int {
	ranked := append([]int(nil), indexes...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return greater(ranked[i], ranked[j])
	})
	if len(ranked) > TopN {
		ranked = ranked[:TopN]
	}
	return ranked
}

func allIndexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// roundHalfUp rounds the way the dashboard always has: .5 goes up
func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

func average(total int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return roundHalfUp(float64(total) / float64(n))
}

// percent renders num/den as a percentage with the given number of decimals
func percent(num, den int64, decimals int) string {
	if den <= 0 {
		return "0%"
	}
	scale := math.Pow(10, float64(decimals))
	v := math.Floor(float64(num)/float64(den)*100*scale+0.5) / scale
	return fmt.Sprintf("%.*f%%", decimals, v)
}
