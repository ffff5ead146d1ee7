package sources

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/models"
)

// Router dispatches a search to the source registered for the platform
type Router struct {
	sources map[models.Platform]Source
}

// NewRouter registers the enabled sources; a later source for the same platform wins
func NewRouter(sources ...Source) *Router {
	r := &Router{sources: make(map[models.Platform]Source)}
	for _, s := range sources {
		if s.IsEnabled() {
			r.sources[s.Platform()] = s
		}
	}
	return r
}

// NewRouterFromConfig builds both vendor sources. They share one limiter since
// both platforms are served by the same vendor account.
func NewRouterFromConfig(cfg *config.Config) *Router {
	var limiter *rate.Limiter
	if cfg.SearchRatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.SearchRatePerMinute)), 1)
	}
	return NewRouter(
		NewWeChatSource(cfg.WeChatSearchURL, cfg.SearchAPIKey, cfg.SearchPeriodDays, limiter),
		NewXiaohongshuSource(cfg.XiaohongshuSearchURL, cfg.SearchAPIKey, limiter),
	)
}

func (r *Router) Search(ctx context.Context, keyword string, platform models.Platform) ([]models.ContentItem, error) {
	source, ok := r.sources[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, platform)
	}
	return source.Search(ctx, keyword)
}

// Enabled lists the names of the registered sources
func (r *Router) Enabled() []string {
	var names []string
	for _, p := range []models.Platform{models.PlatformWeChat, models.PlatformXiaohongshu} {
		if s, ok := r.sources[p]; ok {
			names = append(names, s.GetName())
		}
	}
	return names
}
