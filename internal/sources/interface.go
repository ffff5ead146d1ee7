package sources

import (
	"context"
	"errors"

	"github.com/content-factory/topic-monitor/internal/models"
)

// ErrNoSource is returned when no enabled source serves a platform
var ErrNoSource = errors.New("no enabled source for platform")

// Source interface defines the contract for all search vendors
type Source interface {
	GetName() string
	Platform() models.Platform
	Search(ctx context.Context, keyword string) ([]models.ContentItem, error)
	IsEnabled() bool
}

// Fetcher returns the items matching a keyword on a platform
type Fetcher interface {
	Search(ctx context.Context, keyword string, platform models.Platform) ([]models.ContentItem, error)
}
