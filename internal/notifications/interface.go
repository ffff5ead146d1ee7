package notifications

import (
	"context"

	"github.com/content-factory/topic-monitor/internal/models"
)

// Dispatcher delivers report cards to a chat webhook. It never returns a Go
// error: every failure is folded into the DeliveryResult.
type Dispatcher interface {
	Push(ctx context.Context, webhookURL string, report *models.NotificationReport) models.DeliveryResult
	Test(ctx context.Context, webhookURL string) models.DeliveryResult
}

// RunNotifier sends a digest of a whole run
type RunNotifier interface {
	SendRunSummary(summary *models.RunSummary) error
}
