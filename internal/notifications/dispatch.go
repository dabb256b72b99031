package notifications

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"coverfill/internal/catalog"
	"coverfill/internal/logging"
)

// Dispatcher sends item announcements one at a time.
type Dispatcher struct {
	service Service
	limiter *rate.Limiter
	logger  *slog.Logger
}

// DispatchReport counts the outcome of a dispatch.
type DispatchReport struct {
	Sent    int
	Failed  int
	Skipped int
}

// NewDispatcher spaces consecutive messages by delay. A zero delay sends
// back to back.
func NewDispatcher(service Service, delay time.Duration, logger *slog.Logger) *Dispatcher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		service: service,
		limiter: limiter,
		logger:  logging.NewComponentLogger(logger, "notifications"),
	}
}

// DispatchItems announces every completed item in order. Send failures are
// logged and counted; only ctx cancellation ends the dispatch early.
func (d *Dispatcher) DispatchItems(ctx context.Context, items []catalog.Item) (DispatchReport, error) {
	var report DispatchReport
	for i, item := range items {
		if item.Status != catalog.StatusCompleted {
			report.Skipped++
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return report, err
		}
		if err := d.service.NotifyItem(ctx, item); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			logging.WarnWithContext(ctx, d.logger, "item notification failed", "notification_failed",
				logging.Item(item.Name),
				logging.Int("index", i+1),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ntfy_topic and network access"),
			)
			continue
		}
		report.Sent++
		d.logger.InfoContext(ctx, "item notification sent",
			logging.String(logging.FieldEventType, "notification_sent"),
			logging.Item(item.Name),
			logging.Int("index", i+1),
			logging.Int("total", len(items)),
		)
	}
	return report, nil
}
