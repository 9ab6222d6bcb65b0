package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/findit/internal/core/ports"
)

type MaintenanceUseCase struct {
	items  ports.ItemRepository
	queue  ports.MessageQueue
	logger *slog.Logger
	now    func() time.Time
}

func NewMaintenanceUseCase(items ports.ItemRepository, queue ports.MessageQueue, logger *slog.Logger) *MaintenanceUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceUseCase{
		items:  items,
		queue:  queue,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ExpireStale marks active items past their expiry as expired.
func (uc *MaintenanceUseCase) ExpireStale(ctx context.Context) (int64, error) {
	n, err := uc.items.ExpireBefore(ctx, uc.now())
	if err != nil {
		return 0, fmt.Errorf("expire items: %w", err)
	}
	if n > 0 {
		uc.logger.Info("items_expired", "count", n)
	}
	return n, nil
}

// RequeueActive republishes up to batch active items so their matches are
// refreshed against reports that arrived later. A publish failure stops the
// batch and reports how many were queued.
func (uc *MaintenanceUseCase) RequeueActive(ctx context.Context, batch int) (int, error) {
	ids, err := uc.items.ListActiveIDs(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("list active items: %w", err)
	}

	queued := 0
	for _, id := range ids {
		if err := uc.queue.PublishItemReported(ctx, id); err != nil {
			return queued, fmt.Errorf("requeue item %s: %w", id, err)
		}
		queued++
	}
	uc.logger.Info("items_requeued", "count", queued)
	return queued, nil
}
