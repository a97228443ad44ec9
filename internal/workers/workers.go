package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DeliveryPruner deletes deliveries created before a unix time.
type DeliveryPruner interface {
	DeleteOlderThan(cutoff int64) (int64, error)
}

// PruneDeliveries removes deliveries older than retention as of now.
// A non-positive retention keeps everything.
func PruneDeliveries(repo DeliveryPruner, retention time.Duration, now time.Time) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return repo.DeleteOlderThan(now.Add(-retention).Unix())
}

// RunPruner prunes once immediately and then on every interval until ctx is
// done. Failures are logged and retried on the next tick. A non-positive
// interval prunes only once.
func RunPruner(ctx context.Context, repo DeliveryPruner, retention, interval time.Duration, logger zerolog.Logger) {
	prune := func() {
		deleted, err := PruneDeliveries(repo, retention, time.Now())
		if err != nil {
			logger.Error().Err(err).Msg("failed to prune deliveries")
			return
		}
		logger.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("pruned deliveries")
	}

	prune()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
