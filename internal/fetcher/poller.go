package fetcher

import (
	"context"
	"time"

	"newsfeed/internal/logger"
	"newsfeed/internal/queue"
)

// StartPolling публикует задачу обновления для каждой категории сразу после
// запуска и затем на каждом тике, пока ctx не отменён.
func StartPolling(ctx context.Context, pub queue.Publisher, categories []string, interval time.Duration) {
	log := logger.Log.WithFields(logger.Fields{
		"service":  "poller",
		"interval": interval.String(),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publishCycle(ctx, log, pub, categories)
	for {
		select {
		case <-ticker.C:
			publishCycle(ctx, log, pub, categories)

		case <-ctx.Done():
			log.Info("Stopping poller by context")
			return
		}
	}
}

func publishCycle(ctx context.Context, log *logger.Entry, pub queue.Publisher, categories []string) {
	log.Info("Starting new polling cycle")
	for _, category := range categories {
		if err := pub.Publish(ctx, []byte(category)); err != nil {
			log.WithField("category", category).Errorf("Failed to publish refresh task: %v", err)
		}
	}
}
