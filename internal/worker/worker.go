package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsfeed/internal/logger"
	"newsfeed/internal/models"
	"newsfeed/internal/queue"
)

// Refresher обновляет ленту категории.
type Refresher interface {
	Refresh(ctx context.Context, category string) error
}

// Worker обрабатывает задачи обновления категорий из очереди.
type Worker struct {
	feed    Refresher
	timeout time.Duration
}

func NewWorker(feed Refresher, timeout time.Duration) *Worker {
	return &Worker{feed: feed, timeout: timeout}
}

// HandleTask обновляет категорию из тела задачи. Задачи с неизвестной
// категорией отклоняются без повтора.
func (w *Worker) HandleTask(ctx context.Context, body []byte) error {
	category := strings.ToLower(strings.TrimSpace(string(body)))

	log := logger.Log.WithField("category", category)
	if !models.IsCategory(category) {
		log.Warn("Rejecting task with unknown category")
		return fmt.Errorf("%w: unknown category %q", queue.ErrReject, category)
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	log.Info("Processing refresh task")
	start := time.Now()
	if err := w.feed.Refresh(ctx, category); err != nil {
		log.Errorf("Refresh failed: %v", err)
		return err
	}

	log.Infof("Refreshed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}
