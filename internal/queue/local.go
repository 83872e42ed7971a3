package queue

import (
	"context"
	"sync"

	"newsfeed/internal/logger"
)

// Local - очередь в памяти процесса для запуска без RabbitMQ.
// Неудачные задачи не повторяются: поллер опубликует их снова на следующем тике.
type Local struct {
	tasks   chan []byte
	done    chan struct{}
	once    sync.Once
	workers int
	wg      sync.WaitGroup
}

func NewLocal(buffer, workers int) *Local {
	if workers < 1 {
		workers = 1
	}
	return &Local{
		tasks:   make(chan []byte, buffer),
		done:    make(chan struct{}),
		workers: workers,
	}
}

func (l *Local) Publish(ctx context.Context, body []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.tasks <- body:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Local) Consume(ctx context.Context, handler Handler) error {
	log := logger.Component("queue").WithField("queue", "local")
	for i := 0; i < l.workers; i++ {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-l.done:
					return
				case body := <-l.tasks:
					if err := handler(ctx, body); err != nil {
						log.Errorf("Task failed: %v", err)
					}
				}
			}
		}()
	}
	return nil
}

// Close останавливает воркеров и ждёт завершения текущих задач.
func (l *Local) Close() error {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}
