// Package queue доставляет задачи фонового обновления лент от поллера к воркерам.
package queue

import (
	"context"
	"errors"
)

// ErrReject помечает задачу, которую бессмысленно повторять.
var ErrReject = errors.New("task rejected")

// ErrClosed возвращается при публикации в закрытую очередь.
var ErrClosed = errors.New("queue closed")

// Handler обрабатывает тело задачи.
type Handler func(ctx context.Context, body []byte) error

// Publisher публикует задачи.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
	Close() error
}

// Consumer раздаёт задачи воркерам до отмены ctx.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}
