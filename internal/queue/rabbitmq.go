package queue

import (
	"context"
	"errors"

	"newsfeed/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer публикует задачи в durable-очередь RabbitMQ.
type Producer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewProducer(url, queue string) (*Producer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := declare(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Producer) Publish(ctx context.Context, body []byte) error {
	return p.ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (имя очереди)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent, // Сохранять сообщения при перезапуске
			ContentType:  "text/plain",
			Body:         body,
		},
	)
}

func (p *Producer) Close() error {
	return errors.Join(p.ch.Close(), p.conn.Close())
}

// RabbitConsumer читает очередь RabbitMQ несколькими воркерами.
type RabbitConsumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	workers int
}

func NewConsumer(url, queue string, workers int) (*RabbitConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// не больше одной неподтверждённой задачи на воркера
	if err := ch.Qos(workers, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitConsumer{
		conn:    conn,
		ch:      ch,
		queue:   queue,
		workers: workers,
	}, nil
}

// Consume запускает воркеров и сразу возвращается. Неудачные задачи
// возвращаются в очередь, кроме отклонённых через ErrReject.
func (c *RabbitConsumer) Consume(ctx context.Context, handler Handler) error {
	q, err := declare(c.ch, c.queue)
	if err != nil {
		return err
	}

	log := logger.Component("queue").WithField("queue", q.Name)
	log.Infof("Consuming queue (messages: %d)", q.Messages)

	msgs, err := c.ch.ConsumeWithContext(
		ctx,
		q.Name,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}

	for i := 0; i < c.workers; i++ {
		go func() {
			for msg := range msgs {
				err := handler(ctx, msg.Body)
				if err == nil {
					_ = msg.Ack(false)
					continue
				}
				requeue := !errors.Is(err, ErrReject) && ctx.Err() == nil
				_ = msg.Nack(false, requeue)
				log.WithField("requeue", requeue).Errorf("Task failed: %v", err)
			}
		}()
	}
	return nil
}

func (c *RabbitConsumer) Close() error {
	return errors.Join(c.ch.Close(), c.conn.Close())
}

func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
}
