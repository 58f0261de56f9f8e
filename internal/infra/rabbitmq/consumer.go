package rabbitmq

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler processes one raw capture request. A nil return acks the
// delivery; an error nacks it back onto the queue after a backoff.
type MessageHandler func(ctx context.Context, body []byte) error

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	BaseDelayMs int
}

// Consumer runs a pool of workers over the capture queue. Workers pull jobs
// concurrently, but each job processes its file strictly in sequence.
type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	workerCount int
	baseDelay   time.Duration
	handler     MessageHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// NewConsumer dials the broker and declares the whole topology: the video
// exchange, the capture queue, its DLQ, and the status queue. Declaration is
// idempotent, so worker and producers can start in any order.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{cfg.Queue, cfg.DLQ, cfg.StatusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := ch.QueueBind(cfg.Queue, CaptureRoutingKey, cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind capture queue: %w", err)
	}
	if err := ch.QueueBind(cfg.StatusQueue, StatusRoutingKey, cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind status queue: %w", err)
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.Queue,
		workerCount: cfg.WorkerCount,
		baseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		handler:     handler,
		logger:      logger,
	}, nil
}

// Start consumes until ctx is cancelled, then waits for in-flight jobs to
// drain.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("capture worker pool starting",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.runWorker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("shutdown requested, draining in-flight jobs")
	c.wg.Wait()
	return nil
}

func (c *Consumer) runWorker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopping")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.handleDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	if err := c.handler(ctx, d.Body); err != nil {
		attempt := deliveryAttempt(d)
		delay := c.backoff(attempt)
		log.Warn("capture job failed, requeueing after backoff",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = d.Nack(false, false)
			return
		}

		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}

// deliveryAttempt counts prior dead-letter cycles from the x-death header;
// a fresh delivery is attempt 1.
func deliveryAttempt(d amqp.Delivery) int {
	if d.Headers == nil {
		return 1
	}
	if xDeath, ok := d.Headers["x-death"]; ok {
		if deaths, ok := xDeath.([]interface{}); ok && len(deaths) > 0 {
			return len(deaths)
		}
	}
	return 1
}

// backoff doubles per attempt from the base delay, capped at one minute.
func (c *Consumer) backoff(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
