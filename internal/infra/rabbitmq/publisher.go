package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys on the video exchange. The consumer binds its queues with the
// same constants, so a rename cannot silently split producer from consumer.
const (
	CaptureRoutingKey = "video.capture"
	StatusRoutingKey  = "video.status"
)

// Publisher owns one channel on the video exchange. Status and DLQ
// publishers share it; captures are sequential, so the channel is never
// used concurrently.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}

func (p *Publisher) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	msg.DeliveryMode = amqp.Persistent
	msg.Timestamp = time.Now().UTC()
	return p.channel.PublishWithContext(ctx, exchange, key, false, false, msg)
}

// StatusPublisher emits one CaptureStatusMessage per state transition of a
// job: retryable failure, permanent failure, completion.
type StatusPublisher struct {
	pub *Publisher
}

func NewStatusPublisher(pub *Publisher) *StatusPublisher {
	return &StatusPublisher{pub: pub}
}

func (sp *StatusPublisher) PublishStatus(ctx context.Context, msg []byte) error {
	return sp.pub.publish(ctx, sp.pub.exchange, StatusRoutingKey, amqp.Publishing{
		ContentType: "application/json",
		Body:        msg,
	})
}

// DLQPublisher parks messages the worker will never retry again. The raw
// inbound body is preserved untouched; the failure reason travels in a
// header so the payload stays replayable.
type DLQPublisher struct {
	pub   *Publisher
	queue string
}

func NewDLQPublisher(pub *Publisher, dlqQueue string) *DLQPublisher {
	return &DLQPublisher{pub: pub, queue: dlqQueue}
}

func (dp *DLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	return dp.pub.publish(ctx, "", dp.queue, amqp.Publishing{
		ContentType: "application/json",
		Body:        msg,
		Headers: amqp.Table{
			"x-dlq-reason": reason,
		},
	})
}
