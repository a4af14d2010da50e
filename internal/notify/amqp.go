package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes table events to a durable topic exchange with
// routing key table.<tableId>.<event> and waits for the broker's confirm.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       confirmChannel
	exchange string

	acks <-chan amqp.Confirmation
	mu   sync.Mutex // serializes publish and confirm matching
}

// confirmChannel is the part of *amqp.Channel used for publishing in confirm mode.
type confirmChannel interface {
	GetNextPublishSeqNo() uint64
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// confirmBuffer holds confirms that arrive after their publish gave up
// waiting, until the next publish skips them.
const confirmBuffer = 64

func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))

	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, acks: acks}, nil
}

func RoutingKey(tableID, event string) string {
	return "table." + tableID + "." + event
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seq := p.ch.GetNextPublishSeqNo()
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(msg.TableID, msg.Event), false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Type:         msg.Event,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return p.awaitConfirm(ctx, seq)
}

// awaitConfirm waits for the confirm carrying delivery tag seq. Confirms for
// earlier publishes that timed out are discarded.
func (p *AMQPPublisher) awaitConfirm(ctx context.Context, seq uint64) error {
	for {
		select {
		case conf, ok := <-p.acks:
			if !ok {
				return errors.New("rabbitmq confirm channel closed")
			}
			if conf.DeliveryTag < seq {
				continue
			}
			if !conf.Ack {
				return fmt.Errorf("publish NACK from broker for delivery %d", seq)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *AMQPPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
