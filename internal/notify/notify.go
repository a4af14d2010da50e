// Package notify publishes table-scoped state-change events to subscribers
// of the table's channel.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Message is the envelope every subscriber of a table channel receives.
type Message struct {
	Event     string    `json:"event"`
	TableID   string    `json:"tableId"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel names the pub/sub topic for a table.
func Channel(tableID string) string {
	return "table-" + tableID
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Multi fans a message out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Runner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// Dispatcher schedules each publish on the background runner so callers
// never wait on, or see failures from, the transport.
type Dispatcher struct {
	pub   Publisher
	tasks Runner
	log   *zap.Logger
	now   func() time.Time
}

func NewDispatcher(pub Publisher, tasks Runner, log *zap.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, tasks: tasks, log: log, now: time.Now}
}

func (d *Dispatcher) Notify(tableID, event string, payload any) {
	msg := Message{
		Event:     event,
		TableID:   tableID,
		Data:      payload,
		Timestamp: d.now().UTC(),
	}
	d.tasks.Go("notify."+event, func(ctx context.Context) error {
		if err := d.pub.Publish(ctx, msg); err != nil {
			return err
		}
		d.log.Debug("table event published", zap.String("table_id", tableID), zap.String("event", event))
		return nil
	})
}
