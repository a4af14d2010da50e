package testkit

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// StaticRates answers every restaurant with the same tax rate.
type StaticRates struct {
	Rate decimal.Decimal
	Err  error
}

func (r StaticRates) TaxRate(context.Context, string) (decimal.Decimal, error) {
	return r.Rate, r.Err
}

type Event struct {
	TableID string
	Name    string
	Payload any
}

// Notifier records every notification it is asked to publish.
type Notifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *Notifier) Notify(tableID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Event{TableID: tableID, Name: event, Payload: payload})
}

func (n *Notifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

// Named returns the recorded events called name, oldest first.
func (n *Notifier) Named(name string) []Event {
	var out []Event
	for _, e := range n.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Tasks runs background work inline and keeps the errors it returns.
type Tasks struct {
	mu   sync.Mutex
	Errs []error
	Runs []string
}

func (t *Tasks) Go(name string, fn func(ctx context.Context) error) {
	err := fn(context.Background())
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Runs = append(t.Runs, name)
	if err != nil {
		t.Errs = append(t.Errs, err)
	}
}
