// Package settlement implements table sessions, bill splitting and the payment
// state machine for dine-in orders.
package settlement

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

type Deps struct {
	Ledger   Ledger
	Rates    TaxRates
	Notifier Notifier
	Tasks    TaskRunner
	Logger   *zap.Logger
}

type Service struct {
	ledger   Ledger
	rates    TaxRates
	notifier Notifier
	sessions *SessionManager
	log      *zap.Logger
	newID    func() string
}

func NewService(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		ledger:   d.Ledger,
		rates:    d.Rates,
		notifier: d.Notifier,
		sessions: NewSessionManager(d.Ledger, d.Tasks, log),
		log:      log,
		newID:    uuid.NewString,
	}
}

func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// ownedOrder loads an order and hides it from anyone but the diner who placed it.
func (s *Service) ownedOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order not found")
	}
	return order, nil
}
