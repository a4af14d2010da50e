package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

// SessionManager hands out the single open (active, unpaid) session of a table.
type SessionManager struct {
	ledger Ledger
	tasks  TaskRunner
	log    *zap.Logger
}

func NewSessionManager(ledger Ledger, tasks TaskRunner, log *zap.Logger) *SessionManager {
	return &SessionManager{ledger: ledger, tasks: tasks, log: log}
}

// Resolve returns the table's open session, opening one if there is none.
// When a concurrent caller wins the race to open it, the winner's session is
// returned instead.
func (m *SessionManager) Resolve(ctx context.Context, tableID, restaurantID string) (*models.TableSession, error) {
	session, err := m.ledger.FindOpenSession(ctx, tableID)
	if err == nil {
		return session, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, err
	}

	session = &models.TableSession{
		ID:           uuid.NewString(),
		TableID:      tableID,
		RestaurantID: restaurantID,
		IsActive:     true,
		IsPaid:       false,
		TotalAmount:  decimal.Zero,
		TaxAmount:    decimal.Zero,
	}
	err = m.ledger.CreateSession(ctx, session)
	switch {
	case err == nil:
		m.log.Info("table session opened",
			zap.String("table_id", tableID),
			zap.String("table_session_id", session.ID))
		return session, nil
	case apperrors.HasCode(err, apperrors.CodeAlreadyExists):
		return m.ledger.FindOpenSession(ctx, tableID)
	default:
		return nil, err
	}
}

// RefreshTotals writes the session's cached totals in the background. The
// cache is advisory; failures are logged by the task runner.
func (m *SessionManager) RefreshTotals(sessionID string, totals TableTotals) {
	total := roundCents(totals.Total)
	tax := roundCents(totals.TaxAmount)
	m.tasks.Go("table_session.refresh_totals", func(ctx context.Context) error {
		return m.ledger.UpdateSessionTotals(ctx, sessionID, total, tax)
	})
}

type TableView struct {
	TableSession *models.TableSession `json:"tableSession"`
	Table        *models.Table        `json:"table"`
	AllOrders    []models.Order       `json:"allOrders"`
	TableTotals  TableTotals          `json:"tableTotals"`
	UserTotals   UserTotals           `json:"userTotals"`
	SplitOptions SplitOptions         `json:"splitOptions"`
	UserCount    int                  `json:"userCount"`
}

// TableOverview opens (or reuses) the table's session and reports what the
// table and the requesting diner owe so far.
func (s *Service) TableOverview(ctx context.Context, userID, tableID string) (*TableView, error) {
	table, err := s.ledger.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Resolve(ctx, table.ID, table.RestaurantID)
	if err != nil {
		return nil, err
	}

	orders, err := s.ledger.ListSessionOrders(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	rate, err := s.rates.TaxRate(ctx, table.RestaurantID)
	if err != nil {
		return nil, err
	}

	summary := Summarize(orders, rate, userID)
	s.sessions.RefreshTotals(session.ID, summary.Table)
	session.TotalAmount = roundCents(summary.Table.Total)
	session.TaxAmount = roundCents(summary.Table.TaxAmount)

	return &TableView{
		TableSession: session,
		Table:        table,
		AllOrders:    orders,
		TableTotals:  summary.Table,
		UserTotals:   summary.User,
		SplitOptions: summary.Options(),
		UserCount:    summary.UserCount,
	}, nil
}

// sessionForOrder returns the order's session, routing the order into its
// table's open session when it has none yet.
func (s *Service) sessionForOrder(ctx context.Context, order *models.Order) (*models.TableSession, error) {
	if order.TableSessionID != nil {
		return s.ledger.GetSession(ctx, *order.TableSessionID)
	}

	session, err := s.sessions.Resolve(ctx, order.TableID, order.RestaurantID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.AttachOrderToSession(ctx, order.ID, session.ID); err != nil {
		return nil, err
	}
	order.TableSessionID = &session.ID
	return session, nil
}
