package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	"dinendash-system/internal/database/models"
)

// Ledger is the relational store the settlement core reads and writes.
// Lookups return an apperrors NOT_FOUND error when the row is absent;
// CreateSession returns ALREADY_EXISTS when the table already has an open session.
type Ledger interface {
	GetTable(ctx context.Context, tableID string) (*models.Table, error)
	GetMenuItems(ctx context.Context, restaurantID string, ids []string) ([]models.MenuItem, error)
	GetCart(ctx context.Context, userID, restaurantID string) (*models.Cart, error)

	FindOpenSession(ctx context.Context, tableID string) (*models.TableSession, error)
	CreateSession(ctx context.Context, session *models.TableSession) error
	GetSession(ctx context.Context, sessionID string) (*models.TableSession, error)
	UpdateSessionTotals(ctx context.Context, sessionID string, total, tax decimal.Decimal) error
	MarkSessionPaid(ctx context.Context, sessionID string) error

	// CreateOrderFromCart inserts the order with its items and empties the cart atomically.
	CreateOrderFromCart(ctx context.Context, order *models.Order, cartID string) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	ListSessionOrders(ctx context.Context, sessionID string) ([]models.Order, error)
	// SaveOrderItems upserts items by id and stores the recomputed total.
	SaveOrderItems(ctx context.Context, orderID string, items []models.OrderItem, total decimal.Decimal) error
	UpdateOrderItemNote(ctx context.Context, orderID, itemID string, note *string) (*models.OrderItem, error)
	AttachOrderToSession(ctx context.Context, orderID, sessionID string) error
	SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
	SetOrderSplit(ctx context.Context, orderID string, method models.SplitMethod, tax decimal.Decimal) error
	SetOrderPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error
	MarkSessionOrdersPaid(ctx context.Context, sessionID string) error

	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	// UpsertPayment creates or replaces the payment keyed by OrderID and
	// writes the stored row back into payment.
	UpsertPayment(ctx context.Context, payment *models.Payment) error
	SetPaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) (*models.Payment, error)
	// TransitionPaymentStatus moves a payment from one status to another and
	// returns CONFLICT when the payment is no longer in from.
	TransitionPaymentStatus(ctx context.Context, paymentID string, from, to models.PaymentStatus) (*models.Payment, error)
}

// TaxRates resolves a restaurant's effective tax rate.
type TaxRates interface {
	TaxRate(ctx context.Context, restaurantID string) (decimal.Decimal, error)
}

// Notifier publishes table-scoped events. Implementations must not block the
// caller and never report failures back to it.
type Notifier interface {
	Notify(tableID, event string, payload any)
}

// TaskRunner runs detached work whose failures are only logged.
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}

const (
	EventOrderUpdate        = "orderUpdate"
	EventPaymentUpdate      = "paymentUpdate"
	EventTableSessionUpdate = "tableSessionUpdate"
)
