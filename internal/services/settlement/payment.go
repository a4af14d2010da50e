package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

type PaymentRequest struct {
	Method      models.PaymentMethod
	SplitMethod *models.SplitMethod
}

func (r PaymentRequest) validate() error {
	if !r.Method.Valid() {
		return apperrors.Newf(apperrors.CodeInvalidInput, "invalid payment method %q", r.Method)
	}
	if r.SplitMethod != nil && !r.SplitMethod.Valid() {
		return apperrors.Newf(apperrors.CodeInvalidInput, "invalid split method %q", *r.SplitMethod)
	}
	return nil
}

type PaymentResult struct {
	Message     string          `json:"message"`
	Payment     *models.Payment `json:"payment"`
	AmountToPay decimal.Decimal `json:"amountToPay"`
	Order       *models.Order   `json:"order,omitempty"`
}

type PaymentStatusView struct {
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Payment       *models.Payment      `json:"payment"`
}

// SplitView is a split result together with the order it was recorded on.
type SplitView struct {
	SplitResult
	Order        *models.Order        `json:"order"`
	TableSession *models.TableSession `json:"tableSession"`
	AllOrders    []models.Order       `json:"allOrders"`
}

type PaymentUpdate struct {
	OrderID   string               `json:"orderId"`
	PaymentID string               `json:"paymentId"`
	Status    models.PaymentStatus `json:"status"`
	Method    models.PaymentMethod `json:"method"`
	Amount    decimal.Decimal      `json:"amount"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

type SessionUpdate struct {
	TableSessionID string    `json:"tableSessionId"`
	TableID        string    `json:"tableId"`
	IsPaid         bool      `json:"isPaid"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CalculateSplit records method on the order and reports what userID owes
// under it. An unknown method is rejected before anything is read or written.
func (s *Service) CalculateSplit(ctx context.Context, userID, orderID string, method models.SplitMethod) (*SplitView, error) {
	if !method.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "invalid split method %q", method)
	}

	order, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	res, orders, session, err := s.splitForOrder(ctx, userID, order, method)
	if err != nil {
		return nil, err
	}
	return &SplitView{SplitResult: res, Order: order, TableSession: session, AllOrders: orders}, nil
}

// splitForOrder computes the split over the order's whole session and stores
// the chosen method and attributed tax on the order.
func (s *Service) splitForOrder(ctx context.Context, userID string, order *models.Order, method models.SplitMethod) (SplitResult, []models.Order, *models.TableSession, error) {
	session, err := s.sessionForOrder(ctx, order)
	if err != nil {
		return SplitResult{}, nil, nil, err
	}

	orders, err := s.ledger.ListSessionOrders(ctx, session.ID)
	if err != nil {
		return SplitResult{}, nil, nil, err
	}

	rate, err := s.rates.TaxRate(ctx, order.RestaurantID)
	if err != nil {
		return SplitResult{}, nil, nil, err
	}

	res, err := ComputeSplit(orders, rate, method, userID)
	if err != nil {
		return SplitResult{}, nil, nil, err
	}

	if err := s.ledger.SetOrderSplit(ctx, order.ID, method, res.AttributedTax); err != nil {
		return SplitResult{}, nil, nil, err
	}
	order.SplitMethod = &method
	order.TaxAmount = res.AttributedTax

	s.sessions.RefreshTotals(session.ID, res.TableTotals)
	return res, orders, session, nil
}

// SetPaymentMethod starts payment of the caller's own order.
func (s *Service) SetPaymentMethod(ctx context.Context, userID, orderID string, req PaymentRequest) (*PaymentResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.initiatePayment(ctx, userID, order, req)
}

// ProcessPayment starts payment of any order on behalf of the caller, for a
// diner settling someone else's order or a waiter at the till.
func (s *Service) ProcessPayment(ctx context.Context, userID, orderID string, req PaymentRequest) (*PaymentResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	order, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.initiatePayment(ctx, userID, order, req)
}

func (s *Service) initiatePayment(ctx context.Context, payerID string, order *models.Order, req PaymentRequest) (*PaymentResult, error) {
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, apperrors.Conflict("order is already paid")
	}

	paymentID := s.newID()
	existing, err := s.ledger.GetPaymentByOrder(ctx, order.ID)
	switch {
	case err == nil:
		if existing.Status == models.PaymentStatusPaid {
			return nil, apperrors.Conflict("order is already paid")
		}
		paymentID = existing.ID
	case apperrors.HasCode(err, apperrors.CodeNotFound):
	default:
		return nil, err
	}

	amount, err := s.amountDue(ctx, order, req.SplitMethod)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:             paymentID,
		OrderID:        order.ID,
		UserID:         payerID,
		TableSessionID: order.TableSessionID,
		Amount:         amount,
		Method:         req.Method,
		Status:         req.Method.InitialStatus(),
	}
	if err := s.ledger.UpsertPayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := s.ledger.SetOrderPaymentStatus(ctx, order.ID, payment.Status); err != nil {
		return nil, err
	}
	order.PaymentStatus = payment.Status

	s.log.Info("payment initiated",
		zap.String("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.String("method", string(payment.Method)),
		zap.String("amount", payment.Amount.StringFixed(2)))
	s.publishPayment(order, payment)

	msg := "Card payment initiated"
	if payment.Method == models.PaymentMethodCash {
		msg = "Cash payment awaiting waiter confirmation"
	}
	return &PaymentResult{Message: msg, Payment: payment, AmountToPay: amount, Order: order}, nil
}

// amountDue prices a payment. An explicit split method wins over the one
// already recorded on the order; with neither, the diner pays the order total
// plus tax.
func (s *Service) amountDue(ctx context.Context, order *models.Order, split *models.SplitMethod) (decimal.Decimal, error) {
	method := split
	if method == nil {
		method = order.SplitMethod
	}

	if method != nil {
		res, _, _, err := s.splitForOrder(ctx, order.UserID, order, *method)
		if err != nil {
			return decimal.Zero, err
		}
		return res.AmountToPay, nil
	}

	rate, err := s.rates.TaxRate(ctx, order.RestaurantID)
	if err != nil {
		return decimal.Zero, err
	}
	return roundCents(order.Total.Add(order.Total.Mul(rate))), nil
}

// ConfirmCashPayment records the waiter's verdict on a cash payment. Only a
// payment still waiting for confirmation can be confirmed or rejected.
func (s *Service) ConfirmCashPayment(ctx context.Context, paymentID string, confirmed bool) (*PaymentResult, error) {
	payment, err := s.ledger.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusWaitingCashConfirmation {
		return nil, apperrors.Newf(apperrors.CodeConflict, "payment is %s, not awaiting cash confirmation", payment.Status)
	}

	order, err := s.ledger.GetOrder(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}

	to, orderStatus := models.PaymentStatusFailed, models.PaymentStatusUnpaid
	if confirmed {
		to, orderStatus = models.PaymentStatusPaid, models.PaymentStatusPaid
	}

	updated, err := s.ledger.TransitionPaymentStatus(ctx, payment.ID, models.PaymentStatusWaitingCashConfirmation, to)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.SetOrderPaymentStatus(ctx, order.ID, orderStatus); err != nil {
		return nil, err
	}
	order.PaymentStatus = orderStatus

	if confirmed {
		if err := s.settleTable(ctx, order, updated); err != nil {
			return nil, err
		}
	}

	s.log.Info("cash payment reviewed",
		zap.String("payment_id", updated.ID),
		zap.String("order_id", order.ID),
		zap.Bool("confirmed", confirmed))
	s.publishPayment(order, updated)

	msg := "Cash payment rejected"
	if confirmed {
		msg = "Cash payment confirmed"
	}
	return &PaymentResult{Message: msg, Payment: updated, AmountToPay: updated.Amount, Order: order}, nil
}

// UpdatePaymentStatus sets the payment status of an order directly, as a card
// processor callback or back-office correction would.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) (*PaymentResult, error) {
	if !status.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "invalid payment status %q", status)
	}

	order, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payment, err := s.ledger.GetPaymentByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.ledger.SetPaymentStatus(ctx, payment.ID, status)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.SetOrderPaymentStatus(ctx, order.ID, status); err != nil {
		return nil, err
	}
	order.PaymentStatus = status

	if status == models.PaymentStatusPaid {
		if err := s.settleTable(ctx, order, updated); err != nil {
			return nil, err
		}
	}

	s.log.Info("payment status updated", zap.String("order_id", order.ID), zap.String("status", string(status)))
	s.publishPayment(order, updated)
	return &PaymentResult{Message: "Payment status updated", Payment: updated, AmountToPay: updated.Amount, Order: order}, nil
}

// PaymentStatus reports the order's payment status and its payment, if any.
func (s *Service) PaymentStatus(ctx context.Context, userID, orderID string) (*PaymentStatusView, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	view := &PaymentStatusView{PaymentStatus: order.PaymentStatus}
	payment, err := s.ledger.GetPaymentByOrder(ctx, order.ID)
	switch {
	case err == nil:
		view.Payment = payment
	case apperrors.HasCode(err, apperrors.CodeNotFound):
	default:
		return nil, err
	}
	return view, nil
}

// settleTable closes the whole session when a PAY_ALL payment is completed.
func (s *Service) settleTable(ctx context.Context, order *models.Order, payment *models.Payment) error {
	if order.SplitMethod == nil || *order.SplitMethod != models.SplitPayAll {
		return nil
	}
	sessionID := order.TableSessionID
	if payment.TableSessionID != nil {
		sessionID = payment.TableSessionID
	}
	if sessionID == nil {
		return nil
	}

	if err := s.ledger.MarkSessionOrdersPaid(ctx, *sessionID); err != nil {
		return err
	}
	if err := s.ledger.MarkSessionPaid(ctx, *sessionID); err != nil {
		return err
	}

	s.log.Info("table session settled",
		zap.String("table_session_id", *sessionID),
		zap.String("table_id", order.TableID),
		zap.String("order_id", order.ID))
	s.notifier.Notify(order.TableID, EventTableSessionUpdate, SessionUpdate{
		TableSessionID: *sessionID,
		TableID:        order.TableID,
		IsPaid:         true,
		UpdatedAt:      time.Now().UTC(),
	})
	return nil
}

func (s *Service) publishPayment(order *models.Order, payment *models.Payment) {
	s.notifier.Notify(order.TableID, EventPaymentUpdate, PaymentUpdate{
		OrderID:   order.ID,
		PaymentID: payment.ID,
		Status:    order.PaymentStatus,
		Method:    payment.Method,
		Amount:    payment.Amount,
		UpdatedAt: payment.UpdatedAt,
	})
}
