package models

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusServed    OrderStatus = "SERVED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusServed, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// AcceptsItems reports whether more items may be added to an order in this status.
func (s OrderStatus) AcceptsItems() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending                 PaymentStatus = "PAYMENT_PENDING"
	PaymentStatusWaitingCashConfirmation PaymentStatus = "WAITING_CASH_CONFIRMATION"
	PaymentStatusPaid                    PaymentStatus = "PAID"
	PaymentStatusFailed                  PaymentStatus = "FAILED"
	PaymentStatusUnpaid                  PaymentStatus = "UNPAID"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusWaitingCashConfirmation,
		PaymentStatusPaid, PaymentStatusFailed, PaymentStatusUnpaid:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "CASH"
	PaymentMethodCard PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard
}

// InitialStatus is the status a freshly created payment starts in.
func (m PaymentMethod) InitialStatus() PaymentStatus {
	if m == PaymentMethodCash {
		return PaymentStatusWaitingCashConfirmation
	}
	return PaymentStatusPending
}

type SplitMethod string

const (
	SplitByOrder SplitMethod = "BY_ORDER"
	SplitEvenly  SplitMethod = "EVENLY"
	SplitPayAll  SplitMethod = "PAY_ALL"
)

func (m SplitMethod) Valid() bool {
	switch m {
	case SplitByOrder, SplitEvenly, SplitPayAll:
		return true
	}
	return false
}
