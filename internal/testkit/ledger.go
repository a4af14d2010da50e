// Package testkit provides in-memory stand-ins for the settlement
// dependencies so service and gateway tests run without Postgres or Redis.
package testkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

// Ledger is a map-backed settlement ledger. It enforces the same
// one-open-session-per-table rule as the database's partial unique index.
type Ledger struct {
	mu sync.Mutex

	Restaurants map[string]models.Restaurant
	Tables      map[string]models.Table
	MenuItems   map[string]models.MenuItem
	Carts       map[string]models.Cart
	Sessions    map[string]models.TableSession
	Orders      map[string]models.Order
	Payments    map[string]models.Payment

	// Calls counts ledger writes by method name.
	Calls map[string]int
	clock func() time.Time
	seq   int
}

func NewLedger() *Ledger {
	return &Ledger{
		Restaurants: make(map[string]models.Restaurant),
		Tables:      make(map[string]models.Table),
		MenuItems:   make(map[string]models.MenuItem),
		Carts:       make(map[string]models.Cart),
		Sessions:    make(map[string]models.TableSession),
		Orders:      make(map[string]models.Order),
		Payments:    make(map[string]models.Payment),
		Calls:       make(map[string]int),
		clock:       time.Now,
	}
}

// now returns strictly increasing timestamps so newest-first ordering is stable.
func (l *Ledger) now() time.Time {
	l.seq++
	return l.clock().Add(time.Duration(l.seq) * time.Millisecond)
}

func (l *Ledger) write(name string) {
	l.Calls[name]++
}

// Writes reports how many times a ledger write method was called.
func (l *Ledger) Writes(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Calls[name]
}

func (l *Ledger) AddRestaurant(r models.Restaurant) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Restaurants[r.ID] = r
}

func (l *Ledger) AddTable(t models.Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Tables[t.ID] = t
}

func (l *Ledger) AddMenuItem(m models.MenuItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.MenuItems[m.ID] = m
}

// AddCart appends items to the user's cart for the restaurant, creating it if needed.
func (l *Ledger) AddCart(userID, restaurantID string, items ...models.CartItem) models.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()
	cart := models.Cart{ID: uuid.NewString(), UserID: userID, RestaurantID: restaurantID}
	for _, c := range l.Carts {
		if c.UserID == userID && c.RestaurantID == restaurantID {
			cart = c
			break
		}
	}
	for _, ci := range items {
		if ci.ID == "" {
			ci.ID = uuid.NewString()
		}
		ci.CartID = cart.ID
		if mi, ok := l.MenuItems[ci.MenuItemID]; ok {
			mi := mi
			ci.MenuItem = &mi
		}
		cart.Items = append(cart.Items, ci)
	}
	l.Carts[cart.ID] = cart
	return cart
}

// AddOrder stores an order as if it had been placed earlier.
func (l *Ledger) AddOrder(o models.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = l.now()
	}
	l.Orders[o.ID] = cloneOrder(o)
}

func (l *Ledger) AddSession(s models.TableSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Sessions[s.ID] = s
}

// lookup mirrors postgres rejecting a malformed uuid, which the database
// layer reports as NOT_FOUND.
func lookup[T any](rows map[string]T, id, what string) (T, error) {
	row, ok := rows[id]
	if _, err := uuid.Parse(id); err != nil || !ok {
		var zero T
		return zero, apperrors.NotFound(what + " not found")
	}
	return row, nil
}

func (l *Ledger) GetTable(_ context.Context, tableID string) (*models.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, err := lookup(l.Tables, tableID, "table")
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (l *Ledger) GetMenuItems(_ context.Context, restaurantID string, ids []string) ([]models.MenuItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.MenuItem
	for _, id := range ids {
		if mi, ok := l.MenuItems[id]; ok && mi.RestaurantID == restaurantID {
			out = append(out, mi)
		}
	}
	return out, nil
}

func (l *Ledger) GetCart(_ context.Context, userID, restaurantID string) (*models.Cart, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.Carts {
		if c.UserID == userID && c.RestaurantID == restaurantID {
			c.Items = append([]models.CartItem(nil), c.Items...)
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("cart not found")
}

func (l *Ledger) FindOpenSession(_ context.Context, tableID string) (*models.TableSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.Sessions {
		if s.TableID == tableID && s.IsActive && !s.IsPaid {
			return &s, nil
		}
	}
	return nil, apperrors.NotFound("no open table session")
}

func (l *Ledger) CreateSession(_ context.Context, session *models.TableSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("CreateSession")
	for _, s := range l.Sessions {
		if s.TableID == session.TableID && s.IsActive && !s.IsPaid {
			return apperrors.New(apperrors.CodeAlreadyExists, "table already has an open session")
		}
	}
	session.CreatedAt = l.now()
	session.UpdatedAt = session.CreatedAt
	l.Sessions[session.ID] = *session
	return nil
}

func (l *Ledger) GetSession(_ context.Context, sessionID string) (*models.TableSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := lookup(l.Sessions, sessionID, "table session")
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (l *Ledger) UpdateSessionTotals(_ context.Context, sessionID string, total, tax decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("UpdateSessionTotals")
	s, ok := l.Sessions[sessionID]
	if !ok {
		return apperrors.NotFound("table session not found")
	}
	s.TotalAmount, s.TaxAmount = total, tax
	l.Sessions[sessionID] = s
	return nil
}

func (l *Ledger) MarkSessionPaid(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("MarkSessionPaid")
	s, ok := l.Sessions[sessionID]
	if !ok {
		return apperrors.NotFound("table session not found")
	}
	s.IsPaid, s.IsActive = true, false
	l.Sessions[sessionID] = s
	return nil
}

func (l *Ledger) CreateOrderFromCart(_ context.Context, order *models.Order, cartID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("CreateOrderFromCart")
	order.CreatedAt = l.now()
	order.UpdatedAt = order.CreatedAt
	l.Orders[order.ID] = cloneOrder(*order)
	if c, ok := l.Carts[cartID]; ok {
		c.Items = nil
		l.Carts[cartID] = c
	}
	return nil
}

func (l *Ledger) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, err := lookup(l.Orders, orderID, "order")
	if err != nil {
		return nil, err
	}
	o = cloneOrder(o)
	return &o, nil
}

func (l *Ledger) ListUserOrders(_ context.Context, userID string) ([]models.Order, error) {
	return l.listOrders(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (l *Ledger) ListSessionOrders(_ context.Context, sessionID string) ([]models.Order, error) {
	return l.listOrders(func(o models.Order) bool {
		return o.TableSessionID != nil && *o.TableSessionID == sessionID
	}), nil
}

func (l *Ledger) listOrders(keep func(models.Order) bool) []models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.Order{}
	for _, o := range l.Orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (l *Ledger) SaveOrderItems(_ context.Context, orderID string, items []models.OrderItem, total decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("SaveOrderItems")
	o, ok := l.Orders[orderID]
	if !ok {
		return apperrors.NotFound("order not found")
	}
	for _, item := range items {
		replaced := false
		for i := range o.Items {
			if o.Items[i].ID == item.ID {
				o.Items[i] = item
				replaced = true
			}
		}
		if !replaced {
			o.Items = append(o.Items, item)
		}
	}
	o.Total = total
	o.UpdatedAt = l.now()
	l.Orders[orderID] = o
	return nil
}

func (l *Ledger) UpdateOrderItemNote(_ context.Context, orderID, itemID string, note *string) (*models.OrderItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("UpdateOrderItemNote")
	o, ok := l.Orders[orderID]
	if !ok {
		return nil, apperrors.NotFound("order not found")
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items[i].SpecialNote = note
			l.Orders[orderID] = o
			item := o.Items[i]
			return &item, nil
		}
	}
	return nil, apperrors.NotFound("order item not found")
}

func (l *Ledger) AttachOrderToSession(_ context.Context, orderID, sessionID string) error {
	return l.updateOrder("AttachOrderToSession", orderID, func(o *models.Order) {
		o.TableSessionID = &sessionID
	})
}

func (l *Ledger) SetOrderStatus(_ context.Context, orderID string, status models.OrderStatus) error {
	return l.updateOrder("SetOrderStatus", orderID, func(o *models.Order) { o.Status = status })
}

func (l *Ledger) SetOrderSplit(_ context.Context, orderID string, method models.SplitMethod, tax decimal.Decimal) error {
	return l.updateOrder("SetOrderSplit", orderID, func(o *models.Order) {
		o.SplitMethod = &method
		o.TaxAmount = tax
	})
}

func (l *Ledger) SetOrderPaymentStatus(_ context.Context, orderID string, status models.PaymentStatus) error {
	return l.updateOrder("SetOrderPaymentStatus", orderID, func(o *models.Order) { o.PaymentStatus = status })
}

func (l *Ledger) updateOrder(name, orderID string, fn func(*models.Order)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(name)
	o, ok := l.Orders[orderID]
	if !ok {
		return apperrors.NotFound("order not found")
	}
	fn(&o)
	o.UpdatedAt = l.now()
	l.Orders[orderID] = o
	return nil
}

func (l *Ledger) MarkSessionOrdersPaid(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("MarkSessionOrdersPaid")
	for id, o := range l.Orders {
		if o.TableSessionID != nil && *o.TableSessionID == sessionID {
			o.PaymentStatus = models.PaymentStatusPaid
			l.Orders[id] = o
		}
	}
	return nil
}

func (l *Ledger) GetPayment(_ context.Context, paymentID string) (*models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, err := lookup(l.Payments, paymentID, "payment")
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (l *Ledger) GetPaymentByOrder(_ context.Context, orderID string) (*models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.Payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("payment not found")
}

func (l *Ledger) UpsertPayment(_ context.Context, payment *models.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("UpsertPayment")
	now := l.now()
	for id, p := range l.Payments {
		if p.OrderID == payment.OrderID {
			payment.ID = id
			payment.CreatedAt = p.CreatedAt
			payment.UpdatedAt = now
			l.Payments[id] = *payment
			return nil
		}
	}
	payment.CreatedAt, payment.UpdatedAt = now, now
	l.Payments[payment.ID] = *payment
	return nil
}

func (l *Ledger) SetPaymentStatus(_ context.Context, paymentID string, status models.PaymentStatus) (*models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("SetPaymentStatus")
	p, ok := l.Payments[paymentID]
	if !ok {
		return nil, apperrors.NotFound("payment not found")
	}
	p.Status = status
	p.UpdatedAt = l.now()
	l.Payments[paymentID] = p
	return &p, nil
}

func (l *Ledger) TransitionPaymentStatus(_ context.Context, paymentID string, from, to models.PaymentStatus) (*models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write("TransitionPaymentStatus")
	p, ok := l.Payments[paymentID]
	if !ok {
		return nil, apperrors.NotFound("payment not found")
	}
	if p.Status != from {
		return nil, apperrors.Newf(apperrors.CodeConflict, "payment is %s, not %s", p.Status, from)
	}
	p.Status = to
	p.UpdatedAt = l.now()
	l.Payments[paymentID] = p
	return &p, nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}
