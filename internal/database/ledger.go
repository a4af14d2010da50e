package database

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

// Ledger is the postgres implementation of the settlement ledger.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func itemsByCreation(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.created_at ASC")
}

func (l *Ledger) orders(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).
		Preload("Items", itemsByCreation).
		Preload("Items.MenuItem")
}

func (l *Ledger) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	var table models.Table
	if err := l.db.WithContext(ctx).Preload("Restaurant").First(&table, "id = ?", tableID).Error; err != nil {
		return nil, classify(err, "table")
	}
	return &table, nil
}

func (l *Ledger) GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := l.db.WithContext(ctx).First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		return nil, classify(err, "restaurant")
	}
	return &restaurant, nil
}

func (l *Ledger) GetMenuItems(ctx context.Context, restaurantID string, ids []string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if len(ids) == 0 {
		return items, nil
	}
	err := l.db.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&items).Error
	if err != nil {
		return nil, classify(err, "menu items")
	}
	return items, nil
}

func (l *Ledger) GetCart(ctx context.Context, userID, restaurantID string) (*models.Cart, error) {
	var cart models.Cart
	err := l.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.created_at ASC") }).
		Preload("Items.MenuItem").
		Where("user_id = ? AND restaurant_id = ?", userID, restaurantID).
		First(&cart).Error
	if err != nil {
		return nil, classify(err, "cart")
	}
	return &cart, nil
}

func (l *Ledger) FindOpenSession(ctx context.Context, tableID string) (*models.TableSession, error) {
	var session models.TableSession
	err := l.db.WithContext(ctx).
		Where("table_id = ? AND is_active = ? AND is_paid = ?", tableID, true, false).
		First(&session).Error
	if err != nil {
		return nil, classify(err, "open table session")
	}
	return &session, nil
}

func (l *Ledger) CreateSession(ctx context.Context, session *models.TableSession) error {
	return classify(l.db.WithContext(ctx).Create(session).Error, "open table session")
}

func (l *Ledger) GetSession(ctx context.Context, sessionID string) (*models.TableSession, error) {
	var session models.TableSession
	if err := l.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, classify(err, "table session")
	}
	return &session, nil
}

func (l *Ledger) UpdateSessionTotals(ctx context.Context, sessionID string, total, tax decimal.Decimal) error {
	res := l.db.WithContext(ctx).Model(&models.TableSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{"total_amount": total, "tax_amount": tax})
	return affected(res, "table session")
}

func (l *Ledger) MarkSessionPaid(ctx context.Context, sessionID string) error {
	res := l.db.WithContext(ctx).Model(&models.TableSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{"is_paid": true, "is_active": false})
	return affected(res, "table session")
}

func (l *Ledger) CreateOrderFromCart(ctx context.Context, order *models.Order, cartID string) error {
	tx := l.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
		tx.Rollback()
		return classify(err, "order")
	}

	if len(order.Items) > 0 {
		if err := tx.Omit(clause.Associations).Create(&order.Items).Error; err != nil {
			tx.Rollback()
			return classify(err, "order items")
		}
	}

	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		tx.Rollback()
		return classify(err, "cart items")
	}

	if err := tx.Commit().Error; err != nil {
		return apperrors.Internal("failed to commit order", err)
	}
	return nil
}

func (l *Ledger) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := l.orders(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, classify(err, "order")
	}
	return &order, nil
}

func (l *Ledger) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := l.orders(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, classify(err, "orders")
	}
	return orders, nil
}

func (l *Ledger) ListSessionOrders(ctx context.Context, sessionID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := l.orders(ctx).
		Where("table_session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, classify(err, "orders")
	}
	return orders, nil
}

func (l *Ledger) SaveOrderItems(ctx context.Context, orderID string, items []models.OrderItem, total decimal.Decimal) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range items {
			if err := tx.Omit(clause.Associations).Save(&items[i]).Error; err != nil {
				return classify(err, "order item")
			}
		}
		res := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("total", total)
		return affected(res, "order")
	})
}

func (l *Ledger) UpdateOrderItemNote(ctx context.Context, orderID, itemID string, note *string) (*models.OrderItem, error) {
	res := l.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Update("special_note", note)
	if err := affected(res, "order item"); err != nil {
		return nil, err
	}

	var item models.OrderItem
	if err := l.db.WithContext(ctx).Preload("MenuItem").First(&item, "id = ?", itemID).Error; err != nil {
		return nil, classify(err, "order item")
	}
	return &item, nil
}

func (l *Ledger) updateOrder(ctx context.Context, orderID string, values map[string]any) error {
	res := l.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(values)
	return affected(res, "order")
}

func (l *Ledger) AttachOrderToSession(ctx context.Context, orderID, sessionID string) error {
	return l.updateOrder(ctx, orderID, map[string]any{"table_session_id": sessionID})
}

func (l *Ledger) SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	return l.updateOrder(ctx, orderID, map[string]any{"status": status})
}

func (l *Ledger) SetOrderSplit(ctx context.Context, orderID string, method models.SplitMethod, tax decimal.Decimal) error {
	return l.updateOrder(ctx, orderID, map[string]any{"split_method": method, "tax_amount": tax})
}

func (l *Ledger) SetOrderPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	return l.updateOrder(ctx, orderID, map[string]any{"payment_status": status})
}

func (l *Ledger) MarkSessionOrdersPaid(ctx context.Context, sessionID string) error {
	err := l.db.WithContext(ctx).Model(&models.Order{}).
		Where("table_session_id = ?", sessionID).
		Update("payment_status", models.PaymentStatusPaid).Error
	return classify(err, "orders")
}

func (l *Ledger) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := l.db.WithContext(ctx).First(&payment, "id = ?", paymentID).Error; err != nil {
		return nil, classify(err, "payment")
	}
	return &payment, nil
}

func (l *Ledger) GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := l.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, classify(err, "payment")
	}
	return &payment, nil
}

func (l *Ledger) UpsertPayment(ctx context.Context, payment *models.Payment) error {
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "table_session_id", "amount", "method", "status", "updated_at",
		}),
	}).Create(payment).Error
	if err != nil {
		return classify(err, "payment")
	}

	stored, err := l.GetPaymentByOrder(ctx, payment.OrderID)
	if err != nil {
		return err
	}
	*payment = *stored
	return nil
}

func (l *Ledger) SetPaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) (*models.Payment, error) {
	res := l.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", paymentID).Update("status", status)
	if err := affected(res, "payment"); err != nil {
		return nil, err
	}
	return l.GetPayment(ctx, paymentID)
}

func (l *Ledger) TransitionPaymentStatus(ctx context.Context, paymentID string, from, to models.PaymentStatus) (*models.Payment, error) {
	res := l.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Update("status", to)
	if res.Error != nil {
		return nil, classify(res.Error, "payment")
	}
	if res.RowsAffected == 0 {
		current, err := l.GetPayment(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.Newf(apperrors.CodeConflict, "payment is %s, not %s", current.Status, from)
	}
	return l.GetPayment(ctx, paymentID)
}
