package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

// NewItem is a line a diner adds to an order that is already placed.
type NewItem struct {
	MenuItemID  string
	Quantity    int32
	SpecialNote *string
}

// CreateOrderFromCart turns the diner's cart for a restaurant into an order at
// tableID. Item prices are snapshotted from the menu and the cart is emptied in
// the same transaction as the insert.
func (s *Service) CreateOrderFromCart(ctx context.Context, userID, restaurantID, tableID string) (*models.Order, error) {
	if restaurantID == "" || tableID == "" {
		return nil, apperrors.InvalidInput("restaurantId and tableId are required")
	}

	table, err := s.ledger.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if table.RestaurantID != restaurantID {
		return nil, apperrors.InvalidInput("table does not belong to this restaurant")
	}

	cart, err := s.ledger.GetCart(ctx, userID, restaurantID)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.InvalidInput("cart is empty")
	}
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	orderID := s.newID()
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		if ci.MenuItem == nil || ci.Quantity <= 0 {
			return nil, apperrors.Newf(apperrors.CodeInvalidInput, "cart item %s is not orderable", ci.ID)
		}
		items = append(items, models.OrderItem{
			ID:          s.newID(),
			OrderID:     orderID,
			MenuItemID:  ci.MenuItemID,
			Quantity:    ci.Quantity,
			Price:       ci.MenuItem.Price,
			SpecialNote: ci.SpecialNote,
			MenuItem:    ci.MenuItem,
		})
	}

	session, err := s.sessions.Resolve(ctx, table.ID, restaurantID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:             orderID,
		UserID:         userID,
		RestaurantID:   restaurantID,
		TableID:        table.ID,
		TableSessionID: &session.ID,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusUnpaid,
		TaxAmount:      decimal.Zero,
		Items:          items,
	}
	order.Total = order.ItemsTotal()

	if err := s.ledger.CreateOrderFromCart(ctx, order, cart.ID); err != nil {
		return nil, err
	}

	s.log.Info("order created from cart",
		zap.String("order_id", order.ID),
		zap.String("table_id", order.TableID),
		zap.String("table_session_id", session.ID),
		zap.String("total", order.Total.StringFixed(2)))
	s.notifier.Notify(order.TableID, EventOrderUpdate, order)
	return order, nil
}

// AddItems appends items to an open order. Items for a menu item already on
// the order raise its quantity instead of adding a second line; a new note
// replaces the old one.
func (s *Service) AddItems(ctx context.Context, userID, orderID string, add []NewItem) (*models.Order, error) {
	if len(add) == 0 {
		return nil, apperrors.InvalidInput("items are required")
	}
	for _, it := range add {
		if it.MenuItemID == "" || it.Quantity <= 0 {
			return nil, apperrors.InvalidInput("each item needs a menuItemId and a positive quantity")
		}
	}

	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.AcceptsItems() {
		return nil, apperrors.Newf(apperrors.CodeConflict, "order in status %s cannot take more items", order.Status)
	}

	lines := make(map[string]int, len(order.Items))
	for i, item := range order.Items {
		lines[item.MenuItemID] = i
	}

	var missing []string
	seen := make(map[string]bool)
	for _, it := range add {
		if _, ok := lines[it.MenuItemID]; !ok && !seen[it.MenuItemID] {
			missing = append(missing, it.MenuItemID)
			seen[it.MenuItemID] = true
		}
	}

	menu := make(map[string]models.MenuItem, len(missing))
	if len(missing) > 0 {
		found, err := s.ledger.GetMenuItems(ctx, order.RestaurantID, missing)
		if err != nil {
			return nil, err
		}
		for _, mi := range found {
			menu[mi.ID] = mi
		}
		for _, id := range missing {
			mi, ok := menu[id]
			if !ok {
				return nil, apperrors.NotFound(fmt.Sprintf("menu item %s not found", id))
			}
			if !mi.IsAvailable {
				return nil, apperrors.Newf(apperrors.CodeConflict, "menu item %s is not available", mi.Name)
			}
		}
	}

	changed := make(map[int]bool, len(add))
	for _, it := range add {
		if i, ok := lines[it.MenuItemID]; ok {
			line := &order.Items[i]
			line.Quantity += it.Quantity
			if it.SpecialNote != nil && *it.SpecialNote != "" {
				line.SpecialNote = it.SpecialNote
			}
			changed[i] = true
			continue
		}

		mi := menu[it.MenuItemID]
		order.Items = append(order.Items, models.OrderItem{
			ID:          s.newID(),
			OrderID:     order.ID,
			MenuItemID:  mi.ID,
			Quantity:    it.Quantity,
			Price:       mi.Price,
			SpecialNote: it.SpecialNote,
			MenuItem:    &mi,
		})
		lines[it.MenuItemID] = len(order.Items) - 1
		changed[len(order.Items)-1] = true
	}

	save := make([]models.OrderItem, 0, len(changed))
	for i := range order.Items {
		if changed[i] {
			save = append(save, order.Items[i])
		}
	}
	total := order.ItemsTotal()
	if err := s.ledger.SaveOrderItems(ctx, order.ID, save, total); err != nil {
		return nil, err
	}
	order.Total = total

	s.log.Info("items added to order",
		zap.String("order_id", order.ID),
		zap.Int("lines", len(save)),
		zap.String("total", order.Total.StringFixed(2)))
	s.notifier.Notify(order.TableID, EventOrderUpdate, order)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	return s.ownedOrder(ctx, userID, orderID)
}

func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.ledger.ListUserOrders(ctx, userID)
}

// UpdateOrderStatus moves an order through the kitchen workflow. Completed
// and cancelled orders are final.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "invalid order status %q", status)
	}

	order, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if order.Status.Terminal() {
		return nil, apperrors.Newf(apperrors.CodeConflict, "order is already %s", order.Status)
	}

	if err := s.ledger.SetOrderStatus(ctx, order.ID, status); err != nil {
		return nil, err
	}
	order.Status = status

	s.log.Info("order status updated", zap.String("order_id", order.ID), zap.String("status", string(status)))
	s.notifier.Notify(order.TableID, EventOrderUpdate, order)
	return order, nil
}

// UpdateItemNote replaces the special note on one line of the diner's order.
// A nil or empty note clears it.
func (s *Service) UpdateItemNote(ctx context.Context, userID, orderID, itemID string, note *string) (*models.OrderItem, error) {
	if _, err := s.ownedOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}
	if note != nil && *note == "" {
		note = nil
	}
	return s.ledger.UpdateOrderItemNote(ctx, orderID, itemID, note)
}
