package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dinendash-system/internal/database/models"
	"dinendash-system/internal/services/settlement"
)

// Settlement is the order and payment surface the HTTP gateway exposes.
type Settlement interface {
	CreateOrderFromCart(ctx context.Context, userID, restaurantID, tableID string) (*models.Order, error)
	AddItems(ctx context.Context, userID, orderID string, items []settlement.NewItem) (*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
	UpdateItemNote(ctx context.Context, userID, orderID, itemID string, note *string) (*models.OrderItem, error)
	TableOverview(ctx context.Context, userID, tableID string) (*settlement.TableView, error)
	CalculateSplit(ctx context.Context, userID, orderID string, method models.SplitMethod) (*settlement.SplitView, error)
	SetPaymentMethod(ctx context.Context, userID, orderID string, req settlement.PaymentRequest) (*settlement.PaymentResult, error)
	ProcessPayment(ctx context.Context, userID, orderID string, req settlement.PaymentRequest) (*settlement.PaymentResult, error)
	ConfirmCashPayment(ctx context.Context, paymentID string, confirmed bool) (*settlement.PaymentResult, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) (*settlement.PaymentResult, error)
	PaymentStatus(ctx context.Context, userID, orderID string) (*settlement.PaymentStatusView, error)
}

type OrderHTTPHandler struct {
	svc Settlement
	log *zap.Logger
}

func NewOrderHTTPHandler(svc Settlement, log *zap.Logger) *OrderHTTPHandler {
	return &OrderHTTPHandler{svc: svc, log: log}
}

// Request structs
type CreateOrderFromCartRequest struct {
	RestaurantID string `json:"restaurantId" binding:"required"`
	TableID      string `json:"tableId" binding:"required"`
}

type AddItemRequest struct {
	MenuItemID  string  `json:"menuItemId" binding:"required"`
	Quantity    int32   `json:"quantity" binding:"required,min=1"`
	SpecialNote *string `json:"specialNote,omitempty"`
}

type AddItemsRequest struct {
	Items []AddItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdateItemNoteRequest struct {
	SpecialNote *string `json:"specialNote"`
}

type SplitRequest struct {
	Method string `json:"method" binding:"required"`
}

type PaymentRequest struct {
	Method      string  `json:"method" binding:"required"`
	SplitMethod *string `json:"splitMethod,omitempty"`
}

type UpdatePaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ConfirmCashPaymentRequest struct {
	IsConfirmed *bool `json:"isConfirmed" binding:"required"`
}

func (r PaymentRequest) toService() settlement.PaymentRequest {
	req := settlement.PaymentRequest{Method: models.PaymentMethod(r.Method)}
	if r.SplitMethod != nil && *r.SplitMethod != "" {
		m := models.SplitMethod(*r.SplitMethod)
		req.SplitMethod = &m
	}
	return req
}

// --- Orders ---

func (h *OrderHTTPHandler) CreateOrderFromCart(c *gin.Context) {
	var req CreateOrderFromCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.svc.CreateOrderFromCart(ctx, currentUser(c), req.RestaurantID, req.TableID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order created successfully", order))
}

func (h *OrderHTTPHandler) AddItems(c *gin.Context) {
	var req AddItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	items := make([]settlement.NewItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = settlement.NewItem{
			MenuItemID:  item.MenuItemID,
			Quantity:    item.Quantity,
			SpecialNote: item.SpecialNote,
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.svc.AddItems(ctx, currentUser(c), c.Param("orderId"), items)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Items added to order", order))
}

func (h *OrderHTTPHandler) ListUserOrders(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := h.svc.ListUserOrders(ctx, currentUser(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", orders, gin.H{"count": len(orders)}))
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.svc.GetOrder(ctx, currentUser(c), c.Param("orderId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", order))
}

func (h *OrderHTTPHandler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.svc.UpdateOrderStatus(ctx, c.Param("orderId"), models.OrderStatus(req.Status))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order status updated", order))
}

func (h *OrderHTTPHandler) UpdateItemNote(c *gin.Context) {
	var req UpdateItemNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := h.svc.UpdateItemNote(ctx, currentUser(c), c.Param("orderId"), c.Param("itemId"), req.SpecialNote)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item note updated", item))
}

// --- Table settlement ---

func (h *OrderHTTPHandler) GetTableOrders(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.svc.TableOverview(ctx, currentUser(c), c.Param("tableId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table orders retrieved successfully", view))
}

func (h *OrderHTTPHandler) CalculateSplit(c *gin.Context) {
	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	split, err := h.svc.CalculateSplit(ctx, currentUser(c), c.Param("orderId"), models.SplitMethod(req.Method))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(split.Description, split))
}

// --- Payments ---

func (h *OrderHTTPHandler) SetPaymentMethod(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.SetPaymentMethod(ctx, currentUser(c), c.Param("orderId"), req.toService())
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(res.Message, res))
}

func (h *OrderHTTPHandler) ProcessPayment(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.ProcessPayment(ctx, currentUser(c), c.Param("orderId"), req.toService())
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(res.Message, res))
}

func (h *OrderHTTPHandler) ConfirmCashPayment(c *gin.Context) {
	var req ConfirmCashPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.ConfirmCashPayment(ctx, c.Param("paymentId"), *req.IsConfirmed)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(res.Message, res))
}

func (h *OrderHTTPHandler) GetPaymentStatus(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := h.svc.PaymentStatus(ctx, currentUser(c), c.Param("orderId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Payment status retrieved", view))
}

func (h *OrderHTTPHandler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.UpdatePaymentStatus(ctx, c.Param("orderId"), models.PaymentStatus(req.Status))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(res.Message, res))
}
