// Package gateway assembles the public HTTP API.
package gateway

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dinendash-system/internal/gateway/handlers"
	"dinendash-system/internal/gateway/middleware"
)

type RouterDeps struct {
	Orders    *handlers.OrderHTTPHandler
	Auth      *handlers.AuthHTTPHandler
	Tokens    middleware.TokenParser
	RateLimit gin.HandlerFunc
	Logger    *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.CORS())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(gin.Recovery())
	if d.RateLimit != nil {
		r.Use(d.RateLimit)
	}

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", d.Auth.Register)
			auth.POST("/login", d.Auth.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(d.Tokens))
	{
		orders := protected.Group("/orders")
		{
			orders.POST("/from-cart", d.Orders.CreateOrderFromCart)
			orders.GET("/user", d.Orders.ListUserOrders)
			orders.GET("/table/:tableId", d.Orders.GetTableOrders)
			orders.POST("/payment/:paymentId/confirm", d.Orders.ConfirmCashPayment)

			orders.GET("/:orderId", d.Orders.GetOrder)
			orders.POST("/:orderId/add-items", d.Orders.AddItems)
			orders.PATCH("/:orderId/status", d.Orders.UpdateOrderStatus)
			orders.PATCH("/:orderId/items/:itemId/note", d.Orders.UpdateItemNote)
			orders.POST("/:orderId/split", d.Orders.CalculateSplit)
			orders.POST("/:orderId/payment", d.Orders.SetPaymentMethod)
			orders.POST("/:orderId/process-payment", d.Orders.ProcessPayment)
			orders.GET("/:orderId/payment-status", d.Orders.GetPaymentStatus)
			orders.PATCH("/:orderId/payment-status", d.Orders.UpdatePaymentStatus)
		}
	}

	return r
}
