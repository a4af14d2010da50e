package gateway_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dinendash-system/internal/database/models"
	"dinendash-system/internal/gateway"
	"dinendash-system/internal/gateway/handlers"
	"dinendash-system/internal/services/auth"
	"dinendash-system/internal/services/settlement"
	"dinendash-system/internal/testkit"
	"dinendash-system/internal/utils"
)

const (
	restaurantID = "e740fa98-8926-4b5b-81f3-13e5090dedac"
	tableID      = "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
	burgerID     = "11111111-1111-1111-1111-111111111111"
	pastaID      = "22222222-2222-2222-2222-222222222222"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

type server struct {
	t      *testing.T
	router *gin.Engine
	ledger *testkit.Ledger
	logs   *observer.ObservedLogs
}

func newServer(t *testing.T, rates settlement.TaxRates) *server {
	t.Helper()

	ledger := testkit.NewLedger()
	ledger.AddRestaurant(models.Restaurant{ID: restaurantID, Name: "Sample Restaurant", TaxRate: decimal.RequireFromString("0.14")})
	ledger.AddTable(models.Table{ID: tableID, TableNumber: 1, RestaurantID: restaurantID})
	ledger.AddMenuItem(models.MenuItem{ID: burgerID, RestaurantID: restaurantID, Name: "Burger", Price: decimal.NewFromInt(100), IsAvailable: true})
	ledger.AddMenuItem(models.MenuItem{ID: pastaID, RestaurantID: restaurantID, Name: "Pasta", Price: decimal.NewFromInt(200), IsAvailable: true})

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	tokens := utils.NewTokenManager("test-secret", time.Hour)
	svc := settlement.NewService(settlement.Deps{
		Ledger:   ledger,
		Rates:    rates,
		Notifier: &testkit.Notifier{},
		Tasks:    &testkit.Tasks{},
		Logger:   log,
	})

	router := gateway.NewRouter(gateway.RouterDeps{
		Orders: handlers.NewOrderHTTPHandler(svc, log),
		Auth:   handlers.NewAuthHTTPHandler(auth.NewService(testkit.NewUsers(), tokens, log), log),
		Tokens: tokens,
		Logger: log,
	})

	return &server{t: t, router: router, ledger: ledger, logs: logs}
}

func defaultRates() settlement.TaxRates {
	return testkit.StaticRates{Rate: decimal.RequireFromString("0.14")}
}

func (s *server) do(method, path, token string, body any) (int, apiResponse) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

// signUp registers a diner and returns their token and id.
func (s *server) signUp(name, email string) (string, string) {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "hunter22",
	})
	require.Equal(s.t, http.StatusCreated, code, resp.Message)

	var session struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &session))
	return session.Token, session.User.ID
}

func (s *server) checkout(token, userID, menuItemID string) string {
	s.t.Helper()
	s.ledger.AddCart(userID, restaurantID, models.CartItem{MenuItemID: menuItemID, Quantity: 1})

	code, resp := s.do(http.MethodPost, "/api/v1/orders/from-cart", token, gin.H{
		"restaurantId": restaurantID, "tableId": tableID,
	})
	require.Equal(s.t, http.StatusCreated, code, resp.Message)

	var order models.Order
	require.NoError(s.t, json.Unmarshal(resp.Data, &order))
	return order.ID
}

func TestAuth(t *testing.T) {
	s := newServer(t, defaultRates())
	s.signUp("Alice", "alice@example.com")

	code, resp := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Alice", "email": "alice@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid email or password", resp.Message)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t, defaultRates())

	code, resp := s.do(http.MethodGet, "/api/v1/orders/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)

	code, _ = s.do(http.MethodGet, "/api/v1/orders/user", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestTableSettlementFlow(t *testing.T) {
	s := newServer(t, defaultRates())
	aliceToken, aliceID := s.signUp("Alice", "alice@example.com")
	bobToken, bobID := s.signUp("Bob", "bob@example.com")

	aliceOrder := s.checkout(aliceToken, aliceID, burgerID)
	bobOrder := s.checkout(bobToken, bobID, pastaID)

	code, resp := s.do(http.MethodGet, "/api/v1/orders/table/"+tableID, aliceToken, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var view struct {
		UserCount    int                     `json:"userCount"`
		SplitOptions settlement.SplitOptions `json:"splitOptions"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, 2, view.UserCount)
	assert.True(t, view.SplitOptions.Evenly.Equal(decimal.NewFromInt(171)))

	code, resp = s.do(http.MethodPost, "/api/v1/orders/"+aliceOrder+"/split", aliceToken, gin.H{"method": "EVENLY"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "Split evenly between 2 diners", resp.Message)

	code, resp = s.do(http.MethodPost, "/api/v1/orders/"+aliceOrder+"/split", aliceToken, gin.H{"method": "SPLIT_BY_MAGIC"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)

	code, resp = s.do(http.MethodPost, "/api/v1/orders/"+aliceOrder+"/payment", aliceToken, gin.H{
		"method": "CASH", "splitMethod": "PAY_ALL",
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var payment settlement.PaymentResult
	require.NoError(t, json.Unmarshal(resp.Data, &payment))
	assert.True(t, payment.AmountToPay.Equal(decimal.NewFromInt(342)))
	assert.Equal(t, models.PaymentStatusWaitingCashConfirmation, payment.Payment.Status)

	code, resp = s.do(http.MethodPost, "/api/v1/orders/payment/"+payment.Payment.ID+"/confirm", bobToken, gin.H{"isConfirmed": true})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, _ = s.do(http.MethodPost, "/api/v1/orders/payment/"+payment.Payment.ID+"/confirm", bobToken, gin.H{"isConfirmed": true})
	assert.Equal(t, http.StatusConflict, code)

	code, resp = s.do(http.MethodGet, "/api/v1/orders/"+bobOrder+"/payment-status", bobToken, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var status settlement.PaymentStatusView
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, models.PaymentStatusPaid, status.PaymentStatus)
}

func TestOrderRoutes(t *testing.T) {
	s := newServer(t, defaultRates())
	aliceToken, aliceID := s.signUp("Alice", "alice@example.com")
	bobToken, _ := s.signUp("Bob", "bob@example.com")
	orderID := s.checkout(aliceToken, aliceID, burgerID)

	code, resp := s.do(http.MethodPost, "/api/v1/orders/"+orderID+"/add-items", aliceToken, gin.H{
		"items": []gin.H{{"menuItemId": pastaID, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, _ = s.do(http.MethodPost, "/api/v1/orders/"+orderID+"/add-items", aliceToken, gin.H{
		"items": []gin.H{{"menuItemId": pastaID, "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(http.MethodGet, "/api/v1/orders/"+orderID, aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	var order models.Order
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(500)))
	require.Len(t, order.Items, 2)

	code, _ = s.do(http.MethodGet, "/api/v1/orders/"+orderID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = s.do(http.MethodPatch, "/api/v1/orders/"+orderID+"/items/"+order.Items[0].ID+"/note", aliceToken, gin.H{"specialNote": "no pickles"})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = s.do(http.MethodGet, "/api/v1/orders/user", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count": 1}`, string(resp.Meta))

	code, _ = s.do(http.MethodPatch, "/api/v1/orders/"+orderID+"/status", aliceToken, gin.H{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, "/api/v1/orders/"+orderID+"/add-items", aliceToken, gin.H{
		"items": []gin.H{{"menuItemId": burgerID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/api/v1/orders/from-cart", aliceToken, gin.H{
		"restaurantId": restaurantID, "tableId": "missing",
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	s := newServer(t, defaultRates())
	token, _ := s.signUp("Alice", "alice@example.com")

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/v1/orders/table/5", nil},
		{http.MethodGet, "/api/v1/orders/abc", nil},
		{http.MethodPost, "/api/v1/orders/abc/split", gin.H{"method": "EVENLY"}},
		{http.MethodGet, "/api/v1/orders/abc/payment-status", nil},
		{http.MethodPost, "/api/v1/orders/payment/abc/confirm", gin.H{"isConfirmed": true}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, resp := s.do(tt.method, tt.path, token, tt.body)
			assert.Equal(t, http.StatusNotFound, code)
			assert.False(t, resp.Success)
		})
	}
}

func TestPaymentStatusOverride(t *testing.T) {
	s := newServer(t, defaultRates())
	token, userID := s.signUp("Alice", "alice@example.com")
	orderID := s.checkout(token, userID, burgerID)

	code, _ := s.do(http.MethodPost, "/api/v1/orders/"+orderID+"/process-payment", token, gin.H{"method": "CARD"})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPatch, "/api/v1/orders/"+orderID+"/payment-status", token, gin.H{"status": "NOT_A_STATUS"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := s.do(http.MethodPatch, "/api/v1/orders/"+orderID+"/payment-status", token, gin.H{"status": "PAID"})
	require.Equal(t, http.StatusOK, code, resp.Message)
}

func TestInternalErrorsAreMasked(t *testing.T) {
	s := newServer(t, testkit.StaticRates{Err: errors.New("pq: connection reset")})
	token, _ := s.signUp("Alice", "alice@example.com")

	code, resp := s.do(http.MethodGet, "/api/v1/orders/table/"+tableID, token, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", resp.Message)
	assert.Equal(t, 1, s.logs.FilterMessage("request failed").Len())
}
