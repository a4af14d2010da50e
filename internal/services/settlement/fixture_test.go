package settlement_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"dinendash-system/internal/database/models"
	"dinendash-system/internal/services/settlement"
	"dinendash-system/internal/testkit"
)

const (
	restaurantID = "e740fa98-8926-4b5b-81f3-13e5090dedac"
	tableID      = "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
	burgerID     = "11111111-1111-1111-1111-111111111111"
	pastaID      = "22222222-2222-2222-2222-222222222222"
	soupID       = "33333333-3333-3333-3333-333333333333"
	alice        = "aaaaaaaa-0000-0000-0000-000000000001"
	bob          = "bbbbbbbb-0000-0000-0000-000000000002"
)

type fixture struct {
	ledger   *testkit.Ledger
	notifier *testkit.Notifier
	tasks    *testkit.Tasks
	svc      *settlement.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger := testkit.NewLedger()
	ledger.AddRestaurant(models.Restaurant{ID: restaurantID, Name: "Sample Restaurant", TaxRate: decimal.RequireFromString("0.14")})
	ledger.AddTable(models.Table{ID: tableID, TableNumber: 1, RestaurantID: restaurantID})
	ledger.AddMenuItem(models.MenuItem{ID: burgerID, RestaurantID: restaurantID, Name: "Burger", Price: decimal.NewFromInt(100), IsAvailable: true})
	ledger.AddMenuItem(models.MenuItem{ID: pastaID, RestaurantID: restaurantID, Name: "Pasta", Price: decimal.NewFromInt(200), IsAvailable: true})
	ledger.AddMenuItem(models.MenuItem{ID: soupID, RestaurantID: restaurantID, Name: "Soup", Price: decimal.NewFromInt(30), IsAvailable: false})

	f := &fixture{
		ledger:   ledger,
		notifier: &testkit.Notifier{},
		tasks:    &testkit.Tasks{},
	}
	f.svc = settlement.NewService(settlement.Deps{
		Ledger:   ledger,
		Rates:    testkit.StaticRates{Rate: decimal.RequireFromString("0.14")},
		Notifier: f.notifier,
		Tasks:    f.tasks,
		Logger:   zaptest.NewLogger(t),
	})
	return f
}

// placeOrder runs the cart checkout for userID with a single menu item.
func (f *fixture) placeOrder(t *testing.T, userID, menuItemID string, qty int32) *models.Order {
	t.Helper()
	f.ledger.AddCart(userID, restaurantID, models.CartItem{MenuItemID: menuItemID, Quantity: qty})
	o, err := f.svc.CreateOrderFromCart(t.Context(), userID, restaurantID, tableID)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return o
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
