package settlement_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
	"dinendash-system/internal/services/settlement"
)

func splitPtr(m models.SplitMethod) *models.SplitMethod { return &m }

// twoDiners seats alice (100) and bob (200) at the same table.
func twoDiners(t *testing.T, f *fixture) (a, b *models.Order) {
	t.Helper()
	return f.placeOrder(t, alice, burgerID, 1), f.placeOrder(t, bob, pastaID, 1)
}

func TestCalculateSplit(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	tests := []struct {
		method models.SplitMethod
		amount string
	}{
		{models.SplitEvenly, "171"},
		{models.SplitByOrder, "114"},
		{models.SplitPayAll, "342"},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			res, err := f.svc.CalculateSplit(ctx, alice, a.ID, tt.method)
			require.NoError(t, err)
			assert.True(t, res.AmountToPay.Equal(dec(tt.amount)), "amount %s", res.AmountToPay)
			assert.Len(t, res.AllOrders, 2)

			stored, err := f.ledger.GetOrder(ctx, a.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.SplitMethod)
			assert.Equal(t, tt.method, *stored.SplitMethod)
			assert.True(t, stored.TaxAmount.Equal(res.AttributedTax))
		})
	}

	session, err := f.ledger.GetSession(ctx, *a.TableSessionID)
	require.NoError(t, err)
	assert.True(t, session.TotalAmount.Equal(dec("342")))
}

func TestCalculateSplit_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	first, err := f.svc.CalculateSplit(ctx, alice, a.ID, models.SplitEvenly)
	require.NoError(t, err)
	second, err := f.svc.CalculateSplit(ctx, alice, a.ID, models.SplitEvenly)
	require.NoError(t, err)

	assert.True(t, first.AmountToPay.Equal(second.AmountToPay))
	assert.True(t, first.AttributedTax.Equal(second.AttributedTax))
}

func TestCalculateSplit_UnknownMethodChangesNothing(t *testing.T) {
	f := newFixture(t)
	a, _ := twoDiners(t, f)

	_, err := f.svc.CalculateSplit(t.Context(), alice, a.ID, "SPLIT_BY_MAGIC")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
	assert.Zero(t, f.ledger.Writes("SetOrderSplit"))
	assert.Zero(t, f.ledger.Writes("UpdateSessionTotals"))
}

func TestCalculateSplit_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	for name, orderID := range map[string]string{
		"malformed id": "abc",
		"unknown id":   uuid.NewString(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CalculateSplit(t.Context(), alice, orderID, models.SplitEvenly)
			assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
		})
	}
}

func TestSetPaymentMethod_CashPayAllSettlesTable(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, b := twoDiners(t, f)

	res, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{
		Method:      models.PaymentMethodCash,
		SplitMethod: splitPtr(models.SplitPayAll),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaitingCashConfirmation, res.Payment.Status)
	assert.True(t, res.AmountToPay.Equal(dec("342")))

	sibling, err := f.ledger.GetOrder(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, sibling.PaymentStatus)

	confirmed, err := f.svc.ConfirmCashPayment(ctx, res.Payment.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, confirmed.Payment.Status)

	for _, id := range []string{a.ID, b.ID} {
		o, err := f.ledger.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus, id)
	}

	session, err := f.ledger.GetSession(ctx, *a.TableSessionID)
	require.NoError(t, err)
	assert.True(t, session.IsPaid)

	assert.Len(t, f.notifier.Named(settlement.EventTableSessionUpdate), 1)
	assert.Len(t, f.notifier.Named(settlement.EventPaymentUpdate), 2)
}

func TestConfirmCashPayment_ByOrderLeavesSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, b := twoDiners(t, f)

	res, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{
		Method:      models.PaymentMethodCash,
		SplitMethod: splitPtr(models.SplitByOrder),
	})
	require.NoError(t, err)
	assert.True(t, res.AmountToPay.Equal(dec("114")))

	_, err = f.svc.ConfirmCashPayment(ctx, res.Payment.ID, true)
	require.NoError(t, err)

	paid, err := f.ledger.GetOrder(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)

	sibling, err := f.ledger.GetOrder(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, sibling.PaymentStatus)

	session, err := f.ledger.GetSession(ctx, *a.TableSessionID)
	require.NoError(t, err)
	assert.False(t, session.IsPaid)
	assert.Empty(t, f.notifier.Named(settlement.EventTableSessionUpdate))
}

func TestConfirmCashPayment_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, b := twoDiners(t, f)

	res, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{
		Method:      models.PaymentMethodCash,
		SplitMethod: splitPtr(models.SplitPayAll),
	})
	require.NoError(t, err)

	rejected, err := f.svc.ConfirmCashPayment(ctx, res.Payment.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, rejected.Payment.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, rejected.Order.PaymentStatus)

	sibling, err := f.ledger.GetOrder(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, sibling.PaymentStatus)

	events := f.notifier.Named(settlement.EventPaymentUpdate)
	require.Len(t, events, 2)
	update := events[1].Payload.(settlement.PaymentUpdate)
	assert.Equal(t, models.PaymentStatusUnpaid, update.Status)
}

func TestConfirmCashPayment_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	res, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCash})
	require.NoError(t, err)

	_, err = f.svc.ConfirmCashPayment(ctx, res.Payment.ID, true)
	require.NoError(t, err)

	_, err = f.svc.ConfirmCashPayment(ctx, res.Payment.ID, false)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	_, err = f.svc.ConfirmCashPayment(ctx, "missing", true)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestConfirmCashPayment_CardPaymentIsNotConfirmable(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	res, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCard})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, res.Payment.Status)

	_, err = f.svc.ConfirmCashPayment(ctx, res.Payment.ID, true)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestSetPaymentMethod_WithoutSplitChargesOwnOrder(t *testing.T) {
	f := newFixture(t)
	a, _ := twoDiners(t, f)

	res, err := f.svc.SetPaymentMethod(t.Context(), alice, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCard})
	require.NoError(t, err)
	assert.True(t, res.AmountToPay.Equal(dec("114")), "amount %s", res.AmountToPay)
	assert.Zero(t, f.ledger.Writes("SetOrderSplit"))
}

func TestSetPaymentMethod_ReusesRecordedSplit(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	_, err := f.svc.CalculateSplit(ctx, alice, a.ID, models.SplitEvenly)
	require.NoError(t, err)

	res, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCard})
	require.NoError(t, err)
	assert.True(t, res.AmountToPay.Equal(dec("171")))
}

func TestSetPaymentMethod_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	_, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{Method: "BITCOIN"})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	_, err = f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{
		Method: models.PaymentMethodCard, SplitMethod: splitPtr("SPLIT_BY_MAGIC"),
	})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	_, err = f.svc.SetPaymentMethod(ctx, bob, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCard})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	assert.Zero(t, f.ledger.Writes("UpsertPayment"))
}

func TestSetPaymentMethod_UpdatesExistingPayment(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	card, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCard})
	require.NoError(t, err)
	cash, err := f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCash})
	require.NoError(t, err)

	assert.Equal(t, card.Payment.ID, cash.Payment.ID)
	assert.Equal(t, models.PaymentMethodCash, cash.Payment.Method)
	assert.Len(t, f.ledger.Payments, 1)
}

func TestProcessPayment_AnotherDinerPays(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	res, err := f.svc.ProcessPayment(ctx, bob, a.ID, settlement.PaymentRequest{
		Method:      models.PaymentMethodCard,
		SplitMethod: splitPtr(models.SplitByOrder),
	})
	require.NoError(t, err)
	assert.Equal(t, bob, res.Payment.UserID)
	assert.True(t, res.AmountToPay.Equal(dec("114")), "amount %s", res.AmountToPay)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, b := twoDiners(t, f)

	_, err := f.svc.UpdatePaymentStatus(ctx, a.ID, models.PaymentStatusPaid)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	_, err = f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{
		Method: models.PaymentMethodCard, SplitMethod: splitPtr(models.SplitPayAll),
	})
	require.NoError(t, err)

	_, err = f.svc.UpdatePaymentStatus(ctx, a.ID, "REFUNDED")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	res, err := f.svc.UpdatePaymentStatus(ctx, a.ID, models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, res.Payment.Status)

	sibling, err := f.ledger.GetOrder(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, sibling.PaymentStatus)

	_, err = f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCard})
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestPaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a, _ := twoDiners(t, f)

	view, err := f.svc.PaymentStatus(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, view.PaymentStatus)
	assert.Nil(t, view.Payment)

	_, err = f.svc.SetPaymentMethod(ctx, alice, a.ID, settlement.PaymentRequest{Method: models.PaymentMethodCash})
	require.NoError(t, err)

	view, err = f.svc.PaymentStatus(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaitingCashConfirmation, view.PaymentStatus)
	require.NotNil(t, view.Payment)
	assert.True(t, view.Payment.Amount.Equal(dec("114")))
}
