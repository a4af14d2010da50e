package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func order(userID, total string) models.Order {
	return models.Order{ID: userID + "-" + total, UserID: userID, Total: dec(total)}
}

func TestComputeSplit_TwoDiners(t *testing.T) {
	orders := []models.Order{order("alice", "100"), order("bob", "200")}
	rate := dec("0.14")

	tests := []struct {
		method models.SplitMethod
		amount string
		tax    string
		desc   string
	}{
		{models.SplitByOrder, "114", "14", "Paying for your orders only"},
		{models.SplitEvenly, "171", "21", "Split evenly between 2 diners"},
		{models.SplitPayAll, "342", "42", "Paying for the entire table"},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			res, err := ComputeSplit(orders, rate, tt.method, "alice")
			require.NoError(t, err)

			assert.True(t, res.AmountToPay.Equal(dec(tt.amount)), "amount %s", res.AmountToPay)
			assert.True(t, res.AttributedTax.Equal(dec(tt.tax)), "tax %s", res.AttributedTax)
			assert.Equal(t, tt.desc, res.Description)
			assert.Equal(t, 2, res.UserCount)
			assert.True(t, res.TableTotals.Total.Equal(dec("342")))
			assert.True(t, res.UserTotals.Subtotal.Equal(dec("100")))
		})
	}
}

func TestComputeSplit_UnknownMethod(t *testing.T) {
	_, err := ComputeSplit([]models.Order{order("alice", "10")}, dec("0.14"), "SPLIT_BY_MAGIC", "alice")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestComputeSplit_NoDiners(t *testing.T) {
	_, err := ComputeSplit(nil, dec("0.14"), models.SplitEvenly, "alice")
	require.ErrorIs(t, err, errNoDiners)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestComputeSplit_PayAllIgnoresRequester(t *testing.T) {
	orders := []models.Order{order("alice", "12.50"), order("bob", "7.25"), order("bob", "3")}
	rate := dec("0.1")

	a, err := ComputeSplit(orders, rate, models.SplitPayAll, "alice")
	require.NoError(t, err)
	stranger, err := ComputeSplit(orders, rate, models.SplitPayAll, "someone-else")
	require.NoError(t, err)

	assert.True(t, a.AmountToPay.Equal(stranger.AmountToPay))
	assert.True(t, a.AmountToPay.Equal(dec("25.03")), "got %s", a.AmountToPay)
}

func TestComputeSplit_ByOrderIndependentOfOthers(t *testing.T) {
	rate := dec("0.14")
	alone, err := ComputeSplit([]models.Order{order("alice", "40")}, rate, models.SplitByOrder, "alice")
	require.NoError(t, err)

	crowded, err := ComputeSplit([]models.Order{
		order("alice", "40"), order("bob", "999.99"), order("carol", "5"),
	}, rate, models.SplitByOrder, "alice")
	require.NoError(t, err)

	assert.True(t, alone.AmountToPay.Equal(crowded.AmountToPay))
	assert.True(t, crowded.AmountToPay.Equal(dec("45.6")))
}

func TestComputeSplit_EvenSharesCoverTotal(t *testing.T) {
	orders := []models.Order{order("a", "10"), order("b", "10"), order("c", "13.33")}
	rate := dec("0.14")

	res, err := ComputeSplit(orders, rate, models.SplitEvenly, "a")
	require.NoError(t, err)

	sum := res.AmountToPay.Mul(decimal.NewFromInt(3))
	expected := dec("33.33").Mul(dec("1.14"))
	assert.True(t, sum.Sub(expected).Abs().LessThanOrEqual(dec("0.03")),
		"shares %s vs total %s", sum, expected)
}

func TestComputeSplit_Repeatable(t *testing.T) {
	orders := []models.Order{order("alice", "19.99"), order("bob", "5.01")}
	first, err := ComputeSplit(orders, dec("0.14"), models.SplitEvenly, "bob")
	require.NoError(t, err)
	second, err := ComputeSplit(orders, dec("0.14"), models.SplitEvenly, "bob")
	require.NoError(t, err)
	assert.True(t, first.AmountToPay.Equal(second.AmountToPay))
	assert.True(t, first.AttributedTax.Equal(second.AttributedTax))
	assert.Equal(t, first.Description, second.Description)
}

func TestSummarize_EmptySession(t *testing.T) {
	s := Summarize(nil, dec("0.14"), "alice")
	assert.Equal(t, 0, s.UserCount)

	opts := s.Options()
	assert.True(t, opts.Evenly.IsZero())
	assert.True(t, opts.ByOrder.IsZero())
	assert.True(t, opts.PayAll.IsZero())
}

func TestSummarize_Options(t *testing.T) {
	s := Summarize([]models.Order{order("alice", "100"), order("bob", "200")}, dec("0.14"), "bob")
	opts := s.Options()
	assert.True(t, opts.ByOrder.Equal(dec("228")))
	assert.True(t, opts.Evenly.Equal(dec("171")))
	assert.True(t, opts.PayAll.Equal(dec("342")))
}
