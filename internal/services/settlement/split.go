package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

type TableTotals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
	TaxRate   decimal.Decimal `json:"taxRate"`
}

type UserTotals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

type SplitOptions struct {
	ByOrder decimal.Decimal `json:"byOrder"`
	Evenly  decimal.Decimal `json:"evenly"`
	PayAll  decimal.Decimal `json:"payAll"`
}

// Summary holds the session-wide and per-diner totals a split is derived from.
type Summary struct {
	Table     TableTotals
	User      UserTotals
	UserCount int
}

type SplitResult struct {
	Method        models.SplitMethod `json:"splitMethod"`
	AmountToPay   decimal.Decimal    `json:"amountToPay"`
	AttributedTax decimal.Decimal    `json:"taxAmount"`
	Description   string             `json:"splitDescription"`
	TableTotals   TableTotals        `json:"tableTotals"`
	UserTotals    UserTotals         `json:"userTotals"`
	UserCount     int                `json:"userCount"`
}

var errNoDiners = apperrors.Conflict("table session has no orders to split")

func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Summarize totals every order in the session and the subset placed by userID.
func Summarize(orders []models.Order, taxRate decimal.Decimal, userID string) Summary {
	subtotal := decimal.Zero
	userSubtotal := decimal.Zero
	diners := make(map[string]struct{}, len(orders))

	for _, o := range orders {
		subtotal = subtotal.Add(o.Total)
		if o.UserID == userID {
			userSubtotal = userSubtotal.Add(o.Total)
		}
		diners[o.UserID] = struct{}{}
	}

	taxAmount := subtotal.Mul(taxRate)
	userTax := userSubtotal.Mul(taxRate)

	return Summary{
		Table: TableTotals{
			Subtotal:  subtotal,
			TaxAmount: taxAmount,
			Total:     subtotal.Add(taxAmount),
			TaxRate:   taxRate,
		},
		User: UserTotals{
			Subtotal:  userSubtotal,
			TaxAmount: userTax,
			Total:     userSubtotal.Add(userTax),
		},
		UserCount: len(diners),
	}
}

// Options lists what the requesting diner would owe under each method. An
// empty session owes nothing evenly.
func (s Summary) Options() SplitOptions {
	evenly := decimal.Zero
	if s.UserCount > 0 {
		evenly = s.Table.Total.Div(decimal.NewFromInt(int64(s.UserCount)))
	}
	return SplitOptions{
		ByOrder: roundCents(s.User.Total),
		Evenly:  roundCents(evenly),
		PayAll:  roundCents(s.Table.Total),
	}
}

// ComputeSplit works out what userID owes under method, given every order in
// the table session. It has no side effects.
func ComputeSplit(orders []models.Order, taxRate decimal.Decimal, method models.SplitMethod, userID string) (SplitResult, error) {
	if !method.Valid() {
		return SplitResult{}, apperrors.Newf(apperrors.CodeInvalidInput, "invalid split method %q", method)
	}

	s := Summarize(orders, taxRate, userID)
	if s.UserCount == 0 {
		return SplitResult{}, errNoDiners
	}

	res := SplitResult{
		Method:      method,
		TableTotals: s.Table,
		UserTotals:  s.User,
		UserCount:   s.UserCount,
	}

	switch method {
	case models.SplitByOrder:
		res.AmountToPay = s.User.Total
		res.AttributedTax = s.User.TaxAmount
		res.Description = "Paying for your orders only"
	case models.SplitEvenly:
		n := decimal.NewFromInt(int64(s.UserCount))
		res.AmountToPay = s.Table.Total.Div(n)
		res.AttributedTax = s.Table.TaxAmount.Div(n)
		res.Description = fmt.Sprintf("Split evenly between %d diners", s.UserCount)
	case models.SplitPayAll:
		res.AmountToPay = s.Table.Total
		res.AttributedTax = s.Table.TaxAmount
		res.Description = "Paying for the entire table"
	}

	res.AmountToPay = roundCents(res.AmountToPay)
	res.AttributedTax = roundCents(res.AttributedTax)
	return res, nil
}
