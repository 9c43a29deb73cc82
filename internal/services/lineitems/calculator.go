// Package lineitems computes line and invoice totals in integer cents.
package lineitems

import (
	"errors"
	"math"

	"invoice-manager-backend/internal/models"

	"github.com/shopspring/decimal"
)

// MaxAmount bounds a quantity or a unit price.
const MaxAmount = math.MaxUint32

var ErrOverflow = errors.New("lineitems: total exceeds the representable range")

// Input is one requested line. A nil Quantity or PriceUnitCents counts as 0.
type Input struct {
	Name           string
	Quantity       *int64
	PriceUnitCents *int64
}

type Result struct {
	Items      []models.LineItem
	TotalCents int64
}

// Calculate prices every line and sums the invoice total. It fails with
// ErrOverflow instead of wrapping when a product or the sum does not fit.
func Calculate(inputs []Input) (Result, error) {
	res := Result{Items: make([]models.LineItem, 0, len(inputs))}
	for _, in := range inputs {
		var qty, price int64
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		if in.PriceUnitCents != nil {
			price = *in.PriceUnitCents
		}

		lineTotal, ok := mul(qty, price)
		if !ok {
			return Result{}, ErrOverflow
		}
		res.Items = append(res.Items, models.LineItem{
			Name:            in.Name,
			Quantity:        qty,
			PriceUnitCents:  price,
			PriceTotalCents: lineTotal,
		})
	}

	total, err := Total(res.Items)
	if err != nil {
		return Result{}, err
	}
	res.TotalCents = total
	return res, nil
}

// Total sums price_total_cents of already computed items.
func Total(items []models.LineItem) (int64, error) {
	var total int64
	for _, it := range items {
		if it.PriceTotalCents < 0 || total > math.MaxInt64-it.PriceTotalCents {
			return 0, ErrOverflow
		}
		total += it.PriceTotalCents
	}
	return total, nil
}

func mul(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

// FormatCents renders 22000 as "220.00".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
