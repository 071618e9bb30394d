package checkout

import (
	"github.com/shopspring/decimal"

	"foodexplorer/internal/domain"
)

// Pricing is the mocked price list: every unit costs the same.
type Pricing struct {
	UnitPrice        decimal.Decimal
	TaxRate          decimal.Decimal
	ShippingFee      decimal.Decimal
	FreeShippingOver decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		UnitPrice:        decimal.NewFromInt(240),
		TaxRate:          decimal.RequireFromString("0.08"),
		ShippingFee:      decimal.NewFromInt(300),
		FreeShippingOver: decimal.NewFromInt(2000),
	}
}

type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// LineTotal is quantity times the unit price.
func (p Pricing) LineTotal(line domain.CartLine) decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// Summarize prices items. Shipping is waived only when the subtotal is
// strictly above the threshold.
func (p Pricing) Summarize(items []domain.CartLine) Summary {
	subtotal := decimal.Zero
	for _, line := range items {
		subtotal = subtotal.Add(p.LineTotal(line))
	}
	tax := subtotal.Mul(p.TaxRate)
	shipping := p.ShippingFee
	if subtotal.GreaterThan(p.FreeShippingOver) {
		shipping = decimal.Zero
	}
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
