// Package pricing computes line-item prices, shipping fees, and tax.
// All amounts are int64 cents; rounding happens once, at the tax line,
// half-up at the cent.
package pricing

import (
	"math"

	"shopcore/backend/internal/apperr"
	"shopcore/backend/internal/domain"
)

type Engine struct {
	TaxRatePercent             float64
	StandardShippingCents      int64
	ExpressShippingCents       int64
	FreeShippingThresholdCents int64
}

type Totals struct {
	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	TotalCents    int64
}

func Default() Engine {
	return Engine{
		TaxRatePercent:             16,
		StandardShippingCents:      15000,
		ExpressShippingCents:       25000,
		FreeShippingThresholdCents: 99900,
	}
}

// UnitPriceCents resolves the effective unit price: sale price when one is
// set, base price otherwise.
func UnitPriceCents(product domain.Product) int64 {
	if product.SalePriceCents != nil && *product.SalePriceCents > 0 {
		return *product.SalePriceCents
	}
	return product.PriceCents
}

// ShippingCents returns the web shipping fee for the given method. The
// standard fee is waived entirely once the subtotal exceeds the
// free-shipping threshold; the express fee always applies.
func (e Engine) ShippingCents(method string, subtotalCents int64) (int64, error) {
	switch method {
	case domain.ShippingExpress:
		return e.ExpressShippingCents, nil
	case domain.ShippingStandard:
		if subtotalCents > e.FreeShippingThresholdCents {
			return 0, nil
		}
		return e.StandardShippingCents, nil
	default:
		return 0, apperr.Validation("unsupported shipping method %q", method)
	}
}

// QuoteWeb computes totals for a web sale. Shipping is part of the tax base.
func (e Engine) QuoteWeb(subtotalCents int64, shippingCents int64) Totals {
	basis := subtotalCents + shippingCents
	tax := e.taxCents(basis)
	return Totals{
		SubtotalCents: subtotalCents,
		ShippingCents: shippingCents,
		TaxCents:      tax,
		TotalCents:    basis + tax,
	}
}

// QuotePos computes totals for an in-store sale: no shipping, tax on the
// subtotal alone.
func (e Engine) QuotePos(subtotalCents int64) Totals {
	tax := e.taxCents(subtotalCents)
	return Totals{
		SubtotalCents: subtotalCents,
		TaxCents:      tax,
		TotalCents:    subtotalCents + tax,
	}
}

func (e Engine) taxCents(basisCents int64) int64 {
	return int64(math.Round(float64(basisCents) * e.TaxRatePercent / 100))
}
