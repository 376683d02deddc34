// Package billing implements the financial arithmetic behind invoices:
// per-line pricing, document aggregation and grand-total rounding.
//
// All money values are decimal.Decimal and every intermediate result is
// rounded to two decimal places with half-away-from-zero semantics before
// it feeds the next step. Functions here are pure and never validate their
// input; callers are expected to run DTO validation first.
package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// API responses carry amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

var hundred = decimal.NewFromInt(100)

// RoundingMode selects how the grand total is adjusted to a whole amount.
type RoundingMode string

const (
	RoundingNone    RoundingMode = "none"
	RoundingNearest RoundingMode = "nearest"
	RoundingUp      RoundingMode = "up"
	RoundingDown    RoundingMode = "down"
)

// ParseRoundingMode maps a request value to a RoundingMode. The empty
// string means no rounding; anything unrecognised reports false.
func ParseRoundingMode(s string) (RoundingMode, bool) {
	switch s {
	case "":
		return RoundingNone, true
	case string(RoundingNone):
		return RoundingNone, true
	case string(RoundingNearest):
		return RoundingNearest, true
	case string(RoundingUp):
		return RoundingUp, true
	case string(RoundingDown):
		return RoundingDown, true
	}
	return RoundingNone, false
}

// LineItemInput is a single invoice line as submitted by the caller.
type LineItemInput struct {
	ProductID       *uuid.UUID      `json:"productId,omitempty"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku,omitempty"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Quantity        decimal.Decimal `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxRate         decimal.Decimal `json:"gstRate"`
}

// LineItem is a priced invoice line with all derived amounts.
type LineItem struct {
	LineItemInput

	LineSubtotal  decimal.Decimal `json:"lineSubtotal"`
	ItemDiscount  decimal.Decimal `json:"itemDiscount"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	TaxAmount     decimal.Decimal `json:"gstAmount"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
}

// Totals holds the document-level amounts of an invoice.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	TotalTax      decimal.Decimal `json:"totalGST"`
	Shipping      decimal.Decimal `json:"shipping"`
	Rounding      decimal.Decimal `json:"rounding"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PriceLineItem derives all amounts for one line. Each intermediate value
// is rounded to two decimals before the next step uses it, so the stored
// fields always satisfy lineTotal = taxableAmount + gstAmount exactly.
func PriceLineItem(in LineItemInput) LineItem {
	lineSubtotal := round2(in.UnitPrice.Mul(in.Quantity))
	itemDiscount := round2(lineSubtotal.Mul(in.DiscountPercent).Div(hundred))
	taxableAmount := round2(lineSubtotal.Sub(itemDiscount))
	taxAmount := round2(taxableAmount.Mul(in.TaxRate).Div(hundred))
	lineTotal := round2(taxableAmount.Add(taxAmount))

	return LineItem{
		LineItemInput: in,
		LineSubtotal:  lineSubtotal,
		ItemDiscount:  itemDiscount,
		TaxableAmount: taxableAmount,
		TaxAmount:     taxAmount,
		LineTotal:     lineTotal,
	}
}

// AggregateTotals folds priced lines into document totals. The per-line
// amounts are already rounded, so each sum is rounded once after the fold
// rather than per addition.
func AggregateTotals(items []LineItem, shipping, rounding decimal.Decimal) Totals {
	var subtotal, discount, tax decimal.Decimal
	for _, it := range items {
		subtotal = subtotal.Add(it.LineSubtotal)
		discount = discount.Add(it.ItemDiscount)
		tax = tax.Add(it.TaxAmount)
	}
	subtotal = round2(subtotal)
	discount = round2(discount)
	tax = round2(tax)
	shipping = round2(shipping)
	rounding = round2(rounding)

	grand := round2(subtotal.Sub(discount).Add(tax).Add(shipping).Add(rounding))

	return Totals{
		Subtotal:      subtotal,
		TotalDiscount: discount,
		TotalTax:      tax,
		Shipping:      shipping,
		Rounding:      rounding,
		GrandTotal:    grand,
	}
}

// RoundingAdjustment computes the signed amount that brings the given
// grand total to a whole number under the requested mode. RoundingNone
// always yields zero.
func RoundingAdjustment(amount decimal.Decimal, mode RoundingMode) decimal.Decimal {
	var target decimal.Decimal
	switch mode {
	case RoundingNearest:
		target = amount.Round(0)
	case RoundingUp:
		target = amount.Ceil()
	case RoundingDown:
		target = amount.Floor()
	default:
		return decimal.Zero
	}
	return round2(target.Sub(amount))
}

// FinalizeTotals aggregates twice: first without any rounding line to find
// the provisional grand total, then again with the adjustment that mode
// derives from it. With RoundingNone the provisional totals are returned
// unchanged.
func FinalizeTotals(items []LineItem, shipping decimal.Decimal, mode RoundingMode) Totals {
	provisional := AggregateTotals(items, shipping, decimal.Zero)
	if mode == RoundingNone || mode == "" {
		return provisional
	}
	adj := RoundingAdjustment(provisional.GrandTotal, mode)
	return AggregateTotals(items, shipping, adj)
}
