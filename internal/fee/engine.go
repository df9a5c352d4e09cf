package fee

import (
	"strings"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/shopspring/decimal"
)

// Engine resolves fee amounts for sale records. It holds only immutable
// configuration and is safe for concurrent use.
type Engine struct {
	rules Rules
}

// NewEngine creates a fee engine with the given rules.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Compute resolves every fee type for a sale record plus the total and net
// proceeds. Deterministic and side-effect free.
func (e *Engine) Compute(rec unit.SaleRecord) unit.FeeResult {
	amounts := make(map[unit.FeeType]decimal.Decimal, len(unit.AllFees))
	total := decimal.Zero

	for _, ft := range unit.AllFees {
		var amount decimal.Decimal
		switch ft {
		case unit.FeeMarketplace:
			amount = e.marketplaceFee(rec)
		case unit.FeeCheckIn:
			if e.gated(rec.ClientSource) {
				amount = passthrough(rec, ft)
			}
		default:
			amount = passthrough(rec, ft)
		}
		amounts[ft] = amount
		total = total.Add(amount)
	}

	return unit.FeeResult{
		Amounts:     amounts,
		Total:       total,
		NetProceeds: e.netProceeds(rec, total),
	}
}

// passthrough applies the general hierarchy: abs(invoiced) when present and
// non-zero, else the pre-calculated value when present and non-zero, else
// zero. The pre-calculated value is taken as-is, sign included.
func passthrough(rec unit.SaleRecord, ft unit.FeeType) decimal.Decimal {
	if inv, ok := rec.InvoicedFees[ft]; ok && !inv.IsZero() {
		return inv.Abs()
	}
	if calc, ok := rec.CalculatedFees[ft]; ok && !calc.IsZero() {
		return calc
	}
	return decimal.Zero
}

// marketplaceFee resolves the third-party marketplace fee through the full
// precedence chain: client gate, invoiced, pre-calculated, formula.
func (e *Engine) marketplaceFee(rec unit.SaleRecord) decimal.Decimal {
	if !e.gated(rec.ClientSource) {
		return decimal.Zero
	}

	if inv, ok := rec.InvoicedFees[unit.FeeMarketplace]; ok && !inv.IsZero() {
		return inv.Abs()
	}
	if calc, ok := rec.CalculatedFees[unit.FeeMarketplace]; ok && !calc.IsZero() {
		return calc
	}

	return e.formulaFee(rec)
}

// formulaFee applies the keyword rate table against sale price.
func (e *Engine) formulaFee(rec unit.SaleRecord) decimal.Decimal {
	if !rec.SalePrice.IsPositive() {
		return decimal.Zero
	}

	m := strings.ToLower(strings.TrimSpace(rec.Marketplace))

	for _, kw := range e.rules.ZeroFeeKeywords {
		if strings.Contains(m, kw) {
			return decimal.Zero
		}
	}
	if !e.b2cEligible(m, rec.AuctionFlag) {
		return decimal.Zero
	}

	rate := e.rules.StandardRate
	switch {
	case strings.Contains(m, "whatnot"):
		rate = e.rules.WhatnotRate
	case strings.Contains(m, "wish"):
		rate = e.rules.WishRate
	case strings.Contains(m, "ebay"):
		if e.electronics(rec.Category) {
			rate = e.rules.ElectronicsRate
		}
	case strings.Contains(m, "walmart") && strings.Contains(m, "marketplace"):
		if e.electronics(rec.Category) {
			rate = e.rules.ElectronicsRate
		}
	}

	return rec.SalePrice.Mul(rate).Round(2)
}

// b2cEligible applies the eligibility test: an explicit B2C auction flag is
// always eligible; otherwise excluded keywords win over eligible ones, and
// any other non-empty marketplace defaults to eligible.
func (e *Engine) b2cEligible(marketplace, auctionFlag string) bool {
	switch strings.ToLower(strings.TrimSpace(auctionFlag)) {
	case "b2c", "b2cmarketplace":
		return true
	}

	if marketplace == "" {
		return false
	}

	for _, kw := range e.rules.B2CExcludedKeywords {
		if strings.Contains(marketplace, kw) {
			return false
		}
	}
	for _, kw := range e.rules.B2CEligibleKeywords {
		if strings.Contains(marketplace, kw) {
			return true
		}
	}
	if strings.Contains(marketplace, "walmart") && strings.Contains(marketplace, "marketplace") {
		return true
	}

	return true
}

// electronics reports whether the category indicates the reduced rate.
func (e *Engine) electronics(category string) bool {
	c := strings.ToLower(category)
	for _, kw := range e.rules.ElectronicsKeywords {
		if strings.Contains(c, kw) {
			return true
		}
	}
	return false
}

// gated reports whether the client-source tag passes the WMUS gate.
func (e *Engine) gated(clientSource string) bool {
	return strings.EqualFold(strings.TrimSpace(clientSource), e.rules.ClientGate)
}

// netProceeds is the vendor plus service invoice totals when a non-zero
// vendor invoice total is present, else sale price minus total fees.
func (e *Engine) netProceeds(rec unit.SaleRecord, totalFees decimal.Decimal) decimal.Decimal {
	if !rec.VendorInvoiceTotal.IsZero() {
		return rec.VendorInvoiceTotal.Add(rec.ServiceInvoiceTotal)
	}
	return rec.SalePrice.Sub(totalFees)
}
