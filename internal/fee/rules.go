// Package fee implements the fee rule engine: given a unit's sale record it
// resolves one amount per fee type through a strict precedence hierarchy
// (invoiced value, pre-calculated value, formula, zero) and derives the fee
// total and net proceeds. The engine is pure; all rate tables and keyword
// lists live in an immutable Rules value so the rules are independently
// testable.
package fee

import "github.com/shopspring/decimal"

// Rules is the immutable configuration for the fee engine.
type Rules struct {
	// ClientGate is the client-source tag required for the check-in fee and
	// the marketplace fee. Units from any other client always resolve those
	// fees to zero.
	ClientGate string

	// Formula rates applied against sale price when neither an invoiced nor
	// a pre-calculated marketplace fee is present.
	WhatnotRate     decimal.Decimal
	WishRate        decimal.Decimal
	StandardRate    decimal.Decimal
	ElectronicsRate decimal.Decimal

	// ElectronicsKeywords switch eBay / Walmart marketplace sales to the
	// reduced electronics rate when the category matches.
	ElectronicsKeywords []string

	// ZeroFeeKeywords name marketplaces that never carry a formula fee.
	ZeroFeeKeywords []string

	// B2C eligibility keyword lists. Exclusion is checked before eligibility.
	B2CExcludedKeywords []string
	B2CEligibleKeywords []string
}

// DefaultRules returns the production rule set. This is the later, detailed
// revision of the formula rules: the reduced electronics rate applies to
// eBay and Walmart marketplace sales, and the exclusion list covers the B2B
// and transfer channels.
func DefaultRules() Rules {
	return Rules{
		ClientGate:      "WMUS",
		WhatnotRate:     decimal.NewFromFloat(0.17),
		WishRate:        decimal.NewFromFloat(0.20),
		StandardRate:    decimal.NewFromFloat(0.12),
		ElectronicsRate: decimal.NewFromFloat(0.08),
		ElectronicsKeywords: []string{
			"electronic", "tv", "computer", "phone",
		},
		ZeroFeeKeywords: []string{
			"dsv", "in store",
		},
		B2CExcludedKeywords: []string{
			"directliquidation", "dl", "gowholesale", "manual", "dsv",
			"transfer", "in store", "b2b", "wholesale", "pallet", "truckload",
		},
		B2CEligibleKeywords: []string{
			"ebay", "amazon", "whatnot", "wish", "shopify", "vipoutlet",
			"flashfindz",
		},
	}
}
