package fee

import (
	"testing"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func wmusSale(price string, marketplace string) unit.SaleRecord {
	return unit.SaleRecord{
		TRGID:        "TRG001",
		SalePrice:    dec(price),
		Marketplace:  marketplace,
		ClientSource: "WMUS",
	}
}

func TestPassthroughPrecedence(t *testing.T) {
	engine := NewEngine(DefaultRules())

	tests := []struct {
		name     string
		invoiced string
		calc     string
		want     string
	}{
		{"invoiced wins", "-12.50", "3.00", "12.50"},     // abs of invoiced
		{"calc when no invoiced", "", "3.00", "3.00"},    // taken as-is
		{"negative calc kept", "", "-3.00", "-3.00"},     // sign preserved
		{"zero invoiced falls through", "0", "4.25", "4.25"},
		{"nothing present", "", "", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := wmusSale("100", "eBay")
			rec.InvoicedFees = map[unit.FeeType]decimal.Decimal{}
			rec.CalculatedFees = map[unit.FeeType]decimal.Decimal{}
			if tt.invoiced != "" {
				rec.InvoicedFees[unit.FeeTesting] = dec(tt.invoiced)
			}
			if tt.calc != "" {
				rec.CalculatedFees[unit.FeeTesting] = dec(tt.calc)
			}

			got := engine.Compute(rec).Amount(unit.FeeTesting)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("testing fee = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheckInFee_ClientGate(t *testing.T) {
	engine := NewEngine(DefaultRules())

	rec := wmusSale("100", "eBay")
	rec.InvoicedFees = map[unit.FeeType]decimal.Decimal{unit.FeeCheckIn: dec("2.00")}

	if got := engine.Compute(rec).Amount(unit.FeeCheckIn); !got.Equal(dec("2.00")) {
		t.Errorf("WMUS check-in fee = %s, want 2.00", got)
	}

	rec.ClientSource = "OTHER"
	if got := engine.Compute(rec).Amount(unit.FeeCheckIn); !got.IsZero() {
		t.Errorf("non-WMUS check-in fee = %s, want 0", got)
	}

	// Other passthrough fees are not gated.
	rec.InvoicedFees[unit.FeeStorage] = dec("1.25")
	if got := engine.Compute(rec).Amount(unit.FeeStorage); !got.Equal(dec("1.25")) {
		t.Errorf("non-WMUS storage fee = %s, want 1.25", got)
	}
}

func TestMarketplaceFee_Formula(t *testing.T) {
	engine := NewEngine(DefaultRules())

	tests := []struct {
		name        string
		marketplace string
		category    string
		price       string
		want        string
	}{
		{"whatnot 17 percent", "WhatNot", "", "100", "17"},
		{"wish 20 percent", "Wish", "", "100", "20"},
		{"ebay standard", "eBay", "Toys", "100", "12"},
		{"ebay electronics", "eBay", "Smart TV", "100", "8"},
		{"walmart marketplace standard", "Walmart Marketplace", "Home", "50", "6"},
		{"walmart marketplace electronics", "Walmart Marketplace", "Computer Parts", "50", "4"},
		{"amazon standard", "Amazon", "", "100", "12"},
		{"dsv zero fee", "Walmart DSV", "", "100", "0"},
		{"in store zero fee", "Walmart In Store", "", "100", "0"},
		{"rounding", "eBay", "", "19.99", "2.4"}, // 19.99 * 0.12 = 2.3988 -> 2.40
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := wmusSale(tt.price, tt.marketplace)
			rec.Category = tt.category

			got := engine.Compute(rec).Amount(unit.FeeMarketplace)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("marketplace fee = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMarketplaceFee_Gate(t *testing.T) {
	engine := NewEngine(DefaultRules())

	rec := wmusSale("100", "eBay")
	rec.ClientSource = "somebody else"
	rec.InvoicedFees = map[unit.FeeType]decimal.Decimal{unit.FeeMarketplace: dec("15.00")}

	if got := engine.Compute(rec).Amount(unit.FeeMarketplace); !got.IsZero() {
		t.Errorf("non-WMUS marketplace fee = %s, want 0 even with invoiced value", got)
	}
}

func TestMarketplaceFee_InvoicedBeatsFormula(t *testing.T) {
	engine := NewEngine(DefaultRules())

	rec := wmusSale("100", "WhatNot")
	rec.InvoicedFees = map[unit.FeeType]decimal.Decimal{unit.FeeMarketplace: dec("-9.99")}

	if got := engine.Compute(rec).Amount(unit.FeeMarketplace); !got.Equal(dec("9.99")) {
		t.Errorf("marketplace fee = %s, want 9.99 (abs of invoiced)", got)
	}
}

func TestFormulaFee_RequiresPositivePrice(t *testing.T) {
	engine := NewEngine(DefaultRules())

	for _, price := range []string{"0", "-10"} {
		rec := wmusSale(price, "eBay")
		if got := engine.Compute(rec).Amount(unit.FeeMarketplace); !got.IsZero() {
			t.Errorf("price %s: marketplace fee = %s, want 0", price, got)
		}
	}
}

func TestB2CEligibility(t *testing.T) {
	engine := NewEngine(DefaultRules())

	tests := []struct {
		name        string
		marketplace string
		auctionFlag string
		want        bool
	}{
		{"explicit b2c flag", "", "B2C", true},
		{"b2cmarketplace flag", "anything", "B2CMarketplace", true},
		{"empty marketplace", "", "", false},
		{"excluded wholesale", "gowholesale", "", false},
		{"excluded b2b", "b2b bulk", "", false},
		{"excluded transfer", "transfer out", "", false},
		{"eligible ebay", "ebay", "", true},
		{"exclusion beats eligibility", "manual ebay", "", false},
		{"unknown defaults eligible", "mercari", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.b2cEligible(tt.marketplace, tt.auctionFlag); got != tt.want {
				t.Errorf("b2cEligible(%q, %q) = %v, want %v", tt.marketplace, tt.auctionFlag, got, tt.want)
			}
		})
	}
}

func TestNetProceeds(t *testing.T) {
	engine := NewEngine(DefaultRules())

	// No vendor invoice: sale price minus total fees.
	rec := wmusSale("100", "eBay")
	res := engine.Compute(rec)
	want := dec("100").Sub(res.Total)
	if !res.NetProceeds.Equal(want) {
		t.Errorf("NetProceeds = %s, want %s", res.NetProceeds, want)
	}

	// Vendor invoice present: vendor plus service totals win.
	rec.VendorInvoiceTotal = dec("80")
	rec.ServiceInvoiceTotal = dec("-5")
	res = engine.Compute(rec)
	if !res.NetProceeds.Equal(dec("75")) {
		t.Errorf("NetProceeds = %s, want 75", res.NetProceeds)
	}
}

func TestComputeTotal(t *testing.T) {
	engine := NewEngine(DefaultRules())

	rec := wmusSale("100", "eBay")
	rec.InvoicedFees = map[unit.FeeType]decimal.Decimal{
		unit.FeeCheckIn:  dec("2.00"),
		unit.FeeShipping: dec("5.50"),
	}

	res := engine.Compute(rec)
	// check-in 2.00 + shipping 5.50 + marketplace formula 12.00
	if !res.Total.Equal(dec("19.50")) {
		t.Errorf("Total = %s, want 19.50", res.Total)
	}
	if len(res.Amounts) != len(unit.AllFees) {
		t.Errorf("Amounts has %d entries, want %d", len(res.Amounts), len(unit.AllFees))
	}
}
