package report

import (
	"strings"
	"testing"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/shopspring/decimal"
)

func TestLoadExpectedFees(t *testing.T) {
	input := strings.Join([]string{
		`TRGID,Check In,Testing,Listing,Refurb,Fulfillment,Shipping,Storage,Disposition,Marketplace,Payment,Returns`,
		``,
		`TRG001,$1.25,"$1,000.50",0,0,2.00,(3.50),0.75,0,17.00,1.10,0`,
		`="TRG002",n/a,0,0,0,0,0,0,0,8%,0,0`,
		`TRG003,1.00,2.00`,
	}, "\n")

	ref, err := LoadExpectedFees(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadExpectedFees() error = %v", err)
	}

	if len(ref) != 2 {
		t.Fatalf("got %d reference rows, want 2 (header and short row skipped)", len(ref))
	}

	fees, ok := ref["TRG001"]
	if !ok {
		t.Fatal("TRG001 missing from reference")
	}
	checks := []struct {
		ft   unit.FeeType
		want string
	}{
		{unit.FeeCheckIn, "1.25"},
		{unit.FeeTesting, "1000.50"},
		{unit.FeeFulfillment, "2.00"},
		{unit.FeeShipping, "-3.50"},
		{unit.FeeStorage, "0.75"},
		{unit.FeeMarketplace, "17.00"},
		{unit.FeePaymentProcessing, "1.10"},
		{unit.FeeReturnsProcessing, "0"},
	}
	for _, c := range checks {
		if got := fees[c.ft]; !got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("TRG001 %s = %s, want %s", c.ft, got, c.want)
		}
	}

	// Excel-prefixed trgid is cleaned; unparsable cells default to zero.
	fees, ok = ref["TRG002"]
	if !ok {
		t.Fatal("TRG002 missing from reference (Excel prefix not cleaned)")
	}
	if !fees[unit.FeeCheckIn].IsZero() {
		t.Errorf("TRG002 check_in = %s, want 0 for unparsable cell", fees[unit.FeeCheckIn])
	}
	if !fees[unit.FeeMarketplace].Equal(decimal.NewFromInt(8)) {
		t.Errorf("TRG002 marketplace = %s, want 8", fees[unit.FeeMarketplace])
	}
}

func TestLoadExpectedFees_Empty(t *testing.T) {
	ref, err := LoadExpectedFees(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadExpectedFees() error = %v", err)
	}
	if len(ref) != 0 {
		t.Errorf("got %d rows, want 0", len(ref))
	}
}
