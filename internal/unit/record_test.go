package unit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestFieldApply(t *testing.T) {
	var f Field[string]

	if !f.Apply("first", day(10)) {
		t.Fatal("Apply on unset field should succeed")
	}
	if v, ok := f.Get(); !ok || v != "first" {
		t.Fatalf("Get() = (%q, %v), want (first, true)", v, ok)
	}

	// Older business date loses.
	if f.Apply("stale", day(5)) {
		t.Error("Apply with older asOf should not change the field")
	}
	if v, _ := f.Get(); v != "first" {
		t.Errorf("value = %q, want first after stale write", v)
	}

	// Newer business date wins.
	if !f.Apply("newer", day(15)) {
		t.Error("Apply with newer asOf should succeed")
	}
	if v, _ := f.Get(); v != "newer" {
		t.Errorf("value = %q, want newer", v)
	}

	// Same-date write wins, so the later row in file order wins ties.
	if !f.Apply("tie", day(15)) {
		t.Error("Apply with equal asOf should succeed")
	}
	if v, _ := f.Get(); v != "tie" {
		t.Errorf("value = %q, want tie", v)
	}
}

func TestFieldGet_Unset(t *testing.T) {
	var f Field[decimal.Decimal]
	if _, ok := f.Get(); ok {
		t.Error("Get() on unset field ok = true, want false")
	}
}

func TestRowImpliedStage(t *testing.T) {
	d := day(1)

	tests := []struct {
		name string
		row  Row
		want Stage
	}{
		{"no dates", Row{}, StageNone},
		{"received only", Row{ReceivedOn: &d}, StageReceived},
		{"checked in", Row{ReceivedOn: &d, CheckedInOn: &d}, StageCheckedIn},
		{"tested", Row{TestedOn: &d}, StageTested},
		{"listed", Row{ReceivedOn: &d, ListedOn: &d}, StageListed},
		{"sold wins over everything", Row{ReceivedOn: &d, ListedOn: &d, OrderClosedOn: &d}, StageSold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.ImpliedStage(); got != tt.want {
				t.Errorf("ImpliedStage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRowHasSale(t *testing.T) {
	price := decimal.NewFromInt(10)

	if (&Row{}).HasSale() {
		t.Error("empty row HasSale() = true, want false")
	}
	if !(&Row{SalePrice: &price}).HasSale() {
		t.Error("row with sale price HasSale() = false, want true")
	}
	withFees := &Row{InvoicedFees: map[FeeType]decimal.Decimal{FeeShipping: price}}
	if !withFees.HasSale() {
		t.Error("row with invoiced fees HasSale() = false, want true")
	}
}

func TestStageOrdering(t *testing.T) {
	order := Stages()
	for i := 1; i < len(order); i++ {
		if !order[i-1].Before(order[i]) {
			t.Errorf("stage %v should precede %v", order[i-1], order[i])
		}
	}
	if StageNone.String() != "None" {
		t.Errorf("StageNone.String() = %q, want None", StageNone.String())
	}
	if ParseStage("Sold") != StageSold {
		t.Error("ParseStage(Sold) != StageSold")
	}
	if ParseStage("bogus") != StageNone {
		t.Error("ParseStage(bogus) != StageNone")
	}
}

func TestFeeFieldsApply(t *testing.T) {
	var ff FeeFields

	ff.Apply(map[FeeType]decimal.Decimal{FeeCheckIn: decimal.RequireFromString("4.50")}, day(10))

	// Disjoint columns union; a stale same-column write loses.
	ff.Apply(map[FeeType]decimal.Decimal{
		FeeCheckIn:  decimal.RequireFromString("1.00"),
		FeeShipping: decimal.RequireFromString("3.25"),
	}, day(2))

	got := ff.Values()
	if !got[FeeCheckIn].Equal(decimal.RequireFromString("4.50")) {
		t.Errorf("check_in = %s, want 4.50", got[FeeCheckIn])
	}
	if !got[FeeShipping].Equal(decimal.RequireFromString("3.25")) {
		t.Errorf("shipping = %s, want 3.25", got[FeeShipping])
	}

	// Same-date write wins, matching the later-row-wins tie rule.
	ff.Apply(map[FeeType]decimal.Decimal{FeeCheckIn: decimal.RequireFromString("5.00")}, day(10))
	if got := ff.Values()[FeeCheckIn]; !got.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("check_in after same-date write = %s, want 5.00", got)
	}

	ff.Apply(nil, day(12))
	if len(ff.Values()) != 2 {
		t.Errorf("empty apply changed the family: %v", ff.Values())
	}
}

func TestFeeFieldsApply_CopyOnWrite(t *testing.T) {
	var a FeeFields
	a.Apply(map[FeeType]decimal.Decimal{FeeCheckIn: decimal.RequireFromString("4.50")}, day(10))

	b := a
	b.Apply(map[FeeType]decimal.Decimal{FeeMarketplace: decimal.RequireFromString("9.99")}, day(11))

	if _, ok := a.Values()[FeeMarketplace]; ok {
		t.Error("applying to a copied family mutated the original map")
	}
}
