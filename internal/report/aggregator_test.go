package report

import (
	"context"
	"testing"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/fee"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/store"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestAggregator(t *testing.T) (*Aggregator, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return NewAggregator(st, fee.NewEngine(fee.DefaultRules())), st
}

// soldUnit records a WMUS sale on WhatNot, so the fee engine computes a
// 17% marketplace fee and nothing else.
func soldUnit(trgid, price string, closed time.Time) *unit.UnitRecord {
	now := time.Now().UTC()
	rec := &unit.UnitRecord{TRGID: trgid, Stage: unit.StageSold}
	rec.SalePrice.Apply(dec(price), now)
	rec.Marketplace.Apply("WhatNot", now)
	rec.ClientSource.Apply("WMUS", now)
	rec.OrderClosedOn.Apply(closed, now)
	return rec
}

func TestFunnel_CumulativeCounts(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	st.PutUnit(ctx, &unit.UnitRecord{TRGID: "A", Stage: unit.StageReceived})
	st.PutUnit(ctx, &unit.UnitRecord{TRGID: "B", Stage: unit.StageCheckedIn})
	st.PutUnit(ctx, &unit.UnitRecord{TRGID: "C", Stage: unit.StageSold})

	got, err := agg.Funnel(ctx)
	if err != nil {
		t.Fatalf("Funnel() error = %v", err)
	}

	want := map[string]int{
		"Received":  3,
		"CheckedIn": 2,
		"Tested":    1,
		"Listed":    1,
		"Sold":      1,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d stages, want %d", len(got), len(want))
	}
	for _, fc := range got {
		if fc.Units != want[fc.Stage] {
			t.Errorf("stage %q = %d units, want %d", fc.Stage, fc.Units, want[fc.Stage])
		}
	}
}

func TestWeeklyTrend(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Mar 5 and Mar 6 2024 fall in fiscal week 9; Apr 10 in week 14.
	a := soldUnit("A", "100.00", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	a.EffectiveRetail.Apply(dec("200.00"), now)
	b := soldUnit("B", "50.00", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC))
	b.EffectiveRetail.Apply(dec("100.00"), now)
	b.RefundAmount.Apply(dec("5.00"), now)
	c := soldUnit("C", "25.00", time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))

	// Listed units never enter the trend, nor do sold units with no
	// order-closed date.
	st.PutUnit(ctx, &unit.UnitRecord{TRGID: "D", Stage: unit.StageListed})
	st.PutUnit(ctx, &unit.UnitRecord{TRGID: "E", Stage: unit.StageSold})
	st.PutUnit(ctx, a)
	st.PutUnit(ctx, b)
	st.PutUnit(ctx, c)

	got, err := agg.WeeklyTrend(ctx)
	if err != nil {
		t.Fatalf("WeeklyTrend() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d buckets, want 2", len(got))
	}

	wk9 := got[0]
	if wk9.FiscalYear != 2024 || wk9.Week != 9 {
		t.Fatalf("first bucket = year %d week %d, want 2024/9", wk9.FiscalYear, wk9.Week)
	}
	if wk9.Units != 2 {
		t.Errorf("week 9 units = %d, want 2", wk9.Units)
	}
	if !wk9.GrossSales.Equal(dec("150.00")) {
		t.Errorf("week 9 gross sales = %s, want 150.00", wk9.GrossSales)
	}
	if !wk9.RefundTotal.Equal(dec("5.00")) {
		t.Errorf("week 9 refund total = %s, want 5.00", wk9.RefundTotal)
	}
	// 150 / 300 of effective retail.
	if !wk9.RecoveryRate.Equal(dec("0.5")) {
		t.Errorf("week 9 recovery rate = %s, want 0.5", wk9.RecoveryRate)
	}

	wk14 := got[1]
	if wk14.Week != 14 || wk14.Units != 1 {
		t.Errorf("second bucket = week %d with %d units, want week 14 with 1", wk14.Week, wk14.Units)
	}
	// No retail value known for the bucket.
	if !wk14.RecoveryRate.IsZero() {
		t.Errorf("week 14 recovery rate = %s, want 0", wk14.RecoveryRate)
	}
}

func TestQuarterlyTrend(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	st.PutUnit(ctx, soldUnit("A", "100.00", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	st.PutUnit(ctx, soldUnit("B", "50.00", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))
	st.PutUnit(ctx, soldUnit("C", "25.00", time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)))

	got, err := agg.QuarterlyTrend(ctx)
	if err != nil {
		t.Fatalf("QuarterlyTrend() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d buckets, want 2", len(got))
	}
	if got[0].Quarter != 1 || got[0].Units != 2 {
		t.Errorf("first bucket = Q%d with %d units, want Q1 with 2", got[0].Quarter, got[0].Units)
	}
	if got[1].Quarter != 2 || got[1].Units != 1 {
		t.Errorf("second bucket = Q%d with %d units, want Q2 with 1", got[1].Quarter, got[1].Units)
	}
}

func findFee(t *testing.T, uv UnitVariance, ft unit.FeeType) FeeVariance {
	t.Helper()
	for _, fv := range uv.Fees {
		if fv.FeeType == ft {
			return fv
		}
	}
	t.Fatalf("fee type %s missing from variance row", ft)
	return FeeVariance{}
}

func TestVariance(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	// Computed marketplace fee for A is 17% of 100.00 = 17.00; every other
	// computed fee is 0.
	st.PutUnit(ctx, soldUnit("A", "100.00", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	st.PutUnit(ctx, soldUnit("B", "10.00", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))

	ref := ExpectedFeeReference{
		"A": {
			unit.FeeMarketplace: dec("16.50"), // computed 17.00: ~3% off
			unit.FeeCheckIn:     dec("1.00"),  // computed 0: mismatch
		},
	}

	got, err := agg.Variance(ctx, ref)
	if err != nil {
		t.Fatalf("Variance() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d variance rows, want 2", len(got))
	}

	byID := map[string]UnitVariance{}
	for _, uv := range got {
		byID[uv.TRGID] = uv
	}

	a := byID["A"]
	if len(a.Fees) != len(unit.AllFees) {
		t.Fatalf("A has %d fee rows, want %d", len(a.Fees), len(unit.AllFees))
	}

	mkt := findFee(t, a, unit.FeeMarketplace)
	if mkt.Class != VarianceClose {
		t.Errorf("marketplace class = %s, want close (pct diff %s)", mkt.Class, mkt.PctDiff)
	}
	if !mkt.Computed.Equal(dec("17.00")) {
		t.Errorf("marketplace computed = %s, want 17.00", mkt.Computed)
	}

	checkIn := findFee(t, a, unit.FeeCheckIn)
	if checkIn.Class != VarianceMismatch {
		t.Errorf("check_in class = %s, want mismatch", checkIn.Class)
	}
	if !checkIn.PctDiff.Equal(dec("-100")) {
		t.Errorf("check_in pct diff = %s, want -100", checkIn.PctDiff)
	}

	// Expected and computed both zero.
	shipping := findFee(t, a, unit.FeeShipping)
	if shipping.Class != VarianceMatch {
		t.Errorf("shipping class = %s, want match", shipping.Class)
	}

	// Unit absent from the reference.
	for _, fv := range byID["B"].Fees {
		if fv.Class != VarianceMissingExpected {
			t.Errorf("B %s class = %s, want missing_expected", fv.FeeType, fv.Class)
		}
	}
}

func TestPctDiff_ZeroExpected(t *testing.T) {
	if got := pctDiff(decimal.Zero, dec("17.00")); !got.Equal(dec("100")) {
		t.Errorf("pctDiff(0, 17) = %s, want 100", got)
	}
	if got := pctDiff(decimal.Zero, decimal.Zero); !got.IsZero() {
		t.Errorf("pctDiff(0, 0) = %s, want 0", got)
	}
}
