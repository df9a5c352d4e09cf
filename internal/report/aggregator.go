package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/dimension"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/fee"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/store"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/shopspring/decimal"
)

// Variance classification thresholds.
var (
	matchThreshold = decimal.NewFromFloat(0.01) // absolute dollars
	closeThreshold = decimal.NewFromInt(5)      // percent
	hundred        = decimal.NewFromInt(100)
)

// Aggregator computes reporting views from the canonical store. Read-only.
type Aggregator struct {
	store store.Store
	fees  *fee.Engine
}

// NewAggregator creates an aggregator over the store and fee engine.
func NewAggregator(st store.Store, fees *fee.Engine) *Aggregator {
	return &Aggregator{store: st, fees: fees}
}

// FunnelCount is the number of units that have reached a stage. Stage order
// makes the counts cumulative: a Sold unit counts in every earlier stage.
type FunnelCount struct {
	Stage string `json:"stage"`
	Units int    `json:"units"`
}

// Funnel returns lifecycle funnel counts per stage.
func (a *Aggregator) Funnel(ctx context.Context) ([]FunnelCount, error) {
	units, err := a.store.ListUnits(ctx, store.UnitFilter{})
	if err != nil {
		return nil, fmt.Errorf("funnel: %w", err)
	}

	out := make([]FunnelCount, 0, len(unit.Stages()))
	for _, stage := range unit.Stages() {
		n := 0
		for i := range units {
			if units[i].Stage >= stage {
				n++
			}
		}
		out = append(out, FunnelCount{Stage: stage.String(), Units: n})
	}
	return out, nil
}

// TrendPoint is one bucket of the weekly or quarterly trend series.
type TrendPoint struct {
	FiscalYear   int             `json:"fiscalYear"`
	Week         int             `json:"week,omitempty"`
	Quarter      int             `json:"quarter,omitempty"`
	Units        int             `json:"units"`
	GrossSales   decimal.Decimal `json:"grossSales"`
	RefundTotal  decimal.Decimal `json:"refundTotal"`
	RecoveryRate decimal.Decimal `json:"recoveryRate"`
}

// WeeklyTrend buckets sold units by fiscal (year, week) of their
// order-closed date. Recovery rate is gross sales over effective retail,
// zero when no retail value is known.
func (a *Aggregator) WeeklyTrend(ctx context.Context) ([]TrendPoint, error) {
	return a.trend(ctx, func(f dimension.Fiscal) (key, TrendPoint) {
		return key{f.Year, f.Week}, TrendPoint{FiscalYear: f.Year, Week: f.Week}
	})
}

// QuarterlyTrend buckets sold units by fiscal (year, quarter).
func (a *Aggregator) QuarterlyTrend(ctx context.Context) ([]TrendPoint, error) {
	return a.trend(ctx, func(f dimension.Fiscal) (key, TrendPoint) {
		return key{f.Year, f.Quarter}, TrendPoint{FiscalYear: f.Year, Quarter: f.Quarter}
	})
}

type key struct{ year, bucket int }

func (a *Aggregator) trend(ctx context.Context, bucketOf func(dimension.Fiscal) (key, TrendPoint)) ([]TrendPoint, error) {
	sold := unit.StageSold
	units, err := a.store.ListUnits(ctx, store.UnitFilter{Stage: &sold})
	if err != nil {
		return nil, fmt.Errorf("trend: %w", err)
	}

	buckets := make(map[key]*TrendPoint)
	retail := make(map[key]decimal.Decimal)

	for i := range units {
		rec := &units[i]
		closed, ok := rec.OrderClosedOn.Get()
		if !ok {
			continue
		}

		k, zero := bucketOf(dimension.FiscalOf(closed))
		pt, exists := buckets[k]
		if !exists {
			zero.GrossSales = decimal.Zero
			zero.RefundTotal = decimal.Zero
			zero.RecoveryRate = decimal.Zero
			pt = &zero
			buckets[k] = pt
			retail[k] = decimal.Zero
		}

		pt.Units++
		if price, ok := rec.SalePrice.Get(); ok {
			pt.GrossSales = pt.GrossSales.Add(price)
		}
		if refund, ok := rec.RefundAmount.Get(); ok {
			pt.RefundTotal = pt.RefundTotal.Add(refund)
		}
		if er, ok := rec.EffectiveRetail.Get(); ok {
			retail[k] = retail[k].Add(er)
		}
	}

	out := make([]TrendPoint, 0, len(buckets))
	for k, pt := range buckets {
		if er := retail[k]; !er.IsZero() {
			pt.RecoveryRate = pt.GrossSales.Div(er).Round(4)
		}
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FiscalYear != out[j].FiscalYear {
			return out[i].FiscalYear < out[j].FiscalYear
		}
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		return out[i].Quarter < out[j].Quarter
	})
	return out, nil
}

// VarianceClass is the outcome of comparing one computed fee to its
// externally audited expectation.
type VarianceClass string

const (
	VarianceMatch           VarianceClass = "match"
	VarianceClose           VarianceClass = "close"
	VarianceMismatch        VarianceClass = "mismatch"
	VarianceMissingExpected VarianceClass = "missing_expected"
)

// FeeVariance is the comparison for one fee type of one unit.
type FeeVariance struct {
	FeeType  unit.FeeType    `json:"feeType"`
	Expected decimal.Decimal `json:"expected"`
	Computed decimal.Decimal `json:"computed"`
	PctDiff  decimal.Decimal `json:"pctDiff"`
	Class    VarianceClass   `json:"class"`
}

// UnitVariance is the full per-unit variance row.
type UnitVariance struct {
	TRGID string        `json:"trgid"`
	Fees  []FeeVariance `json:"fees"`
}

// Variance recomputes fees for every sold unit and classifies each fee
// type against the expected-fee reference. Units absent from the reference
// classify every fee as missing_expected.
func (a *Aggregator) Variance(ctx context.Context, ref ExpectedFeeReference) ([]UnitVariance, error) {
	sold := unit.StageSold
	units, err := a.store.ListUnits(ctx, store.UnitFilter{Stage: &sold})
	if err != nil {
		return nil, fmt.Errorf("variance: %w", err)
	}

	out := make([]UnitVariance, 0, len(units))
	for i := range units {
		rec := &units[i]
		computed := a.fees.Compute(unit.SaleFromRecord(rec))
		expected, hasRef := ref[rec.TRGID]

		uv := UnitVariance{TRGID: rec.TRGID, Fees: make([]FeeVariance, 0, len(unit.AllFees))}
		for _, ft := range unit.AllFees {
			fv := FeeVariance{
				FeeType:  ft,
				Computed: computed.Amount(ft),
				Expected: decimal.Zero,
				PctDiff:  decimal.Zero,
			}
			if !hasRef {
				fv.Class = VarianceMissingExpected
			} else {
				fv.Expected = expected[ft]
				fv.PctDiff = pctDiff(fv.Expected, fv.Computed)
				fv.Class = classify(fv.Expected, fv.Computed, fv.PctDiff)
			}
			uv.Fees = append(uv.Fees, fv)
		}
		out = append(out, uv)
	}
	return out, nil
}

// pctDiff is (computed - expected) / expected * 100, defined as 100 when
// expected is 0 and computed is not.
func pctDiff(expected, computed decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		if computed.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return computed.Sub(expected).Div(expected).Mul(hundred)
}

// classify applies the variance thresholds: match when both are zero or the
// absolute difference is under a cent, close when the expected value is
// non-zero and the percent difference is within 5%, mismatch otherwise.
func classify(expected, computed, pct decimal.Decimal) VarianceClass {
	if expected.IsZero() && computed.IsZero() {
		return VarianceMatch
	}
	if computed.Sub(expected).Abs().LessThan(matchThreshold) {
		return VarianceMatch
	}
	if !expected.IsZero() && pct.Abs().LessThanOrEqual(closeThreshold) {
		return VarianceClose
	}
	return VarianceMismatch
}
