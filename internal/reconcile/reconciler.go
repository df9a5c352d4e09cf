// Package reconcile turns batches of parsed export rows into canonical-store
// mutations and lifecycle event appends.
//
// The merge semantics make repeated ingestion of the same or overlapping
// file idempotent: every canonical attribute is merged per-field,
// last-writer-by-business-date-wins, and event appends are deduplicated on
// the (trgid, stage, file upload) triple. Each batch applies inside one
// store transaction, so a failed or cancelled batch rolls back whole. The
// batch holds the lock stripes of its trgids for the transaction's
// duration, so two files touching the same unit can be ingested
// concurrently without lost updates.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/dimension"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/fee"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/store"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// lockStripes is the size of the per-trgid lock table. Collisions only cost
// unnecessary serialization, never correctness.
const lockStripes = 128

// Reconciler merges parsed rows into the canonical store. Only the
// reconciler writes canonical rows and appends events.
type Reconciler struct {
	store store.Store
	fees  *fee.Engine
	locks [lockStripes]sync.Mutex
}

// New creates a Reconciler over the given store and fee engine.
func New(st store.Store, fees *fee.Engine) *Reconciler {
	return &Reconciler{store: st, fees: fees}
}

// BatchResult summarizes one applied batch.
type BatchResult struct {
	Inserted   int
	Updated    int
	Events     int
	Warnings   int
	GrossSales decimal.Decimal
	FeeTotal   decimal.Decimal
}

// ApplyBatch merges every row of a batch for one file upload. Rows without a
// trgid are counted as warnings and skipped. The whole batch is applied in
// one store transaction: a store failure or cancellation rolls the batch
// back whole and surfaces to the scheduler, which has already committed all
// prior batches. The returned result is zero on error since nothing of the
// batch persisted.
func (r *Reconciler) ApplyBatch(ctx context.Context, fu *unit.FileUpload, rows []*unit.Row) (BatchResult, error) {
	res := BatchResult{GrossSales: decimal.Zero, FeeTotal: decimal.Zero}

	unlock := r.lockBatch(rows)
	defer unlock()

	err := r.store.WithBatch(ctx, func(st store.BatchStore) error {
		for _, row := range rows {
			if row.TRGID == "" {
				res.Warnings++
				continue
			}
			res.Warnings += row.Warnings

			outcome, err := r.applyRow(ctx, st, fu, row)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", row.TRGID, err)
			}

			if outcome.inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
			if outcome.eventAppended {
				res.Events++
			}

			if row.HasSale() {
				fees := r.fees.Compute(unit.SaleFromRow(row))
				res.FeeTotal = res.FeeTotal.Add(fees.Total)
				if row.SalePrice != nil {
					res.GrossSales = res.GrossSales.Add(*row.SalePrice)
				}
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{GrossSales: decimal.Zero, FeeTotal: decimal.Zero}, err
	}
	return res, nil
}

// lockBatch takes every lock stripe the batch's trgids hash to, in stripe
// order so two concurrent batches can never deadlock. Holding the stripes
// across the whole transaction keeps read-merge-write for a unit exclusive
// even when two files carry it at once.
func (r *Reconciler) lockBatch(rows []*unit.Row) func() {
	var need [lockStripes]bool
	for _, row := range rows {
		if row.TRGID != "" {
			need[stripe(row.TRGID)] = true
		}
	}
	for i := range r.locks {
		if need[i] {
			r.locks[i].Lock()
		}
	}
	return func() {
		for i := range r.locks {
			if need[i] {
				r.locks[i].Unlock()
			}
		}
	}
}

type rowOutcome struct {
	inserted      bool
	eventAppended bool
}

// applyRow merges one row inside the batch transaction: load, merge
// per-field, progress the stage, store, and append at most one lifecycle
// event. The caller holds the unit's lock stripe.
func (r *Reconciler) applyRow(ctx context.Context, st store.BatchStore, fu *unit.FileUpload, row *unit.Row) (rowOutcome, error) {
	var out rowOutcome

	rec, err := st.GetUnit(ctx, row.TRGID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		now := time.Now().UTC()
		rec = &unit.UnitRecord{TRGID: row.TRGID, CreatedAt: now, UpdatedAt: now}
		out.inserted = true
	case err != nil:
		return out, err
	}

	prevStage := rec.Stage
	merge(rec, row, fu.BusinessDate)
	rec.UpdatedAt = time.Now().UTC()

	implied := row.ImpliedStage()
	if implied > prevStage {
		rec.Stage = implied
	}

	if err := st.PutUnit(ctx, rec); err != nil {
		return out, err
	}

	// At most one event per row, only when the row's implied stage
	// progresses beyond the canonical stage before this update. The store
	// suppresses duplicates for the same (trgid, stage, file upload), so
	// re-ingesting the same file changes nothing.
	if implied > prevStage {
		appended, err := st.AppendEvent(ctx, r.newEvent(fu, row, implied))
		if err != nil {
			return out, err
		}
		out.eventAppended = appended
	}

	return out, nil
}

func (r *Reconciler) newEvent(fu *unit.FileUpload, row *unit.Row, stage unit.Stage) *unit.LifecycleEvent {
	eventDate, ok := row.StageDate(stage)
	if !ok {
		eventDate = fu.BusinessDate
	}
	fy := dimension.FiscalOf(eventDate)

	return &unit.LifecycleEvent{
		ID:           uuid.New(),
		TRGID:        row.TRGID,
		Stage:        stage,
		EventDate:    eventDate,
		FileUploadID: fu.ID,
		BusinessDate: fu.BusinessDate,
		FiscalWeek:   fy.Week,
		FiscalDay:    fy.Day,
	}
}

// merge applies every present row attribute to the canonical record under
// the per-field last-writer-by-business-date rule, then re-derives the
// dimension fields from the same business date.
func merge(rec *unit.UnitRecord, row *unit.Row, asOf time.Time) {
	applyDate := func(f *unit.Field[time.Time], v *time.Time) {
		if v != nil {
			f.Apply(*v, asOf)
		}
	}
	applyDec := func(f *unit.Field[decimal.Decimal], v *decimal.Decimal) {
		if v != nil {
			f.Apply(*v, asOf)
		}
	}
	applyStr := func(f *unit.Field[string], v string) {
		if v != "" {
			f.Apply(v, asOf)
		}
	}

	applyDate(&rec.ReceivedOn, row.ReceivedOn)
	applyDate(&rec.CheckedInOn, row.CheckedInOn)
	applyDate(&rec.TestedOn, row.TestedOn)
	applyDate(&rec.ListedOn, row.ListedOn)
	applyDate(&rec.OrderClosedOn, row.OrderClosedOn)

	applyDec(&rec.RetailValue, row.RetailValue)
	applyDec(&rec.EffectiveRetail, row.EffectiveRetail)
	applyDec(&rec.SalePrice, row.SalePrice)
	applyDec(&rec.RefundAmount, row.RefundAmount)

	applyStr(&rec.Program, row.Program)
	applyStr(&rec.Category, row.Category)
	applyStr(&rec.Facility, row.Facility)
	applyStr(&rec.Marketplace, row.Marketplace)
	applyStr(&rec.ClientSource, row.ClientSource)
	applyStr(&rec.OrderType, row.OrderType)
	applyStr(&rec.AuctionFlag, row.AuctionFlag)

	rec.InvoicedFees.Apply(row.InvoicedFees, asOf)
	rec.CalculatedFees.Apply(row.CalculatedFees, asOf)
	applyDec(&rec.VendorInvoiceTotal, row.VendorInvoiceTotal)
	applyDec(&rec.ServiceInvoiceTotal, row.ServiceInvoiceTotal)

	// Channel dimensions only make sense on sales-bearing rows; deriving
	// them from an inbound row would classify a blank marketplace as a
	// manual sale.
	if row.HasSale() {
		in := dimension.ChannelInput{
			Marketplace: row.Marketplace,
			OrderType:   row.OrderType,
			AuctionFlag: row.AuctionFlag,
			B2CAuction:  row.B2CAuction,
			SortingIdx:  row.SortingIndex,
		}
		rec.SalesChannel.Apply(dimension.SalesChannel(in), asOf)
		rec.WalmartChannel.Apply(dimension.WalmartChannel(in), asOf)
	}

	if row.OrderClosedOn != nil {
		fy := dimension.FiscalOf(*row.OrderClosedOn)
		rec.FiscalWeek.Apply(fy.Week, asOf)
		rec.FiscalDay.Apply(fy.Day, asOf)
	}
}

func stripe(trgid string) int {
	h := fnv.New32a()
	h.Write([]byte(trgid))
	return int(h.Sum32() % lockStripes)
}
