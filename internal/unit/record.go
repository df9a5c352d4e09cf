package unit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field is one mutable canonical attribute together with the business date
// of the file that last set it. Merging is per-field
// last-writer-by-business-date-wins: a value is applied only when its source
// business date is the same or newer than the one already recorded. Making
// the clock an explicit struct keeps the invariant mechanically checkable
// instead of spread across ad hoc comparisons.
type Field[T any] struct {
	Value T         `json:"value"`
	AsOf  time.Time `json:"asOf"`
	Set   bool      `json:"set"`
}

// Apply sets the field to value if asOf is the same or newer than the
// business date that last wrote it. Reports whether the field changed.
// Same-date writes win, so the later row in file order wins ties.
func (f *Field[T]) Apply(value T, asOf time.Time) bool {
	if f.Set && asOf.Before(f.AsOf) {
		return false
	}
	f.Value = value
	f.AsOf = asOf
	f.Set = true
	return true
}

// Get returns the value and whether it has ever been set.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Set
}

// FeeFields holds one fee family (invoiced or calculated) with a separate
// merge clock per fee column. Fee columns vary by export: a sales file may
// carry the marketplace fee while an earlier invoice file carried check-in,
// and neither write may erase the other. Merging the family as a single
// attribute would let the newer file's map replace the older one wholesale.
type FeeFields map[FeeType]Field[decimal.Decimal]

// Apply merges each present fee column under its own
// last-writer-by-business-date clock. The receiver's map is never mutated
// in place, so records copied out of a store stay independent.
func (ff *FeeFields) Apply(values map[FeeType]decimal.Decimal, asOf time.Time) {
	if len(values) == 0 {
		return
	}
	next := make(FeeFields, len(*ff)+len(values))
	for ft, f := range *ff {
		next[ft] = f
	}
	for ft, v := range values {
		f := next[ft]
		f.Apply(v, asOf)
		next[ft] = f
	}
	*ff = next
}

// Values flattens the family to the plain per-column amounts, omitting
// columns never set. Returns nil when the family is empty.
func (ff FeeFields) Values() map[FeeType]decimal.Decimal {
	if len(ff) == 0 {
		return nil
	}
	out := make(map[FeeType]decimal.Decimal, len(ff))
	for ft, f := range ff {
		if v, ok := f.Get(); ok {
			out[ft] = v
		}
	}
	return out
}

// UnitRecord is the canonical current-state row for one physical unit,
// keyed by its trgid. Exactly one canonical record exists per trgid, and
// the trgid is immutable once created. Every mutable attribute carries its
// own merge clock.
type UnitRecord struct {
	TRGID string `json:"trgid"`
	Stage Stage  `json:"stage"`

	// Lifecycle dates.
	ReceivedOn    Field[time.Time] `json:"receivedOn"`
	CheckedInOn   Field[time.Time] `json:"checkedInOn"`
	TestedOn      Field[time.Time] `json:"testedOn"`
	ListedOn      Field[time.Time] `json:"listedOn"`
	OrderClosedOn Field[time.Time] `json:"orderClosedOn"`

	// Valuation.
	RetailValue     Field[decimal.Decimal] `json:"retailValue"`
	EffectiveRetail Field[decimal.Decimal] `json:"effectiveRetail"`
	SalePrice       Field[decimal.Decimal] `json:"salePrice"`
	RefundAmount    Field[decimal.Decimal] `json:"refundAmount"`

	// Classification.
	Program      Field[string] `json:"program"`
	Category     Field[string] `json:"category"`
	Facility     Field[string] `json:"facility"`
	Marketplace  Field[string] `json:"marketplace"`
	ClientSource Field[string] `json:"clientSource"`
	OrderType    Field[string] `json:"orderType"`

	// Fee inputs carried for on-demand recomputation. Each fee column
	// merges under its own clock.
	InvoicedFees        FeeFields              `json:"invoicedFees"`
	CalculatedFees      FeeFields              `json:"calculatedFees"`
	VendorInvoiceTotal  Field[decimal.Decimal] `json:"vendorInvoiceTotal"`
	ServiceInvoiceTotal Field[decimal.Decimal] `json:"serviceInvoiceTotal"`
	AuctionFlag         Field[string]          `json:"auctionFlag"`

	// Derived dimensions.
	SalesChannel   Field[string] `json:"salesChannel"`
	WalmartChannel Field[string] `json:"walmartChannel"`
	FiscalWeek     Field[int]    `json:"fiscalWeek"`
	FiscalDay      Field[int]    `json:"fiscalDay"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LifecycleEvent is an append-only fact: a unit reached a stage. Events are
// never updated or deleted by normal ingestion; deleting a FileUpload
// removes the events it produced, nothing else does.
type LifecycleEvent struct {
	ID           uuid.UUID `json:"id"`
	TRGID        string    `json:"trgid"`
	Stage        Stage     `json:"stage"`
	EventDate    time.Time `json:"eventDate"`
	FileUploadID uuid.UUID `json:"fileUploadId"`
	BusinessDate time.Time `json:"businessDate"`
	FiscalWeek   int       `json:"fiscalWeek"`
	FiscalDay    int       `json:"fiscalDay"`
}
