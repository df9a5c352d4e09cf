package unit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is one parsed export row: every tracked attribute as an optional
// value. The business rules depend on precise null-vs-zero distinctions, so
// optional fields are pointers rather than zero values.
type Row struct {
	TRGID string

	ReceivedOn    *time.Time
	CheckedInOn   *time.Time
	TestedOn      *time.Time
	ListedOn      *time.Time
	OrderClosedOn *time.Time

	RetailValue     *decimal.Decimal
	EffectiveRetail *decimal.Decimal
	SalePrice       *decimal.Decimal
	RefundAmount    *decimal.Decimal

	Program      string
	Category     string
	Facility     string
	Marketplace  string
	ClientSource string
	OrderType    string
	SortingIndex string

	// Raw auction markers used by channel and fee eligibility rules.
	AuctionFlag string
	B2CAuction  string

	// Fee columns, present only when the cell was non-empty.
	InvoicedFees   map[FeeType]decimal.Decimal
	CalculatedFees map[FeeType]decimal.Decimal

	VendorInvoiceTotal  *decimal.Decimal
	ServiceInvoiceTotal *decimal.Decimal

	// Warnings counts cells that were defaulted due to unparsable input.
	Warnings int
}

// ImpliedStage returns the lifecycle stage implied by the furthest-progressed
// non-null date in the row, evaluated Sold down to Received, first match
// wins. Rows with no lifecycle dates imply StageNone.
func (r *Row) ImpliedStage() Stage {
	switch {
	case r.OrderClosedOn != nil:
		return StageSold
	case r.ListedOn != nil:
		return StageListed
	case r.TestedOn != nil:
		return StageTested
	case r.CheckedInOn != nil:
		return StageCheckedIn
	case r.ReceivedOn != nil:
		return StageReceived
	default:
		return StageNone
	}
}

// StageDate returns the in-row event date for the given stage, if present.
func (r *Row) StageDate(s Stage) (time.Time, bool) {
	var d *time.Time
	switch s {
	case StageReceived:
		d = r.ReceivedOn
	case StageCheckedIn:
		d = r.CheckedInOn
	case StageTested:
		d = r.TestedOn
	case StageListed:
		d = r.ListedOn
	case StageSold:
		d = r.OrderClosedOn
	}
	if d == nil {
		return time.Time{}, false
	}
	return *d, true
}

// HasSale reports whether the row carries sale data worth running through
// the fee engine.
func (r *Row) HasSale() bool {
	return r.SalePrice != nil || len(r.InvoicedFees) > 0 || len(r.CalculatedFees) > 0
}
