package unit

import "github.com/shopspring/decimal"

// FeeType identifies one of the per-unit fee amounts. The order of AllFees
// is the column order of the expected-fee reference file (after trgid).
type FeeType string

const (
	FeeCheckIn           FeeType = "check_in"
	FeeTesting           FeeType = "testing"
	FeeListing           FeeType = "listing"
	FeeRefurbishment     FeeType = "refurbishment"
	FeeFulfillment       FeeType = "fulfillment"
	FeeShipping          FeeType = "shipping"
	FeeStorage           FeeType = "storage"
	FeeDisposition       FeeType = "disposition"
	FeeMarketplace       FeeType = "marketplace"
	FeePaymentProcessing FeeType = "payment_processing"
	FeeReturnsProcessing FeeType = "returns_processing"
)

// AllFees lists every fee type in reference-file column order.
var AllFees = []FeeType{
	FeeCheckIn,
	FeeTesting,
	FeeListing,
	FeeRefurbishment,
	FeeFulfillment,
	FeeShipping,
	FeeStorage,
	FeeDisposition,
	FeeMarketplace,
	FeePaymentProcessing,
	FeeReturnsProcessing,
}

// SaleRecord is the input to the fee rule engine: the sale outcome of one
// unit plus the invoiced and pre-calculated fee columns from the export.
type SaleRecord struct {
	TRGID        string
	SalePrice    decimal.Decimal
	Category     string
	Marketplace  string
	ClientSource string
	OrderType    string
	AuctionFlag  string

	InvoicedFees   map[FeeType]decimal.Decimal
	CalculatedFees map[FeeType]decimal.Decimal

	VendorInvoiceTotal  decimal.Decimal
	ServiceInvoiceTotal decimal.Decimal
}

// FeeResult is the fee engine output: one resolved amount per fee type,
// their total, and the net proceeds of the sale.
type FeeResult struct {
	Amounts     map[FeeType]decimal.Decimal `json:"amounts"`
	Total       decimal.Decimal             `json:"total"`
	NetProceeds decimal.Decimal             `json:"netProceeds"`
}

// Amount returns the resolved amount for a fee type, zero if absent.
func (r FeeResult) Amount(ft FeeType) decimal.Decimal {
	if a, ok := r.Amounts[ft]; ok {
		return a
	}
	return decimal.Zero
}

// SaleFromRecord builds the fee engine input from a canonical record, for
// on-demand fee recomputation by the aggregator.
func SaleFromRecord(rec *UnitRecord) SaleRecord {
	out := SaleRecord{TRGID: rec.TRGID}
	out.SalePrice, _ = rec.SalePrice.Get()
	out.Category, _ = rec.Category.Get()
	out.Marketplace, _ = rec.Marketplace.Get()
	out.ClientSource, _ = rec.ClientSource.Get()
	out.OrderType, _ = rec.OrderType.Get()
	out.AuctionFlag, _ = rec.AuctionFlag.Get()
	out.InvoicedFees = rec.InvoicedFees.Values()
	out.CalculatedFees = rec.CalculatedFees.Values()
	out.VendorInvoiceTotal, _ = rec.VendorInvoiceTotal.Get()
	out.ServiceInvoiceTotal, _ = rec.ServiceInvoiceTotal.Get()
	return out
}

// SaleFromRow builds the fee engine input from a parsed export row.
func SaleFromRow(row *Row) SaleRecord {
	rec := SaleRecord{
		TRGID:          row.TRGID,
		Category:       row.Category,
		Marketplace:    row.Marketplace,
		ClientSource:   row.ClientSource,
		OrderType:      row.OrderType,
		AuctionFlag:    row.AuctionFlag,
		InvoicedFees:   row.InvoicedFees,
		CalculatedFees: row.CalculatedFees,
	}
	if row.SalePrice != nil {
		rec.SalePrice = *row.SalePrice
	}
	if row.VendorInvoiceTotal != nil {
		rec.VendorInvoiceTotal = *row.VendorInvoiceTotal
	}
	if row.ServiceInvoiceTotal != nil {
		rec.ServiceInvoiceTotal = *row.ServiceInvoiceTotal
	}
	return rec
}
