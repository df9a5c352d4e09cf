package ingest

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/csvio"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/shopspring/decimal"
)

// Export column names, as they appear in file headers after cleaning.
// Every file type shares one column vocabulary; file types differ only in
// which columns must be present.
const (
	ColTRGID           = "trgid"
	ColReceivedDate    = "received_date"
	ColCheckinDate     = "checkin_date"
	ColTestDate        = "test_date"
	ColListedDate      = "listed_date"
	ColOrderClosedDate = "order_closed_date"
	ColRetailValue     = "retail_value"
	ColEffectiveRetail = "effective_retail"
	ColSalePrice       = "sale_price"
	ColRefundAmount    = "refund_amount"
	ColProgram         = "program"
	ColCategory        = "category"
	ColFacility        = "facility"
	ColMarketplace     = "marketplace"
	ColClientSource    = "client_source"
	ColOrderType       = "order_type"
	ColSortingIndex    = "sorting_index"
	ColAuctionFlag     = "auction_flag"
	ColB2CAuction      = "b2c_auction"
	ColVendorInvTotal  = "vendor_invoice_total"
	ColServiceInvTotal = "service_invoice_total"
)

// InvoicedFeeColumn returns the header carrying the invoiced amount for a
// fee type, e.g. "check_in_fee_invoiced".
func InvoicedFeeColumn(ft unit.FeeType) string {
	return string(ft) + "_fee_invoiced"
}

// CalculatedFeeColumn returns the header carrying the pre-calculated amount
// for a fee type.
func CalculatedFeeColumn(ft unit.FeeType) string {
	return string(ft) + "_fee_calc"
}

// FileDefinition describes how one file type is ingested: which header
// columns are mandatory. A missing required column is fatal for the whole
// file, before any batch is committed.
type FileDefinition struct {
	Type     unit.FileType
	Required []string
}

var (
	registry   = make(map[unit.FileType]FileDefinition)
	registryMu sync.RWMutex
)

// RegisterFile adds a file definition. Panics on duplicate registration.
func RegisterFile(def FileDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("file type already registered: %s", def.Type))
	}
	registry[def.Type] = def
}

// Definition returns the definition for a file type, falling back to the
// Unknown definition.
func Definition(t unit.FileType) FileDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if def, ok := registry[t]; ok {
		return def
	}
	return registry[unit.FileUnknown]
}

// DefinedTypes lists registered file types, sorted.
func DefinedTypes() []unit.FileType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]unit.FileType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func init() {
	RegisterFile(FileDefinition{
		Type:     unit.FileSales,
		Required: []string{ColTRGID, ColOrderClosedDate, ColSalePrice, ColMarketplace},
	})
	RegisterFile(FileDefinition{
		Type:     unit.FileInbound,
		Required: []string{ColTRGID, ColReceivedDate},
	})
	RegisterFile(FileDefinition{
		Type:     unit.FileOutbound,
		Required: []string{ColTRGID, ColOrderClosedDate},
	})
	RegisterFile(FileDefinition{
		Type:     unit.FileInventory,
		Required: []string{ColTRGID},
	})
	RegisterFile(FileDefinition{
		Type:     unit.FileMonthly,
		Required: []string{ColTRGID},
	})
	RegisterFile(FileDefinition{
		Type:     unit.FileProduction,
		Required: []string{ColTRGID},
	})
	RegisterFile(FileDefinition{
		Type:     unit.FileUnknown,
		Required: []string{ColTRGID},
	})
}

// CheckHeader verifies every required column is present. Returns the
// missing column names; a non-empty result aborts ingestion of the file.
func CheckHeader(header []string, def FileDefinition) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var missing []string
	for _, col := range def.Required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// ParseRow converts a tokenized record into a typed row. Total: unparsable
// numeric and date cells default to absent and bump the row's warning
// count; text cells pass through cleaned.
func ParseRow(rec csvio.Record) *unit.Row {
	row := &unit.Row{
		TRGID:        csvio.CleanCell(rec[ColTRGID]),
		Program:      csvio.CleanCell(rec[ColProgram]),
		Category:     csvio.CleanCell(rec[ColCategory]),
		Facility:     csvio.CleanCell(rec[ColFacility]),
		Marketplace:  csvio.CleanCell(rec[ColMarketplace]),
		ClientSource: csvio.CleanCell(rec[ColClientSource]),
		OrderType:    csvio.CleanCell(rec[ColOrderType]),
		SortingIndex: rec[ColSortingIndex],
		AuctionFlag:  csvio.CleanCell(rec[ColAuctionFlag]),
		B2CAuction:   csvio.CleanCell(rec[ColB2CAuction]),
	}

	row.ReceivedOn = parseDateCell(rec, ColReceivedDate, row)
	row.CheckedInOn = parseDateCell(rec, ColCheckinDate, row)
	row.TestedOn = parseDateCell(rec, ColTestDate, row)
	row.ListedOn = parseDateCell(rec, ColListedDate, row)
	row.OrderClosedOn = parseDateCell(rec, ColOrderClosedDate, row)

	row.RetailValue = parseDecimalCell(rec, ColRetailValue, row)
	row.EffectiveRetail = parseDecimalCell(rec, ColEffectiveRetail, row)
	row.SalePrice = parseDecimalCell(rec, ColSalePrice, row)
	row.RefundAmount = parseDecimalCell(rec, ColRefundAmount, row)
	row.VendorInvoiceTotal = parseDecimalCell(rec, ColVendorInvTotal, row)
	row.ServiceInvoiceTotal = parseDecimalCell(rec, ColServiceInvTotal, row)

	for _, ft := range unit.AllFees {
		if d := parseDecimalCell(rec, InvoicedFeeColumn(ft), row); d != nil {
			if row.InvoicedFees == nil {
				row.InvoicedFees = make(map[unit.FeeType]decimal.Decimal)
			}
			row.InvoicedFees[ft] = *d
		}
		if d := parseDecimalCell(rec, CalculatedFeeColumn(ft), row); d != nil {
			if row.CalculatedFees == nil {
				row.CalculatedFees = make(map[unit.FeeType]decimal.Decimal)
			}
			row.CalculatedFees[ft] = *d
		}
	}

	return row
}

func parseDateCell(rec csvio.Record, col string, row *unit.Row) *time.Time {
	raw, ok := rec[col]
	if !ok || csvio.CleanCell(raw) == "" {
		return nil
	}
	t, ok := csvio.ParseDate(raw)
	if !ok {
		row.Warnings++
		return nil
	}
	return &t
}

func parseDecimalCell(rec csvio.Record, col string, row *unit.Row) *decimal.Decimal {
	raw, ok := rec[col]
	if !ok || csvio.CleanCell(raw) == "" {
		return nil
	}
	d, ok := csvio.ParseDecimal(raw)
	if !ok {
		row.Warnings++
		return nil
	}
	return &d
}
