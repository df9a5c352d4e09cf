// Package report folds canonical records and lifecycle events into the
// reporting views: lifecycle funnel counts, weekly and quarterly trend
// series, and the fee variance report against the externally audited
// expected-fee reference. The aggregator is strictly read-only over the
// store.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/csvio"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/shopspring/decimal"
)

// expectedColumns is the fixed layout of the reference file: trgid followed
// by one column per fee type in unit.AllFees order.
const expectedColumns = 12

// ExpectedFeeReference is the externally audited expected fee amounts,
// keyed by trgid. It feeds only the variance report, never the canonical
// merge.
type ExpectedFeeReference map[string]map[unit.FeeType]decimal.Decimal

// LoadExpectedFees parses the fixed 12-column reference format. Numeric
// cells may carry $/,/% decoration; unparsable cells default to 0. A header
// row is recognized by a literal "trgid" first cell and skipped. Rows with
// the wrong column count are skipped rather than fatal.
func LoadExpectedFees(r io.Reader) (ExpectedFeeReference, error) {
	ref := make(ExpectedFeeReference)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := csvio.SplitLine(line, csvio.DefaultDelimiter)
		if len(fields) < expectedColumns {
			continue
		}

		trgid := csvio.CleanCell(fields[0])
		if trgid == "" || strings.EqualFold(trgid, "trgid") {
			continue
		}

		fees := make(map[unit.FeeType]decimal.Decimal, len(unit.AllFees))
		for i, ft := range unit.AllFees {
			d, ok := csvio.ParseDecimal(fields[i+1])
			if !ok {
				d = decimal.Zero
			}
			fees[ft] = d
		}
		ref[trgid] = fees
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read expected fees: %w", err)
	}

	return ref, nil
}
