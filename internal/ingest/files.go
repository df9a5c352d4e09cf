// Package ingest drives file ingestion: it classifies uploads, streams them
// through the tokenizer in bounded batches, parses rows against the
// per-file-type schema, and hands batches to the reconciler while reporting
// progress. Memory stays O(batch size) regardless of file size.
package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
)

// businessDateRegex matches the date embedded in export file names:
// MM.DD.YY(YY) with '.', '-', or '_' separators.
var businessDateRegex = regexp.MustCompile(`(\d{1,2})[._-](\d{1,2})[._-](\d{4}|\d{2})`)

// ClassifyFile maps a file name to its type by substring match. Ambiguous
// or unrecognized names classify as Unknown rather than guessing further.
func ClassifyFile(name string) unit.FileType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "sales"):
		return unit.FileSales
	case strings.Contains(lower, "inbound"):
		return unit.FileInbound
	case strings.Contains(lower, "outbound"):
		return unit.FileOutbound
	case strings.Contains(lower, "inventory"):
		return unit.FileInventory
	default:
		return unit.FileUnknown
	}
}

// BusinessDate extracts the business date embedded in a file name. 2-digit
// years are assumed 2000+. Returns ok=false when no date pattern is found;
// the caller decides the default.
func BusinessDate(name string) (time.Time, bool) {
	m := businessDateRegex.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like 2/30.
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
