// Package csvio provides streaming readers and the row tokenizer for the
// delimited export files produced by the warehouse systems.
//
// The exports are plain comma-delimited text: first line is the header, one
// physical line is one logical row (the source systems never emit embedded
// newlines), fields may be double-quoted and a doubled quote inside a quoted
// field is an escaped literal quote. Files run to hundreds of MB, so
// everything in this package is forward-only and bounded-memory.
package csvio

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// DefaultDelimiter is the field delimiter used by every known export.
const DefaultDelimiter = ','

// maxLineSize bounds a single physical line. Export rows are a few KB at
// most; 1MB leaves generous headroom without risking unbounded buffering.
const maxLineSize = 1 << 20

// Record is one tokenized data row: cleaned lowercase header name to raw
// cell value. Rows shorter than the header are padded with empty strings, so
// every header key is always present.
type Record map[string]string

// Tokenizer turns a raw delimited stream into an ordered sequence of
// Records. It is forward-only and not restartable; create a fresh Tokenizer
// to re-read a file.
type Tokenizer struct {
	sc      *bufio.Scanner
	delim   byte
	header  []string
	started bool
	line    int
	err     error
}

// NewTokenizer creates a tokenizer over r using the given field delimiter.
func NewTokenizer(r io.Reader, delim byte) *Tokenizer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Tokenizer{sc: sc, delim: delim}
}

// Header returns the cleaned, lowercased header fields. The first physical
// line is always the header and is never yielded as data. An empty input has
// no header and yields zero rows; Header returns nil in that case.
func (t *Tokenizer) Header() []string {
	t.start()
	return t.header
}

// start consumes the header line on first use.
func (t *Tokenizer) start() {
	if t.started {
		return
	}
	t.started = true

	if !t.sc.Scan() {
		t.err = t.sc.Err()
		return
	}
	t.line++

	raw := splitFields(t.sc.Text(), t.delim)
	t.header = make([]string, len(raw))
	for i, h := range raw {
		t.header[i] = CleanHeader(h)
	}
}

// Next returns the next data row, or (nil, false) when the input is
// exhausted or a read error occurred. Blank lines are skipped. Check Err
// after the final Next.
func (t *Tokenizer) Next() (Record, bool) {
	t.start()
	if t.err != nil || t.header == nil {
		return nil, false
	}

	for t.sc.Scan() {
		t.line++
		line := t.sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitFields(line, t.delim)
		rec := make(Record, len(t.header))
		for i, name := range t.header {
			if name == "" {
				continue
			}
			if i < len(fields) {
				rec[name] = fields[i]
			} else {
				// Short row: pad missing trailing fields.
				rec[name] = ""
			}
		}
		return rec, true
	}

	t.err = t.sc.Err()
	return nil, false
}

// Line returns the current physical line number (1-based, header included).
func (t *Tokenizer) Line() int {
	return t.line
}

// Err returns the first read error encountered, if any. A line exceeding the
// internal buffer surfaces here as bufio.ErrTooLong.
func (t *Tokenizer) Err() error {
	if t.err != nil && !errors.Is(t.err, io.EOF) {
		return t.err
	}
	return nil
}

// SplitLine splits one physical line into fields using the package's
// quoting rules. Used for fixed-layout reference files read by position
// rather than by header name.
func SplitLine(line string, delim byte) []string {
	return splitFields(line, delim)
}

// splitFields splits one physical line into fields. Quoted fields may
// contain the delimiter; a doubled quote inside a quoted field is an escaped
// literal quote. A stray quote in an unquoted field is kept as-is rather
// than rejected.
func splitFields(line string, delim byte) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuotes:
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteByte(c)
			}
		case c == '"' && field.Len() == 0:
			inQuotes = true
		case c == delim:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	fields = append(fields, field.String())
	return fields
}
