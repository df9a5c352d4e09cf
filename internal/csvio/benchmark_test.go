package csvio

import (
	"bytes"
	"testing"
)

// BenchmarkTokenizer measures tokenizing a realistic export chunk. This is
// the hot loop of every ingestion.
func BenchmarkTokenizer(b *testing.B) {
	var buf bytes.Buffer
	buf.WriteString("TRGID,Category,Sale Price,Order Closed Date,Marketplace\n")
	for i := 0; i < 1000; i++ {
		buf.WriteString(`TRG0001,"Consumer Electronics","$1,234.56",3/15/2024,WhatNot` + "\n")
	}
	data := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tok := NewTokenizer(bytes.NewReader(data), DefaultDelimiter)
		for {
			rec, ok := tok.Next()
			if !ok {
				break
			}
			_ = rec
		}
	}
}

// BenchmarkSplitLine_Plain benchmarks the common case: no quoting.
func BenchmarkSplitLine_Plain(b *testing.B) {
	line := "TRG0001,Electronics,99.99,3/15/2024,eBay"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SplitLine(line, DefaultDelimiter)
	}
}

// BenchmarkSplitLine_Quoted benchmarks quoted fields with embedded
// delimiters.
func BenchmarkSplitLine_Quoted(b *testing.B) {
	line := `TRG0001,"Consumer Electronics, Misc","$1,234.56",3/15/2024,eBay`
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SplitLine(line, DefaultDelimiter)
	}
}

// BenchmarkParseDecimal benchmarks decorated currency parsing.
func BenchmarkParseDecimal(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"$1,234.56",
		"(123.45)",
		"1,234,567.89",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDecimal(tc)
		}
	}
}

// BenchmarkParseDate benchmarks the date format sweep.
func BenchmarkParseDate(b *testing.B) {
	testCases := []string{
		"2024-01-15",
		"01/15/2024",
		"1/5/24",
		"20240115",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDate(tc)
		}
	}
}
