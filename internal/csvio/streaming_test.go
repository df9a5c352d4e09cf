package csvio

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestBOMReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "strips BOM",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("trgid,price")...),
			want:  "trgid,price",
		},
		{
			name:  "no BOM passthrough",
			input: []byte("trgid,price"),
			want:  "trgid,price",
		},
		{
			name:  "short input no BOM",
			input: []byte("ab"),
			want:  "ab",
		},
		{
			name:  "empty input",
			input: []byte{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(newBOMReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "clean ascii",
			input: []byte("hello,world"),
			want:  "hello,world",
		},
		{
			name:  "valid multibyte",
			input: []byte("café,naïve"),
			want:  "café,naïve",
		},
		{
			name:  "invalid byte replaced",
			input: []byte{'a', 0xFF, 'b'},
			want:  "a?b",
		},
		{
			name:  "truncated sequence at end",
			input: []byte{'a', 'b', 0xC3},
			want:  "ab?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(newUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitAcrossReads(t *testing.T) {
	// "é" is 0xC3 0xA9; force the two bytes into separate reads.
	src := io.MultiReader(
		bytes.NewReader([]byte{'a', 0xC3}),
		bytes.NewReader([]byte{0xA9, 'b'}),
	)
	got, err := io.ReadAll(newUTF8Sanitizer(src))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "aéb" {
		t.Errorf("got %q, want %q", got, "aéb")
	}
}

func TestCountingReader(t *testing.T) {
	data := strings.Repeat("x", 200)
	cr := WrapReader(strings.NewReader(data), int64(len(data)))

	buf := make([]byte, 50)
	if _, err := io.ReadFull(cr, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}

	if cr.BytesRead != 50 {
		t.Errorf("BytesRead = %d, want 50", cr.BytesRead)
	}
	if got := cr.Percent(); got != 25 {
		t.Errorf("Percent() = %d, want 25", got)
	}

	if _, err := io.Copy(io.Discard, cr); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if got := cr.Percent(); got != 100 {
		t.Errorf("Percent() after full read = %d, want 100", got)
	}
}

func TestCountingReader_UnknownTotal(t *testing.T) {
	cr := WrapReader(strings.NewReader("data"), 0)
	io.Copy(io.Discard, cr)
	if got := cr.Percent(); got != 0 {
		t.Errorf("Percent() with unknown total = %d, want 0", got)
	}
}

func TestWrapReader_BOMAndInvalidBytes(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("trgid\nTRG")...)
	input = append(input, 0xFE)
	input = append(input, []byte("001\n")...)

	cr := WrapReader(bytes.NewReader(input), int64(len(input)))
	tok := NewTokenizer(cr, DefaultDelimiter)

	header := tok.Header()
	if len(header) != 1 || header[0] != "trgid" {
		t.Fatalf("Header() = %v, want [trgid]", header)
	}

	rec, ok := tok.Next()
	if !ok {
		t.Fatal("Next() returned no row")
	}
	if rec["trgid"] != "TRG?001" {
		t.Errorf("trgid = %q, want %q", rec["trgid"], "TRG?001")
	}
}
