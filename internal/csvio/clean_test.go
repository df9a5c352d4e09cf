package csvio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"whitespace", "  hello  ", "hello"},
		{"excel formula", `="TRG001"`, "TRG001"},
		{"bare equals", "=42", "42"},
		{"surrounding quotes", `"quoted"`, "quoted"},
		{"single quotes", "'quoted'", "quoted"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   time.Time
		wantOK bool
	}{
		{"slash mdy", "3/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"padded slash", "03/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"iso", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"dotted", "3.15.2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"two digit year", "3/15/24", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"compact", "20240315", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "not a date", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"plain", "123.45", "123.45", true},
		{"currency", "$1,234.56", "1234.56", true},
		{"euro", "€99.99", "99.99", true},
		{"percent", "5%", "5", true},
		{"accounting negative", "(123.45)", "-123.45", true},
		{"negative sign", "-42", "-42", true},
		{"currency negative", "($1,000.00)", "-1000", true},
		{"scientific", "1.5e2", "150", true},
		{"empty", "", "0", false},
		{"garbage", "abc", "0", false},
		{"double dash", "--5", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDecimal(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDecimal(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok {
				want, _ := decimal.NewFromString(tt.want)
				if !got.Equal(want) {
					t.Errorf("ParseDecimal(%q) = %s, want %s", tt.input, got, want)
				}
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	trueInputs := []string{"true", "TRUE", "t", "yes", "Y", "1"}
	for _, in := range trueInputs {
		if got, ok := ParseBool(in); !ok || !got {
			t.Errorf("ParseBool(%q) = (%v, %v), want (true, true)", in, got, ok)
		}
	}

	falseInputs := []string{"false", "F", "no", "n", "0"}
	for _, in := range falseInputs {
		if got, ok := ParseBool(in); !ok || got {
			t.Errorf("ParseBool(%q) = (%v, %v), want (false, true)", in, got, ok)
		}
	}

	if _, ok := ParseBool("maybe"); ok {
		t.Error("ParseBool(\"maybe\") ok = true, want false")
	}
}
