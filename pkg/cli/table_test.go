package cli

import (
	"bytes"
	"strings"
	"testing"
)

// ============================================================================
// Table Tests
// ============================================================================

func TestTable_EmptyProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("A", "B").WithWriter(&buf)
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table produced output: %q", buf.String())
	}
}

func TestTable_Alignment(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("CITY", "POP").WithWriter(&buf)
	tbl.Row("Gdansk", "470000")
	tbl.Row("Warszawa", "1790000")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4 (header, divider, 2 rows)", len(lines))
	}
	if !strings.HasPrefix(lines[0], "CITY") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "----") {
		t.Errorf("divider line = %q", lines[1])
	}
	// Columns align: POP starts at the same offset on every line.
	off := strings.Index(lines[0], "POP")
	if idx := strings.Index(lines[3], "1790000"); idx != off {
		t.Errorf("column misaligned: header offset %d, row offset %d", off, idx)
	}
}

func TestVisualLen_StripsANSI(t *testing.T) {
	if got := visualLen(Green("abc")); got != 3 {
		t.Errorf("visualLen(colored) = %d, want 3", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("truncate = %q, want abcd…", got)
	}
	if got := truncate("ab", 5); got != "ab" {
		t.Errorf("truncate short = %q, want ab", got)
	}
}

// ============================================================================
// Format Tests
// ============================================================================

func TestFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{125, "125"},
		{1.5, "1.5"},
		{0, "0"},
		{0.02, "0.02"},
		{1.23456, "1.2346"},
	}
	for _, tt := range tests {
		if got := Float(tt.in); got != tt.want {
			t.Errorf("Float(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDash(t *testing.T) {
	if Dash("") != "-" || Dash("x") != "x" {
		t.Error("Dash behavior wrong")
	}
}
