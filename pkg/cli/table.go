package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// ansiRe matches ANSI escape sequences for stripping when calculating visual width.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// visualLen returns the display width of s, excluding ANSI escape codes
// and counting Unicode runes (not bytes).
func visualLen(s string) int {
	return utf8.RuneCountInString(ansiRe.ReplaceAllString(s, ""))
}

// terminalWidth returns the terminal column count for stdout.
// COLUMNS overrides the detected width. Returns 0 when stdout is not a
// terminal and COLUMNS is unset, meaning no width constraint applies.
func terminalWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 0 {
			return n
		}
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 0
	}
	return w
}

// Table produces column-aligned output with ANSI-aware width calculation.
// Headers and a dash divider are written lazily on Flush(), so empty tables
// produce no output. When stdout is a terminal (or COLUMNS is set), the last
// column is truncated with an ellipsis to keep rows on one line.
type Table struct {
	headers []string
	rows    [][]string
	out     io.Writer
}

// NewTable creates a table with the given column headers, writing to stdout.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, out: os.Stdout}
}

// WithWriter redirects the table output.
func (t *Table) WithWriter(w io.Writer) *Table {
	t.out = w
	return t
}

// Row appends a row to the table.
func (t *Table) Row(values ...string) {
	t.rows = append(t.rows, values)
}

// Flush writes all buffered output. If no rows were added, nothing is printed.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visualLen(h)
	}
	for _, row := range t.rows {
		for i, v := range row {
			if i < len(widths) {
				if vl := visualLen(v); vl > widths[i] {
					widths[i] = vl
				}
			}
		}
	}

	maxLast := 0
	if tw := terminalWidth(); tw > 0 {
		fixed := 0
		for _, w := range widths[:len(widths)-1] {
			fixed += w + 2
		}
		if remaining := tw - fixed; remaining > visualLen(t.headers[len(t.headers)-1]) {
			maxLast = remaining
		}
	}

	t.printRow(t.headers, widths, maxLast)
	dividers := make([]string, len(t.headers))
	for i := range t.headers {
		dividers[i] = strings.Repeat("-", widths[i])
	}
	t.printRow(dividers, widths, maxLast)
	for _, row := range t.rows {
		t.printRow(row, widths, maxLast)
	}
}

func (t *Table) printRow(values []string, widths []int, maxLast int) {
	parts := make([]string, 0, len(values))
	for i, v := range values {
		if i == len(widths)-1 {
			if maxLast > 0 && visualLen(v) > maxLast {
				v = truncate(v, maxLast)
			}
			parts = append(parts, v)
			continue
		}
		pad := widths[i] - visualLen(v)
		if pad < 0 {
			pad = 0
		}
		parts = append(parts, v+strings.Repeat(" ", pad))
	}
	fmt.Fprintln(t.out, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// truncate shortens s to width visual columns, appending an ellipsis.
// ANSI sequences are stripped first; truncated cells lose their color.
func truncate(s string, width int) string {
	plain := ansiRe.ReplaceAllString(s, "")
	if width <= 1 {
		return "…"
	}
	runes := []rune(plain)
	if len(runes) <= width {
		return plain
	}
	return string(runes[:width-1]) + "…"
}
