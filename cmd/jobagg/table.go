package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// table prints aligned columns. Widths are measured in terminal cells so
// CJK text and emoji from chat posts line up; cells wider than max are cut.
type table struct {
	headers []string
	max     []int
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers, max: make([]int, len(headers))}
}

// limit caps column i at n cells; 0 means unlimited.
func (t *table) limit(i, n int) *table {
	t.max[i] = n
	return t
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	cell := func(i int, s string) string {
		s = strings.Join(strings.Fields(s), " ")
		if t.max[i] > 0 {
			s = runewidth.Truncate(s, t.max[i], "…")
		}
		return s
	}
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, r := range t.rows {
		for i := range t.headers {
			if i < len(r) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell(i, r[i])))
			}
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i := range t.headers {
			s := ""
			if i < len(cells) {
				s = cell(i, cells[i])
			}
			if i == len(t.headers)-1 {
				b.WriteString(s)
			} else {
				b.WriteString(runewidth.FillRight(s, widths[i]))
				b.WriteString("  ")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	line(t.headers)
	total := 2 * (len(widths) - 1)
	for _, cw := range widths {
		total += cw
	}
	fmt.Fprintln(w, strings.Repeat("─", total))
	for _, r := range t.rows {
		line(r)
	}
}
