package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders rows of text under a blue header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// TableOptions configures table behavior
type TableOptions struct {
	NoColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, headers []string, opts *TableOptions) *Table {
	noColor := false
	if opts != nil {
		noColor = opts.NoColor
	}

	return &Table{
		writer:  w,
		headers: headers,
		rows:    make([][]string, 0),
		noColor: noColor,
	}
}

// AddRow adds a row to the table. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added so far
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = width(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	head := paint(t.noColor, color.FgBlue, color.Bold)
	rule := paint(t.noColor, color.FgHiBlack)

	for i, header := range t.headers {
		if i < len(t.headers)-1 {
			head.Fprint(t.writer, padRight(header, widths[i]))
			fmt.Fprint(t.writer, "  ")
		} else {
			head.Fprint(t.writer, header)
		}
	}
	fmt.Fprintln(t.writer)

	for i, w := range widths {
		rule.Fprint(t.writer, strings.Repeat("─", w))
		if i < len(widths)-1 {
			rule.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		last := len(row) - 1
		for last > 0 && row[last] == "" {
			last--
		}
		for i := 0; i <= last; i++ {
			if i < last {
				fmt.Fprint(t.writer, padRight(row[i], widths[i]), "  ")
			} else {
				fmt.Fprint(t.writer, row[i])
			}
		}
		fmt.Fprintln(t.writer)
	}
}

// String renders the table into a string
func (t *Table) String() string {
	var b strings.Builder
	w := t.writer
	t.writer = &b
	t.Render()
	t.writer = w
	return b.String()
}

func width(s string) int {
	return len([]rune(s))
}

func padRight(s string, w int) string {
	if n := width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// KeyValueTable renders aligned key: value pairs
type KeyValueTable struct {
	writer  io.Writer
	rows    [][2]string
	noColor bool
}

// NewKeyValueTable creates a new key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow adds a key-value pair to the table
func (t *KeyValueTable) AddRow(key, value string) {
	t.rows = append(t.rows, [2]string{key, value})
}

// Render writes the key-value table
func (t *KeyValueTable) Render() {
	keyWidth := 0
	for _, row := range t.rows {
		if w := width(row[0]); w > keyWidth {
			keyWidth = w
		}
	}

	blue := paint(t.noColor, color.FgBlue)
	for _, row := range t.rows {
		blue.Fprint(t.writer, padRight(row[0]+":", keyWidth+1))
		fmt.Fprintf(t.writer, " %s\n", row[1])
	}
}

// Header renders a bold title underlined with a rule
func Header(w io.Writer, title string, noColor bool) {
	bold := paint(noColor, color.Bold, color.FgBlue)
	rule := paint(noColor, color.FgHiBlack)
	bold.Fprintln(w, title)
	rule.Fprintln(w, strings.Repeat("─", width(title)))
}

// paint returns a color that honours noColor regardless of whether the
// destination is a terminal, so output rendered for a remote peer keeps its colors
func paint(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}
