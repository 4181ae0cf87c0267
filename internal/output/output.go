// Package output renders command results as a table, JSON or CSV.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Format selects how results are printed
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// Formats returns the supported formats
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatCSV}
}

// ParseFormat converts user input to a Format, ignoring case. The empty
// string selects the table format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "default":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format '%s': expected one of table, json, csv", s)
	}
}

// Table is the tabular view of a result
type Table struct {
	Header []string
	Rows   [][]string
}

// Formatter writes results in one format
type Formatter struct {
	format Format
	out    io.Writer
}

// New creates a formatter writing to out
func New(format Format, out io.Writer) *Formatter {
	if format == "" {
		format = FormatTable
	}
	return &Formatter{format: format, out: out}
}

// Format returns the selected format
func (f *Formatter) Format() Format {
	return f.format
}

// Print writes t as a table or CSV, or data as indented JSON. Empty
// tables print nothing.
func (f *Formatter) Print(t Table, data interface{}) error {
	switch f.format {
	case FormatJSON:
		return f.printJSON(data)
	case FormatCSV:
		return f.printCSV(t)
	default:
		return f.printTable(t)
	}
}

func (f *Formatter) printJSON(data interface{}) error {
	encoded, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintf(f.out, "%s\n", encoded)
	return err
}

func (f *Formatter) printCSV(t Table) error {
	if len(t.Rows) == 0 {
		return nil
	}
	w := csv.NewWriter(f.out)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func (f *Formatter) printTable(t Table) error {
	if len(t.Rows) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(f.out, RenderTable(t))
	return err
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

// RenderTable lays t out in aligned columns without borders
func RenderTable(t Table) string {
	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(t.Header...).
		Rows(t.Rows...)

	lines := strings.Split(tbl.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}
