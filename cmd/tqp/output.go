package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JonMunkholm/tqp/internal/interchange"
	"github.com/JonMunkholm/tqp/internal/schema"
)

var (
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	failure = lipgloss.Color("#FF4444")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(failure).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// summaryColumns are the test case columns list shows without --all.
var summaryColumns = []string{"TCID", "TCName", "Table", "Test_Type", "Test_YN", "SRC_Connection", "TGT_Connection"}

func renderTable(header []string, rows [][]string) string {
	if len(rows) == 0 {
		return mutedStyle.Render("  (none)")
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(header...).
		Rows(rows...)
	return t.String()
}

// reportFile prints one line per import attempt.
func reportFile(w io.Writer, r interchange.FileResult) {
	name := filepath.Base(r.Path)
	if r.Err != nil {
		fmt.Fprintf(w, "%s%s  %s\n", errorStyle.Render("✗ "), name, interchange.FormatUserError(r.Err))
		return
	}
	res := r.Result
	if res.Replaced {
		fmt.Fprintf(w, "%s%s  %s replaced with %d records\n", successStyle.Render("✓ "), name, res.Kind, res.Total)
		return
	}
	fmt.Fprintf(w, "%s%s  %s: %d imported (%d added, %d updated), %d total\n",
		successStyle.Render("✓ "), name, res.Kind, res.Imported, res.Added, res.Updated, res.Total)
}

func printPreview(w io.Writer, p *interchange.Preview) {
	if p.Kind == schema.TagUnknown {
		fmt.Fprintln(w, errorStyle.Render("✗ ")+"header matches no record kind")
		for _, d := range schema.Definitions() {
			if missing := p.Missing[d.Tag]; len(missing) > 0 {
				fmt.Fprintf(w, "  %s missing %s\n", d.Tag, strings.Join(missing, ", "))
			}
		}
		return
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s: %d rows, %d to add, %d to update", p.Kind, p.Rows, p.Added, p.Updated)))
	if p.BlankRows > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %d blank rows skipped", p.BlankRows)))
	}
	if len(p.IgnoredColumns) > 0 {
		fmt.Fprintln(w, mutedStyle.Render("  ignored columns: "+strings.Join(p.IgnoredColumns, ", ")))
	}
	if len(p.Samples) == 0 {
		return
	}

	cols := schema.ConnectionFields
	if p.Kind == schema.TagTestCases {
		cols = summaryColumns
	}
	header := append([]string{"Line", "Action"}, cols...)
	rows := make([][]string, len(p.Samples))
	for i, s := range p.Samples {
		row := []string{fmt.Sprint(s.LineNumber), s.Action}
		for _, c := range cols {
			row = append(row, s.Values[c])
		}
		rows[i] = row
	}
	fmt.Fprintln(w, renderTable(header, rows))
}
