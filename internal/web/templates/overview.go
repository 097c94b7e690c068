// Package templates renders the HTML pages served by the web package.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/tqp/internal/schema"
)

// OverviewData is everything the overview page shows.
type OverviewData struct {
	Query       string
	TestCases   []schema.TestCase
	Connections []schema.Connection
	Total       int // test cases before filtering by Query
}

// testCaseColumns are the columns listed on the overview; the full record is
// available through the API and exports.
var testCaseColumns = []string{"TCID", "TCName", "Table", "Test_Type", "Test_YN", "SRC_Connection", "TGT_Connection"}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;margin:1rem 0}th,td{border:1px solid #ccc;padding:.3rem .6rem;text-align:left}
th{background:#f3f3f3}.muted{color:#777}section{margin-bottom:2rem}`

// Overview renders the landing page: record counts, the test case and
// connection tables, and forms for search, import and export.
func Overview(d OverviewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Test Query Pairs</title><style>`)
		b.WriteString(pageStyle)
		b.WriteString(`</style></head><body><h1>Test Query Pairs</h1>`)

		fmt.Fprintf(&b, `<p>%d test cases, %d connections</p>`, d.Total, len(d.Connections))
		writeTransferForms(&b)

		b.WriteString(`<section><h2>Test Cases</h2>`)
		fmt.Fprintf(&b, `<form method="get" action="/"><input type="search" name="q" value="%s" placeholder="Search"> <button>Search</button></form>`,
			templ.EscapeString(d.Query))
		if d.Query != "" {
			fmt.Fprintf(&b, `<p class="muted">%d of %d match</p>`, len(d.TestCases), d.Total)
		}
		rows := make([][]string, len(d.TestCases))
		for i, tc := range d.TestCases {
			row := make([]string, len(testCaseColumns))
			for j, col := range testCaseColumns {
				row[j] = tc.Field(col)
			}
			rows[i] = row
		}
		writeTable(&b, testCaseColumns, rows, "No test cases")
		b.WriteString(`</section>`)

		b.WriteString(`<section><h2>Connections</h2>`)
		crows := make([][]string, len(d.Connections))
		for i, c := range d.Connections {
			crows[i] = c.Values()
		}
		writeTable(&b, schema.ConnectionFields, crows, "No connections")
		b.WriteString(`</section></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeTransferForms(b *strings.Builder) {
	b.WriteString(`<section><h2>Import</h2>`)
	b.WriteString(`<form method="post" action="/api/import" enctype="multipart/form-data">`)
	b.WriteString(`<input type="file" name="file" accept=".csv,.xlsx,.json" required> `)
	b.WriteString(`<select name="kind"><option value="">Detect from header</option>`)
	for _, def := range schema.Definitions() {
		fmt.Fprintf(b, `<option value="%s">%s</option>`, templ.EscapeString(string(def.Tag)), templ.EscapeString(def.Label))
	}
	b.WriteString(`</select> <button>Import</button></form>`)

	b.WriteString(`<h2>Export</h2><ul>`)
	for _, def := range schema.Definitions() {
		tag := templ.EscapeString(string(def.Tag))
		fmt.Fprintf(b, `<li>%s: <a href="/api/export/%s">CSV</a> <a href="/api/export/%s?format=json">JSON</a> <a href="/api/export/%s?format=xlsx">XLSX</a> <a href="/api/template/%s">template</a></li>`,
			templ.EscapeString(def.Label), tag, tag, tag, tag)
	}
	b.WriteString(`</ul></section>`)
}

func writeTable(b *strings.Builder, header []string, rows [][]string, empty string) {
	if len(rows) == 0 {
		fmt.Fprintf(b, `<p class="muted">%s</p>`, templ.EscapeString(empty))
		return
	}
	b.WriteString(`<table><thead><tr>`)
	for _, h := range header {
		fmt.Fprintf(b, `<th>%s</th>`, templ.EscapeString(h))
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, row := range rows {
		b.WriteString(`<tr>`)
		for _, v := range row {
			fmt.Fprintf(b, `<td>%s</td>`, templ.EscapeString(v))
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
}
