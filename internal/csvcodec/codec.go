// Package csvcodec reads and writes the comma-separated files used to exchange
// test case and connection records.
//
// The dialect is fixed: comma delimiter, double-quote quoting, "" as an escaped
// quote inside a quoted field. Decoding never fails; whatever the input, a
// sequence of rows comes back, so a malformed file degrades into odd cells
// rather than an aborted import.
package csvcodec

import "strings"

// Decode splits text into rows of fields in a single left-to-right scan.
//
// Outside quotes, a comma ends the field, LF ends the row and CR is dropped.
// A double quote opens a quoted section wherever it appears. Inside quotes
// everything is literal except the quote itself, where "" yields one quote and
// a lone quote closes the section.
//
// The last row is always emitted, even without a terminating newline, so
// empty input returns one row holding one empty field and a trailing newline
// produces a final blank row. Use IsBlankRow to skip those.
func Decode(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			field.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			row = append(row, field.String())
			field.Reset()
		case '\n':
			row = append(row, field.String())
			rows = append(rows, row)
			row = nil
			field.Reset()
		case '\r':
			// line-ending noise
		default:
			field.WriteByte(c)
		}
	}

	row = append(row, field.String())
	rows = append(rows, row)
	return rows
}

// IsBlankRow reports whether row is a single empty field, the shape Decode
// gives to empty lines and to the end of newline-terminated text.
func IsBlankRow(row []string) bool {
	return len(row) == 1 && row[0] == ""
}

// Encode writes a header line followed by one line per row. fieldOf returns
// the value of a named column for a row; each row is written in header order.
// The output always ends with exactly one newline.
func Encode[R any](header []string, rows []R, fieldOf func(R, string) string) string {
	var b strings.Builder

	writeLine(&b, header)
	line := make([]string, len(header))
	for _, r := range rows {
		for i, h := range header {
			line[i] = fieldOf(r, h)
		}
		writeLine(&b, line)
	}

	return b.String()
}

// EncodeRows is Encode for rows that are already ordered field slices.
// Short rows are padded with empty fields; extra fields are dropped.
func EncodeRows(header []string, rows [][]string) string {
	var b strings.Builder

	writeLine(&b, header)
	line := make([]string, len(header))
	for _, r := range rows {
		for i := range line {
			line[i] = ""
			if i < len(r) {
				line[i] = r[i]
			}
		}
		writeLine(&b, line)
	}

	return b.String()
}

func writeLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Quote(f))
	}
	b.WriteByte('\n')
}

// Quote returns s as a CSV field: wrapped in double quotes with internal quotes
// doubled when s contains a comma, a double quote or a newline, unchanged
// otherwise.
func Quote(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
