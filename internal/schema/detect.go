package schema

import "strings"

// HeaderIndex maps normalized column names to their position in a row.
type HeaderIndex map[string]int

// NormalizeHeader trims and lower-cases a header cell.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// MakeHeaderIndex builds a HeaderIndex from a header row in file order.
// When a name repeats, the last column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[NormalizeHeader(h)] = i
	}
	return idx
}

// Has reports whether the header contains the named column.
func (idx HeaderIndex) Has(name string) bool {
	_, ok := idx[NormalizeHeader(name)]
	return ok
}

// Cell returns the value of the named column in row, or "" when the header
// lacks the column or the row is too short to reach it.
func (idx HeaderIndex) Cell(row []string, name string) string {
	pos, ok := idx[NormalizeHeader(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	return row[pos]
}

// Missing returns the fields of tag that the header lacks, in schema order.
func (idx HeaderIndex) Missing(tag Tag) []string {
	var missing []string
	for _, f := range FieldsOf(tag) {
		if !idx.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Detect classifies a header row. A header matches a schema when every one of
// the schema's fields appears among the header's names; order, case,
// surrounding whitespace and extra columns are ignored. Test cases are checked
// before connections, so a header carrying both field sets is a test case file.
// Returns TagUnknown when no schema matches.
func Detect(header []string) Tag {
	idx := MakeHeaderIndex(header)
	for _, d := range definitions {
		if len(idx.Missing(d.Tag)) == 0 {
			return d.Tag
		}
	}
	return TagUnknown
}
