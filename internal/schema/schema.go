// Package schema declares the two record shapes exchanged through CSV, JSON and
// XLSX files, and classifies incoming files by their header row.
//
// A schema is an ordered list of column names. Order matters for export; it
// does not matter for detection or import, which work on the set of names.
package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Tag identifies a record shape.
type Tag string

const (
	TagUnknown     Tag = "unknown"
	TagTestCases   Tag = "testcases"
	TagConnections Tag = "connections"
)

// TestCaseFields is the canonical column order for test case records.
var TestCaseFields = []string{
	"TCID", "Table", "Test_Type", "TCName", "Test_YN",
	"SRC_Data_File", "SRC_Connection", "TGT_Data_File", "TGT_Connection",
	"Filters", "Delimiter", "pk_columns", "Date_Fields", "Percentage_Fields",
	"Threshold_Percentage", "src_sheet_name", "tgt_sheet_name",
	"header_columns", "skip_rows",
}

// ConnectionFields is the canonical column order for connection records.
var ConnectionFields = []string{"Project", "Server", "Database", "Warehouse", "Role"}

// Definition describes one record shape.
type Definition struct {
	Tag      Tag
	Label    string   // Display name: "Test Cases"
	Fields   []string // Canonical column order
	KeyField string   // Natural key column, empty when records carry a generated ID
	FileName string   // Base name used for exports, without extension
}

// definitions is ordered by detection precedence: a header that satisfies
// both shapes is classified by the first match.
var definitions = []Definition{
	{
		Tag:      TagTestCases,
		Label:    "Test Cases",
		Fields:   TestCaseFields,
		FileName: "testcases",
	},
	{
		Tag:      TagConnections,
		Label:    "Connections",
		Fields:   ConnectionFields,
		KeyField: "Project",
		FileName: "connections",
	},
}

// Definitions returns all record shapes in detection order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	for i, d := range definitions {
		d.Fields = slices.Clone(d.Fields)
		out[i] = d
	}
	return out
}

// Lookup returns the definition for tag.
// Returns false if tag is not a known shape.
func Lookup(tag Tag) (Definition, bool) {
	for _, d := range definitions {
		if d.Tag == tag {
			d.Fields = slices.Clone(d.Fields)
			return d, true
		}
	}
	return Definition{}, false
}

// FieldsOf returns a copy of the ordered field list for tag, or nil for an
// unknown tag.
func FieldsOf(tag Tag) []string {
	d, ok := Lookup(tag)
	if !ok {
		return nil
	}
	return d.Fields
}

// ParseTag converts user input ("testcases", "Connections", "connection", ...)
// into a Tag.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "testcases", "testcase", "test_cases", "tests", "tc":
		return TagTestCases, nil
	case "connections", "connection", "conn", "conns":
		return TagConnections, nil
	}
	return TagUnknown, fmt.Errorf("unknown record kind %q (want testcases or connections)", s)
}

// CanonicalField returns the declared spelling of name within tag's schema,
// matched case-insensitively. Returns false if name is not a field of tag.
func CanonicalField(tag Tag, name string) (string, bool) {
	key := NormalizeHeader(name)
	for _, f := range FieldsOf(tag) {
		if strings.ToLower(f) == key {
			return f, true
		}
	}
	return "", false
}
