package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TestCase is one test query pair definition. Every column is kept as the raw
// text it was entered or imported with; see decode.go for typed accessors.
type TestCase struct {
	ID                  string `json:"_id"`
	TCID                string `json:"TCID"`
	Table               string `json:"Table"`
	TestType            string `json:"Test_Type"`
	TCName              string `json:"TCName"`
	TestYN              string `json:"Test_YN"`
	SrcDataFile         string `json:"SRC_Data_File"`
	SrcConnection       string `json:"SRC_Connection"`
	TgtDataFile         string `json:"TGT_Data_File"`
	TgtConnection       string `json:"TGT_Connection"`
	Filters             string `json:"Filters"`
	Delimiter           string `json:"Delimiter"`
	PKColumns           string `json:"pk_columns"`
	DateFields          string `json:"Date_Fields"`
	PercentageFields    string `json:"Percentage_Fields"`
	ThresholdPercentage string `json:"Threshold_Percentage"`
	SrcSheetName        string `json:"src_sheet_name"`
	TgtSheetName        string `json:"tgt_sheet_name"`
	HeaderColumns       string `json:"header_columns"`
	SkipRows            string `json:"skip_rows"`
}

// Connection describes a data source a test case can read from. Project is
// the natural key.
type Connection struct {
	Project   string `json:"Project"`
	Server    string `json:"Server"`
	Database  string `json:"Database"`
	Warehouse string `json:"Warehouse"`
	Role      string `json:"Role"`
}

// NewTestCaseID returns a fresh test case identifier. IDs are random and
// never derived from record content.
func NewTestCaseID() string {
	return "tq_" + uuid.NewString()
}

// fieldPtr returns the storage for a canonical column name.
func (tc *TestCase) fieldPtr(name string) *string {
	switch name {
	case "TCID":
		return &tc.TCID
	case "Table":
		return &tc.Table
	case "Test_Type":
		return &tc.TestType
	case "TCName":
		return &tc.TCName
	case "Test_YN":
		return &tc.TestYN
	case "SRC_Data_File":
		return &tc.SrcDataFile
	case "SRC_Connection":
		return &tc.SrcConnection
	case "TGT_Data_File":
		return &tc.TgtDataFile
	case "TGT_Connection":
		return &tc.TgtConnection
	case "Filters":
		return &tc.Filters
	case "Delimiter":
		return &tc.Delimiter
	case "pk_columns":
		return &tc.PKColumns
	case "Date_Fields":
		return &tc.DateFields
	case "Percentage_Fields":
		return &tc.PercentageFields
	case "Threshold_Percentage":
		return &tc.ThresholdPercentage
	case "src_sheet_name":
		return &tc.SrcSheetName
	case "tgt_sheet_name":
		return &tc.TgtSheetName
	case "header_columns":
		return &tc.HeaderColumns
	case "skip_rows":
		return &tc.SkipRows
	}
	return nil
}

// Field returns the value of a column by canonical name, "" for unknown names.
func (tc TestCase) Field(name string) string {
	if p := tc.fieldPtr(name); p != nil {
		return *p
	}
	return ""
}

// SetField assigns a column by canonical name. Unknown names are ignored and
// reported as false.
func (tc *TestCase) SetField(name, value string) bool {
	p := tc.fieldPtr(name)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// Values returns the columns in canonical order.
func (tc TestCase) Values() []string {
	out := make([]string, len(TestCaseFields))
	for i, f := range TestCaseFields {
		out[i] = tc.Field(f)
	}
	return out
}

// Matches reports whether q occurs, case-insensitively, in any of the columns
// shown in the test case list.
func (tc TestCase) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, v := range []string{tc.TCID, tc.TCName, tc.Table, tc.TestType, tc.TestYN, tc.SrcConnection, tc.TgtConnection} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

func (c *Connection) fieldPtr(name string) *string {
	switch name {
	case "Project":
		return &c.Project
	case "Server":
		return &c.Server
	case "Database":
		return &c.Database
	case "Warehouse":
		return &c.Warehouse
	case "Role":
		return &c.Role
	}
	return nil
}

// Field returns the value of a column by canonical name, "" for unknown names.
func (c Connection) Field(name string) string {
	if p := c.fieldPtr(name); p != nil {
		return *p
	}
	return ""
}

// SetField assigns a column by canonical name. Unknown names are ignored and
// reported as false.
func (c *Connection) SetField(name, value string) bool {
	p := c.fieldPtr(name)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// Values returns the columns in canonical order.
func (c Connection) Values() []string {
	out := make([]string, len(ConnectionFields))
	for i, f := range ConnectionFields {
		out[i] = c.Field(f)
	}
	return out
}

// TestCaseFromRow builds a test case from a data row using the file's header
// index. Columns the file does not carry, or that a short row does not reach,
// are left empty. The ID is not set.
func TestCaseFromRow(row []string, idx HeaderIndex) TestCase {
	var tc TestCase
	for _, f := range TestCaseFields {
		tc.SetField(f, idx.Cell(row, f))
	}
	return tc
}

// ConnectionFromRow builds a connection from a data row using the file's
// header index, with the same defaulting as TestCaseFromRow.
func ConnectionFromRow(row []string, idx HeaderIndex) Connection {
	var c Connection
	for _, f := range ConnectionFields {
		c.SetField(f, idx.Cell(row, f))
	}
	return c
}

// TestCaseFromObject builds a test case from a decoded JSON object. "_id"
// sets the ID; other keys match fields case-insensitively and unknown keys
// are dropped.
func TestCaseFromObject(obj map[string]any) TestCase {
	var tc TestCase
	if v, ok := obj["_id"]; ok {
		tc.ID = TextOf(v)
	}
	fillFromObject(TagTestCases, obj, func(f, v string) { tc.SetField(f, v) })
	return tc
}

// ConnectionFromObject builds a connection from a decoded JSON object.
func ConnectionFromObject(obj map[string]any) Connection {
	var c Connection
	fillFromObject(TagConnections, obj, func(f, v string) { c.SetField(f, v) })
	return c
}

// fillFromObject sets every field of tag found in obj. A key spelled exactly
// like the field wins over a differently cased one.
func fillFromObject(tag Tag, obj map[string]any, set func(field, value string)) {
	for k, v := range obj {
		if f, ok := CanonicalField(tag, k); ok && f != k {
			set(f, TextOf(v))
		}
	}
	for _, f := range FieldsOf(tag) {
		if v, ok := obj[f]; ok {
			set(f, TextOf(v))
		}
	}
}

// TextOf renders a decoded JSON value as field text. Numbers keep their
// shortest form, null is empty, and arrays or objects stay JSON.
func TextOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
