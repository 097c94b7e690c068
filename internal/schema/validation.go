package schema

// validation.go holds the form-level checks applied when a record is saved
// by hand. Imports never run them: a file is stored as parsed, even when a
// test case references a spreadsheet connection without its sheet settings.

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError describes one problem with a record field.
type ValidationError struct {
	Field   string `json:"field"`   // Column name
	Message string `json:"message"` // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found in one record.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Err returns errs as an error, or nil when there are none.
func (errs ValidationErrors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Built-in connection choices that are not stored connection records.
const (
	BuiltinExcel = "Excel"
	BuiltinCSV   = "CSV"
)

// BuiltinConnections lists the connection names offered for every test case.
var BuiltinConnections = []string{BuiltinExcel, BuiltinCSV}

// IsExcel reports whether a connection reference names the Excel built-in.
func IsExcel(conn string) bool {
	return strings.EqualFold(strings.TrimSpace(conn), BuiltinExcel)
}

// IsCSV reports whether a connection reference names the CSV built-in.
func IsCSV(conn string) bool {
	return strings.EqualFold(strings.TrimSpace(conn), BuiltinCSV)
}

// UsesExcel reports whether either side of the test case reads a workbook.
func (tc TestCase) UsesExcel() bool {
	return IsExcel(tc.SrcConnection) || IsExcel(tc.TgtConnection)
}

// UsesCSV reports whether either side of the test case reads a CSV file.
func (tc TestCase) UsesCSV() bool {
	return IsCSV(tc.SrcConnection) || IsCSV(tc.TgtConnection)
}

// excelRequired are the columns a test case must fill when it reads a workbook.
var excelRequired = []string{"src_sheet_name", "tgt_sheet_name", "header_columns", "skip_rows"}

// Validate checks the fields a test case form requires.
func (tc TestCase) Validate() ValidationErrors {
	var errs ValidationErrors

	required := []string{"TCName", "SRC_Connection", "TGT_Connection"}
	for _, f := range required {
		if strings.TrimSpace(tc.Field(f)) == "" {
			errs = append(errs, ValidationError{Field: f, Message: "is required"})
		}
	}

	if tc.UsesExcel() {
		for _, f := range excelRequired {
			if strings.TrimSpace(tc.Field(f)) == "" {
				errs = append(errs, ValidationError{
					Field:   f,
					Message: "is required when SRC_Connection or TGT_Connection is Excel",
				})
			}
		}
		if strings.TrimSpace(tc.HeaderColumns) != "" {
			if _, err := tc.HeaderColumnList(); err != nil {
				errs = append(errs, ValidationError{Field: "header_columns", Message: err.Error()})
			}
		}
		if strings.TrimSpace(tc.SkipRows) != "" {
			if _, err := tc.SkipRowList(); err != nil {
				errs = append(errs, ValidationError{Field: "skip_rows", Message: err.Error()})
			}
		}
	}

	lists := []struct {
		field string
		parse func() ([]string, error)
	}{
		{"pk_columns", tc.KeyColumns},
		{"Date_Fields", tc.DateFieldList},
		{"Percentage_Fields", tc.PercentageFieldList},
	}
	for _, l := range lists {
		if _, err := l.parse(); err != nil {
			errs = append(errs, ValidationError{Field: l.field, Message: err.Error()})
		}
	}

	// Delimiter only applies to CSV sources and must be one character.
	if d := tc.Delimiter; tc.UsesCSV() && d != "" && d != `\t` && utf8.RuneCountInString(d) != 1 {
		errs = append(errs, ValidationError{Field: "Delimiter", Message: "must be a single character"})
	}

	if tc.ThresholdPercentage != "" {
		if _, err := tc.Threshold(); err != nil {
			errs = append(errs, ValidationError{Field: "Threshold_Percentage", Message: err.Error()})
		}
	}

	return errs
}

// Validate checks the fields a connection form requires.
func (c Connection) Validate() ValidationErrors {
	if strings.TrimSpace(c.Project) == "" {
		return ValidationErrors{{Field: "Project", Message: "is required"}}
	}
	return nil
}
