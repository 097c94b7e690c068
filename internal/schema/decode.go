package schema

// decode.go offers typed views of test case columns that hold numbers or
// list literals. The stored text is never rewritten: a value that does not
// parse is reported to the caller and still survives export unchanged.

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseList reads a list literal such as ['ID'], ["Date1","Date2"] or a bare
// comma-separated list. Items are trimmed and unquoted; empty input gives nil.
func ParseList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("unterminated list %q", s)
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
		if s == "" {
			return []string{}, nil
		}
	}

	var (
		items []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		items = append(items, unquoteItem(strings.TrimSpace(cur.String())))
		cur.Reset()
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			cur.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ',':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	flush()

	return items, nil
}

func unquoteItem(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Threshold returns Threshold_Percentage as a number. A trailing percent sign
// is allowed; an empty value is zero.
func (tc TestCase) Threshold() (float64, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(tc.ThresholdPercentage), "%"))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", tc.ThresholdPercentage)
	}
	return v, nil
}

// KeyColumns returns pk_columns as a list.
func (tc TestCase) KeyColumns() ([]string, error) {
	return ParseList(tc.PKColumns)
}

// DateFieldList returns Date_Fields as a list.
func (tc TestCase) DateFieldList() ([]string, error) {
	return ParseList(tc.DateFields)
}

// PercentageFieldList returns Percentage_Fields as a list.
func (tc TestCase) PercentageFieldList() ([]string, error) {
	return ParseList(tc.PercentageFields)
}

// HeaderColumnList returns header_columns as a list.
func (tc TestCase) HeaderColumnList() ([]string, error) {
	return ParseList(tc.HeaderColumns)
}

// SkipRowsSpec is the decoded form of skip_rows: either the reader's default
// behaviour or an explicit list of zero-based row numbers.
type SkipRowsSpec struct {
	Default bool
	Rows    []int
}

// SkipRowList decodes skip_rows. "Default" (any case) and empty select the
// default; otherwise a list of integers is expected.
func (tc TestCase) SkipRowList() (SkipRowsSpec, error) {
	s := strings.TrimSpace(tc.SkipRows)
	if s == "" || strings.EqualFold(s, "default") {
		return SkipRowsSpec{Default: true}, nil
	}

	items, err := ParseList(s)
	if err != nil {
		return SkipRowsSpec{}, err
	}
	rows := make([]int, 0, len(items))
	for _, it := range items {
		n, err := strconv.Atoi(it)
		if err != nil || n < 0 {
			return SkipRowsSpec{}, fmt.Errorf("invalid row number %q in skip_rows", it)
		}
		rows = append(rows, n)
	}
	return SkipRowsSpec{Rows: rows}, nil
}
