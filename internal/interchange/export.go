package interchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/logging"
	"github.com/JonMunkholm/tqp/internal/schema"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv, json or xlsx in any case; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Export is a rendered download.
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
	Rows        int
}

// Export renders the collection for kind in format.
func (s *Service) Export(ctx context.Context, kind schema.Tag, format Format) (*Export, error) {
	def, ok := schema.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", ErrUnknownSchema, kind)
	}
	if format == "" {
		format = FormatCSV
	}

	op := logging.Start(ctx, "export", "kind", kind, "format", format)
	recs, err := s.loadRecords(ctx, kind)
	if err != nil {
		op.Done(0, err)
		return nil, err
	}

	var data []byte
	switch format {
	case FormatCSV:
		data = []byte(recs.csv())
	case FormatJSON:
		data, err = recs.json()
	case FormatXLSX:
		var buf bytes.Buffer
		err = recs.workbook(&buf, def.Label)
		data = buf.Bytes()
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	op.Done(recs.len(), err)
	if err != nil {
		return nil, err
	}

	return &Export{
		FileName:    def.FileName + "." + string(format),
		ContentType: format.ContentType(),
		Data:        data,
		Rows:        recs.len(),
	}, nil
}

// ExportJSON renders the collection for kind as an indented JSON array.
// Test cases carry their _id.
func (s *Service) ExportJSON(ctx context.Context, kind schema.Tag) ([]byte, error) {
	recs, err := s.loadRecords(ctx, kind)
	if err != nil {
		return nil, err
	}
	return recs.json()
}

// records is one loaded collection.
type records struct {
	kind        schema.Tag
	testCases   []schema.TestCase
	connections []schema.Connection
}

func (s *Service) loadRecords(ctx context.Context, kind schema.Tag) (*records, error) {
	recs := &records{kind: kind}
	var err error
	switch kind {
	case schema.TagTestCases:
		if recs.testCases, err = s.store.LoadTestCases(ctx); err != nil {
			return nil, storageErr("load test cases", err)
		}
	case schema.TagConnections:
		if recs.connections, err = s.store.LoadConnections(ctx); err != nil {
			return nil, storageErr("load connections", err)
		}
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnknownSchema, kind)
	}
	return recs, nil
}

func (r *records) len() int {
	if r.kind == schema.TagTestCases {
		return len(r.testCases)
	}
	return len(r.connections)
}

// csv renders the records in canonical field order.
func (r *records) csv() string {
	if r.kind == schema.TagTestCases {
		return csvcodec.Encode(schema.TestCaseFields, r.testCases, schema.TestCase.Field)
	}
	return csvcodec.Encode(schema.ConnectionFields, r.connections, schema.Connection.Field)
}

func (r *records) json() ([]byte, error) {
	if r.kind == schema.TagTestCases {
		return json.MarshalIndent(r.testCases, "", "  ")
	}
	return json.MarshalIndent(r.connections, "", "  ")
}

// workbook writes the records as a single sheet named sheet.
func (r *records) workbook(w io.Writer, sheet string) error {
	rows := make([][]string, 0, r.len())
	for _, tc := range r.testCases {
		rows = append(rows, tc.Values())
	}
	for _, c := range r.connections {
		rows = append(rows, c.Values())
	}
	return writeWorkbook(w, sheet, schema.FieldsOf(r.kind), rows)
}

// Template returns a header-only CSV for kind.
func Template(kind schema.Tag) (string, error) {
	fields := schema.FieldsOf(kind)
	if fields == nil {
		return "", fmt.Errorf("%w: kind %q", ErrUnknownSchema, kind)
	}
	return csvcodec.EncodeRows(fields, nil), nil
}
