package interchange

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/schema"
)

const maxPreviewSamples = 10

// RowPreview is one data row as it would be stored.
type RowPreview struct {
	LineNumber int               `json:"lineNumber"`
	Action     string            `json:"action"` // "add" or "update"
	Values     map[string]string `json:"values"`
}

// Preview is the dry-run outcome of importing a file.
type Preview struct {
	Kind             schema.Tag              `json:"kind"`
	Header           []string                `json:"header"`
	Rows             int                     `json:"rows"`
	BlankRows        int                     `json:"blankRows"`
	Added            int                     `json:"added"`
	Updated          int                     `json:"updated"`
	IgnoredColumns   []string                `json:"ignoredColumns"`
	Missing          map[schema.Tag][]string `json:"missing,omitempty"`
	Samples          []RowPreview            `json:"samples"`
	ProcessingTimeMs int64                   `json:"processingTimeMs"`
}

// Preview analyses a CSV or XLSX file without writing anything. For an
// unrecognized header the returned Preview lists the columns each kind
// lacks, alongside ErrUnknownSchema.
func (s *Service) Preview(ctx context.Context, fileName string, data []byte) (*Preview, error) {
	start := time.Now()

	var rows [][]string
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		rows = csvcodec.Decode(csvcodec.Sanitize(data))
	case ".xlsx":
		var err error
		if rows, err = readSheetRows(bytes.NewReader(data), ""); err != nil {
			return nil, fmt.Errorf("%s: %w", fileName, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", fileName, ErrUnsupportedFormat)
	}

	p, err := s.previewRows(ctx, fileName, rows)
	if p != nil {
		p.ProcessingTimeMs = time.Since(start).Milliseconds()
	}
	return p, err
}

func (s *Service) previewRows(ctx context.Context, fileName string, rows [][]string) (*Preview, error) {
	p := &Preview{
		Kind:           schema.TagUnknown,
		Header:         []string{},
		IgnoredColumns: []string{},
		Samples:        []RowPreview{},
	}
	if len(rows) == 0 || (len(rows) == 1 && !usable(rows[0])) {
		return p, fmt.Errorf("%s: %w", fileName, ErrNoRecords)
	}

	header, data := rows[0], rows[1:]
	p.Header = header
	idx := schema.MakeHeaderIndex(header)

	tag := schema.Detect(header)
	if tag == schema.TagUnknown {
		p.Missing = make(map[schema.Tag][]string)
		for _, d := range schema.Definitions() {
			p.Missing[d.Tag] = idx.Missing(d.Tag)
		}
		return p, unknownSchemaError(fileName, idx)
	}
	p.Kind = tag

	for _, h := range header {
		if _, ok := schema.CanonicalField(tag, h); !ok && strings.TrimSpace(h) != "" {
			p.IgnoredColumns = append(p.IgnoredColumns, h)
		}
	}

	var seen *connUpsert
	if tag == schema.TagConnections {
		existing, err := s.store.LoadConnections(ctx)
		if err != nil {
			return p, storageErr("load connections", err)
		}
		seen = newConnUpsert(existing)
	}

	for i, row := range data {
		if !usable(row) {
			p.BlankRows++
			continue
		}
		p.Rows++

		var values map[string]string
		action := "add"
		switch tag {
		case schema.TagTestCases:
			values = fieldMap(schema.TestCaseFields, schema.TestCaseFromRow(row, idx).Field)
			p.Added++
		case schema.TagConnections:
			c := schema.ConnectionFromRow(row, idx)
			values = fieldMap(schema.ConnectionFields, c.Field)
			if seen.has(c.Project) {
				action = "update"
				p.Updated++
			} else {
				p.Added++
			}
			seen.put(c)
		}

		if len(p.Samples) < maxPreviewSamples {
			p.Samples = append(p.Samples, RowPreview{
				LineNumber: i + 2,
				Action:     action,
				Values:     values,
			})
		}
	}

	if p.Rows == 0 {
		return p, fmt.Errorf("%s: %w", fileName, ErrNoRecords)
	}
	return p, nil
}

func fieldMap(fields []string, get func(string) string) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f] = get(f)
	}
	return m
}
