package interchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/logging"
	"github.com/JonMunkholm/tqp/internal/schema"
	"github.com/JonMunkholm/tqp/internal/store"
)

// Service owns the record store and serializes every read-modify-write on
// it, so concurrent callers observe whole imports and edits.
type Service struct {
	mu          sync.Mutex
	store       *store.Store
	newID       func() string
	maxFileSize int64

	// stuck remembers dropped files that were imported but could not be
	// moved to Imported, keyed by path.
	stuckMu sync.Mutex
	stuck   map[string]fileStamp
}

// Option customizes a Service.
type Option func(*Service)

// WithIDGenerator replaces schema.NewTestCaseID.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithMaxFileSize rejects imports larger than n bytes. Zero disables the check.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) { s.maxFileSize = n }
}

// NewService creates a service over st.
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st, newID: schema.NewTestCaseID, stuck: make(map[string]fileStamp)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying record store.
func (s *Service) Store() *store.Store { return s.store }

// MaxFileSize returns the import size limit in bytes, zero when unlimited.
func (s *Service) MaxFileSize() int64 { return s.maxFileSize }

// Result describes one completed import.
type Result struct {
	Kind     schema.Tag `json:"kind"`
	FileName string     `json:"fileName,omitempty"`
	Imported int        `json:"imported"` // usable rows applied
	Added    int        `json:"added"`    // records that did not exist before
	Updated  int        `json:"updated"`  // connection rows that replaced an entry
	Total    int        `json:"total"`    // collection size afterwards
	Replaced bool       `json:"replaced,omitempty"`
}

// Import dispatches on the file extension: .csv and .xlsx are detected from
// their header, .json needs kind (or a file name that names the kind).
func (s *Service) Import(ctx context.Context, fileName string, data []byte, kind schema.Tag) (*Result, error) {
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return &Result{Kind: schema.TagUnknown, FileName: fileName},
			fmt.Errorf("%s: %w: limit is %d bytes", fileName, csvcodec.ErrTooLarge, s.maxFileSize)
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return s.ImportCSV(ctx, fileName, data)
	case ".xlsx":
		return s.ImportXLSX(ctx, fileName, data)
	case ".json":
		if kind == "" || kind == schema.TagUnknown {
			base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
			tag, err := schema.ParseTag(base)
			if err != nil {
				return &Result{Kind: schema.TagUnknown, FileName: fileName},
					fmt.Errorf("%s: %w: record kind must be given for JSON files", fileName, ErrUnknownSchema)
			}
			kind = tag
		}
		res, err := s.ImportJSON(ctx, kind, data)
		if res != nil {
			res.FileName = fileName
		}
		return res, err
	}

	return &Result{Kind: schema.TagUnknown, FileName: fileName},
		fmt.Errorf("%s: %w", fileName, ErrUnsupportedFormat)
}

// ImportCSV decodes data, detects the record kind from its header and merges
// the rows into the store. The returned Result is never nil.
//
// An unrecognized header fails with ErrUnknownSchema and a file without
// usable rows with ErrNoRecords; in both cases the store is not written.
func (s *Service) ImportCSV(ctx context.Context, fileName string, data []byte) (*Result, error) {
	op := logging.Start(ctx, "import", "file", fileName, "format", "csv")
	res, err := s.importRows(ctx, fileName, csvcodec.Decode(csvcodec.Sanitize(data)))
	op.Done(res.Imported, err)
	return res, err
}

// ImportXLSX imports the first sheet of a workbook the same way as ImportCSV.
func (s *Service) ImportXLSX(ctx context.Context, fileName string, data []byte) (*Result, error) {
	op := logging.Start(ctx, "import", "file", fileName, "format", "xlsx")
	rows, err := readSheetRows(bytes.NewReader(data), "")
	if err != nil {
		err = fmt.Errorf("%s: %w", fileName, err)
		op.Done(0, err)
		return &Result{Kind: schema.TagUnknown, FileName: fileName}, err
	}
	res, err := s.importRows(ctx, fileName, rows)
	op.Done(res.Imported, err)
	return res, err
}

func (s *Service) importRows(ctx context.Context, fileName string, rows [][]string) (*Result, error) {
	res := &Result{Kind: schema.TagUnknown, FileName: fileName}

	if !slices.ContainsFunc(rows, usable) {
		return res, fmt.Errorf("%s: %w", fileName, ErrNoRecords)
	}

	header, data := rows[0], rows[1:]
	tag := schema.Detect(header)
	if tag == schema.TagUnknown {
		return res, unknownSchemaError(fileName, schema.MakeHeaderIndex(header))
	}
	res.Kind = tag
	idx := schema.MakeHeaderIndex(header)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch tag {
	case schema.TagTestCases:
		existing, err := s.store.LoadTestCases(ctx)
		if err != nil {
			return res, storageErr("load test cases", err)
		}
		merged, n := ReconcileTestCases(existing, data, idx, s.newID)
		if n == 0 {
			return res, fmt.Errorf("%s: %w", fileName, ErrNoRecords)
		}
		if err := s.store.SaveTestCases(ctx, merged); err != nil {
			return res, storageErr("save test cases", err)
		}
		res.Imported, res.Added, res.Total = n, n, len(merged)

	case schema.TagConnections:
		existing, err := s.store.LoadConnections(ctx)
		if err != nil {
			return res, storageErr("load connections", err)
		}
		added := countNewConnections(existing, data, idx)
		merged, n := ReconcileConnections(existing, data, idx)
		if n == 0 {
			return res, fmt.Errorf("%s: %w", fileName, ErrNoRecords)
		}
		if err := s.store.SaveConnections(ctx, merged); err != nil {
			return res, storageErr("save connections", err)
		}
		res.Imported, res.Added, res.Updated, res.Total = n, added, n-added, len(merged)
	}

	return res, nil
}

func unknownSchemaError(fileName string, idx schema.HeaderIndex) error {
	var parts []string
	for _, d := range schema.Definitions() {
		parts = append(parts, fmt.Sprintf("%s missing %s", strings.ToLower(d.Label), strings.Join(idx.Missing(d.Tag), ", ")))
	}
	return fmt.Errorf("%s: %w (%s)", fileName, ErrUnknownSchema, strings.Join(parts, "; "))
}

// ImportJSON replaces the whole collection for kind with the records in
// data, which must be a JSON array of objects. Keys are matched to fields
// case-insensitively; unknown keys are dropped and non-string values are
// converted to text. Test cases without an _id, or repeating one already
// seen in data, get a fresh one, and connections are de-duplicated by Project with the last entry winning.
func (s *Service) ImportJSON(ctx context.Context, kind schema.Tag, data []byte) (*Result, error) {
	op := logging.Start(ctx, "import", "format", "json", "kind", kind)
	res, err := s.importJSON(ctx, kind, data)
	op.Done(res.Imported, err)
	return res, err
}

func (s *Service) importJSON(ctx context.Context, kind schema.Tag, data []byte) (*Result, error) {
	res := &Result{Kind: kind}

	var objects []map[string]any
	if err := json.Unmarshal(csvcodec.TrimBOM(data), &objects); err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if objects == nil {
		return res, ErrInvalidJSON
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case schema.TagTestCases:
		list := make([]schema.TestCase, 0, len(objects))
		used := make(map[string]bool, len(objects))
		var fresh []int
		for i, obj := range objects {
			tc := schema.TestCaseFromObject(obj)
			if tc.ID == "" || used[tc.ID] {
				fresh = append(fresh, i)
			}
			used[tc.ID] = true
			list = append(list, tc)
		}
		for _, i := range fresh {
			id := s.newID()
			for used[id] {
				id = s.newID()
			}
			used[id] = true
			list[i].ID = id
		}
		if err := s.store.SaveTestCases(ctx, list); err != nil {
			return res, storageErr("save test cases", err)
		}
		res.Imported, res.Total = len(list), len(list)

	case schema.TagConnections:
		u := newConnUpsert(nil)
		for _, obj := range objects {
			u.put(schema.ConnectionFromObject(obj))
		}
		if err := s.store.SaveConnections(ctx, u.list); err != nil {
			return res, storageErr("save connections", err)
		}
		res.Imported, res.Total = len(objects), len(u.list)

	default:
		return res, fmt.Errorf("%w: kind %q", ErrUnknownSchema, kind)
	}

	res.Added, res.Replaced = res.Total, true
	return res, nil
}
