package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/tqp/internal/schema"
)

// Persisted keys, one JSON array each.
const (
	KeyTestCases   = "dq_testcases"
	KeyConnections = "dq_connections"
)

// Store loads each collection once, caches it, and rewrites the whole
// collection on every save. Methods are safe for concurrent use, but a
// read-modify-write sequence needs an outer lock held by the caller.
type Store struct {
	backend Backend
	prefix  string
	timeout time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	testCases   []schema.TestCase
	connections []schema.Connection
	tcLoaded    bool
	connLoaded  bool
}

// Option customizes a Store.
type Option func(*Store)

// WithKeyPrefix prepends prefix to both persisted keys.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithLogger replaces slog.Default for recovery warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New wraps a backend.
func New(b Backend, opts ...Option) *Store {
	s := &Store{backend: b, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying key-value backend.
func (s *Store) Backend() Backend { return s.backend }

// Key returns the full persisted key for tag.
func (s *Store) Key(tag schema.Tag) string {
	switch tag {
	case schema.TagTestCases:
		return s.prefix + KeyTestCases
	case schema.TagConnections:
		return s.prefix + KeyConnections
	}
	return ""
}

// LoadTestCases returns a copy of the test case collection.
func (s *Store) LoadTestCases(ctx context.Context) ([]schema.TestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tcLoaded {
		list, err := load(ctx, s, s.Key(schema.TagTestCases), schema.TestCaseFromObject)
		if err != nil {
			return nil, err
		}
		s.testCases, s.tcLoaded = list, true
	}
	return append([]schema.TestCase{}, s.testCases...), nil
}

// SaveTestCases replaces the test case collection. The cache is only
// updated once the backend accepted the write.
func (s *Store) SaveTestCases(ctx context.Context, list []schema.TestCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := save(ctx, s, s.Key(schema.TagTestCases), list); err != nil {
		return err
	}
	s.testCases, s.tcLoaded = append([]schema.TestCase{}, list...), true
	return nil
}

// LoadConnections returns a copy of the connection collection.
func (s *Store) LoadConnections(ctx context.Context) ([]schema.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connLoaded {
		list, err := load(ctx, s, s.Key(schema.TagConnections), schema.ConnectionFromObject)
		if err != nil {
			return nil, err
		}
		s.connections, s.connLoaded = list, true
	}
	return append([]schema.Connection{}, s.connections...), nil
}

// SaveConnections replaces the connection collection.
func (s *Store) SaveConnections(ctx context.Context, list []schema.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := save(ctx, s, s.Key(schema.TagConnections), list); err != nil {
		return err
	}
	s.connections, s.connLoaded = append([]schema.Connection{}, list...), true
	return nil
}

// Load returns the collection for tag as []schema.TestCase or
// []schema.Connection.
func (s *Store) Load(ctx context.Context, tag schema.Tag) (any, error) {
	switch tag {
	case schema.TagTestCases:
		return s.LoadTestCases(ctx)
	case schema.TagConnections:
		return s.LoadConnections(ctx)
	}
	return nil, fmt.Errorf("load: unknown record kind %q", tag)
}

// Save stores v, which must match the slice type for tag.
func (s *Store) Save(ctx context.Context, tag schema.Tag, v any) error {
	switch list := v.(type) {
	case []schema.TestCase:
		if tag == schema.TagTestCases {
			return s.SaveTestCases(ctx, list)
		}
	case []schema.Connection:
		if tag == schema.TagConnections {
			return s.SaveConnections(ctx, list)
		}
	}
	return fmt.Errorf("save: %T does not hold %q records", v, tag)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// load reads key. A missing key, or a value that is not a JSON array, yields
// an empty collection; only backend failures are errors. Each array element
// is built with from, so non-string values survive as text. Elements that
// are not objects are skipped.
func load[T any](ctx context.Context, s *Store, key string, from func(map[string]any) T) ([]T, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("stored collection unreadable, starting empty",
			"key", key,
			"bytes", len(data),
			"error", err,
		)
		return []T{}, nil
	}

	list := make([]T, 0, len(items))
	for i, raw := range items {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			s.logger.Warn("stored record is not an object, skipped", "key", key, "index", i)
			continue
		}
		list = append(list, from(obj))
	}
	return list, nil
}

func save[T any](ctx context.Context, s *Store, key string, list []T) error {
	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
