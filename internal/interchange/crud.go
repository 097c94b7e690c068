package interchange

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/tqp/internal/logging"
	"github.com/JonMunkholm/tqp/internal/schema"
)

// ListTestCases returns all test cases in stored order.
func (s *Service) ListTestCases(ctx context.Context) ([]schema.TestCase, error) {
	list, err := s.store.LoadTestCases(ctx)
	if err != nil {
		return nil, storageErr("load test cases", err)
	}
	return list, nil
}

// SearchTestCases returns test cases whose listed columns contain q,
// ignoring case. An empty q matches everything.
func (s *Service) SearchTestCases(ctx context.Context, q string) ([]schema.TestCase, error) {
	list, err := s.ListTestCases(ctx)
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, tc := range list {
		if tc.Matches(q) {
			out = append(out, tc)
		}
	}
	return out, nil
}

// GetTestCase returns the test case with id.
func (s *Service) GetTestCase(ctx context.Context, id string) (schema.TestCase, error) {
	list, err := s.ListTestCases(ctx)
	if err != nil {
		return schema.TestCase{}, err
	}
	for _, tc := range list {
		if tc.ID == id {
			return tc, nil
		}
	}
	return schema.TestCase{}, fmt.Errorf("test case %q: %w", id, ErrNotFound)
}

// SaveTestCase validates tc and stores it. An empty ID gets a fresh one and
// appends; a known ID replaces that entry in place; an unknown ID appends
// under that ID.
func (s *Service) SaveTestCase(ctx context.Context, tc schema.TestCase) (schema.TestCase, error) {
	for _, f := range schema.TestCaseFields {
		tc.SetField(f, strings.TrimSpace(tc.Field(f)))
	}
	if err := tc.Validate().Err(); err != nil {
		return schema.TestCase{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.LoadTestCases(ctx)
	if err != nil {
		return schema.TestCase{}, storageErr("load test cases", err)
	}

	if tc.ID == "" {
		tc.ID = s.newID()
	}
	if i := slices.IndexFunc(list, func(t schema.TestCase) bool { return t.ID == tc.ID }); i >= 0 {
		list[i] = tc
	} else {
		list = append(list, tc)
	}

	if err := s.store.SaveTestCases(ctx, list); err != nil {
		return schema.TestCase{}, storageErr("save test cases", err)
	}
	return tc, nil
}

// DeleteTestCase removes the test case with id.
func (s *Service) DeleteTestCase(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.LoadTestCases(ctx)
	if err != nil {
		return storageErr("load test cases", err)
	}
	n := len(list)
	list = slices.DeleteFunc(list, func(t schema.TestCase) bool { return t.ID == id })
	if len(list) == n {
		return fmt.Errorf("test case %q: %w", id, ErrNotFound)
	}
	if err := s.store.SaveTestCases(ctx, list); err != nil {
		return storageErr("save test cases", err)
	}
	return nil
}

// ListConnections returns all connections in stored order.
func (s *Service) ListConnections(ctx context.Context) ([]schema.Connection, error) {
	list, err := s.store.LoadConnections(ctx)
	if err != nil {
		return nil, storageErr("load connections", err)
	}
	return list, nil
}

// GetConnection returns the connection whose Project equals project exactly.
func (s *Service) GetConnection(ctx context.Context, project string) (schema.Connection, error) {
	list, err := s.ListConnections(ctx)
	if err != nil {
		return schema.Connection{}, err
	}
	for _, c := range list {
		if c.Project == project {
			return c, nil
		}
	}
	return schema.Connection{}, fmt.Errorf("connection %q: %w", project, ErrNotFound)
}

// SaveConnection stores c, replacing the entry with the same Project in place
// or appending a new one.
func (s *Service) SaveConnection(ctx context.Context, c schema.Connection) (schema.Connection, error) {
	for _, f := range schema.ConnectionFields {
		c.SetField(f, strings.TrimSpace(c.Field(f)))
	}
	if err := c.Validate().Err(); err != nil {
		return schema.Connection{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.LoadConnections(ctx)
	if err != nil {
		return schema.Connection{}, storageErr("load connections", err)
	}
	u := newConnUpsert(list)
	u.put(c)

	if err := s.store.SaveConnections(ctx, u.list); err != nil {
		return schema.Connection{}, storageErr("save connections", err)
	}
	return c, nil
}

// DeleteConnection removes the connection named project. Test cases that
// reference it are left as they are.
func (s *Service) DeleteConnection(ctx context.Context, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.LoadConnections(ctx)
	if err != nil {
		return storageErr("load connections", err)
	}
	n := len(list)
	list = slices.DeleteFunc(list, func(c schema.Connection) bool { return c.Project == project })
	if len(list) == n {
		return fmt.Errorf("connection %q: %w", project, ErrNotFound)
	}
	if err := s.store.SaveConnections(ctx, list); err != nil {
		return storageErr("save connections", err)
	}
	return nil
}

// ConnectionChoices lists the names a test case may use for SRC_Connection
// and TGT_Connection: the built-ins followed by stored Projects.
func (s *Service) ConnectionChoices(ctx context.Context) ([]string, error) {
	list, err := s.ListConnections(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(schema.BuiltinConnections)
	for _, c := range list {
		if c.Project != "" && !slices.Contains(out, c.Project) {
			out = append(out, c.Project)
		}
	}
	return out, nil
}

// Counts reports the size of each collection.
type Counts struct {
	TestCases   int `json:"testCases"`
	Connections int `json:"connections"`
}

// Count returns the current collection sizes.
func (s *Service) Count(ctx context.Context) (Counts, error) {
	tcs, err := s.ListTestCases(ctx)
	if err != nil {
		return Counts{}, err
	}
	conns, err := s.ListConnections(ctx)
	if err != nil {
		return Counts{}, err
	}
	return Counts{TestCases: len(tcs), Connections: len(conns)}, nil
}

// Reset empties the collection for kind and returns how many records it
// held.
func (s *Service) Reset(ctx context.Context, kind schema.Tag) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case schema.TagTestCases:
		list, err := s.store.LoadTestCases(ctx)
		if err != nil {
			return 0, storageErr("load test cases", err)
		}
		if err := s.store.SaveTestCases(ctx, []schema.TestCase{}); err != nil {
			return 0, storageErr("save test cases", err)
		}
		logging.FromContext(ctx).Warn("collection reset", "kind", kind, "removed", len(list))
		return len(list), nil
	case schema.TagConnections:
		list, err := s.store.LoadConnections(ctx)
		if err != nil {
			return 0, storageErr("load connections", err)
		}
		if err := s.store.SaveConnections(ctx, []schema.Connection{}); err != nil {
			return 0, storageErr("save connections", err)
		}
		logging.FromContext(ctx).Warn("collection reset", "kind", kind, "removed", len(list))
		return len(list), nil
	}
	return 0, fmt.Errorf("%w: kind %q", ErrUnknownSchema, kind)
}
