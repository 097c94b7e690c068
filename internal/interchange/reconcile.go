// Package interchange moves test case and connection records between files
// and the record store.
//
// Import runs decode, detect, reconcile and save as one step under the
// service lock. Test cases are always appended with fresh identifiers;
// connections are upserted by Project.
package interchange

import (
	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/schema"
)

// usable reports whether a data row carries anything. Decode gives a blank
// line as one empty field; spreadsheet readers give it as no fields.
func usable(row []string) bool {
	return len(row) > 0 && !csvcodec.IsBlankRow(row)
}

// ReconcileTestCases appends one test case per usable row, each with an ID
// from newID. existing is not modified. The count is the number of records
// added.
func ReconcileTestCases(existing []schema.TestCase, rows [][]string, idx schema.HeaderIndex, newID func() string) ([]schema.TestCase, int) {
	out := make([]schema.TestCase, len(existing), len(existing)+len(rows))
	copy(out, existing)

	n := 0
	for _, row := range rows {
		if !usable(row) {
			continue
		}
		tc := schema.TestCaseFromRow(row, idx)
		tc.ID = newID()
		out = append(out, tc)
		n++
	}
	return out, n
}

// ReconcileConnections upserts one connection per usable row, keyed by
// Project. Untouched entries keep their order, replaced entries keep their
// position, and new names are appended in file order. When a name repeats,
// the last row wins at the first position. existing is not modified.
func ReconcileConnections(existing []schema.Connection, rows [][]string, idx schema.HeaderIndex) ([]schema.Connection, int) {
	u := newConnUpsert(existing)

	n := 0
	for _, row := range rows {
		if !usable(row) {
			continue
		}
		u.put(schema.ConnectionFromRow(row, idx))
		n++
	}
	return u.list, n
}

// connUpsert is an insertion-ordered map of connections by Project.
type connUpsert struct {
	list []schema.Connection
	pos  map[string]int
}

func newConnUpsert(existing []schema.Connection) *connUpsert {
	u := &connUpsert{
		list: make([]schema.Connection, 0, len(existing)),
		pos:  make(map[string]int, len(existing)),
	}
	for _, c := range existing {
		u.put(c)
	}
	return u
}

// put reports whether c added a new name.
func (u *connUpsert) put(c schema.Connection) bool {
	if i, ok := u.pos[c.Project]; ok {
		u.list[i] = c
		return false
	}
	u.pos[c.Project] = len(u.list)
	u.list = append(u.list, c)
	return true
}

func (u *connUpsert) has(project string) bool {
	_, ok := u.pos[project]
	return ok
}

// countNewConnections reports how many distinct Projects among the usable
// rows are not yet in existing.
func countNewConnections(existing []schema.Connection, rows [][]string, idx schema.HeaderIndex) int {
	u := newConnUpsert(existing)
	n := 0
	for _, row := range rows {
		if !usable(row) {
			continue
		}
		if u.put(schema.ConnectionFromRow(row, idx)) {
			n++
		}
	}
	return n
}
