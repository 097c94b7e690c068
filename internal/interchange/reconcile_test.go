package interchange

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tqp/internal/schema"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestReconcileTestCases_AppendsWithFreshIDs(t *testing.T) {
	existing := []schema.TestCase{{ID: "old", TCName: "Orders"}}
	idx := schema.MakeHeaderIndex([]string{"TCName", "TCID"})
	rows := [][]string{
		{"Orders", "T1"},
		{""},
		{"Refunds", "T2"},
		{},
	}

	got, n := ReconcileTestCases(existing, rows, idx, seqIDs())
	assert.Equal(t, 2, n)
	require.Len(t, got, 3)
	assert.Equal(t, "old", got[0].ID)
	assert.Equal(t, schema.TestCase{ID: "id-1", TCName: "Orders", TCID: "T1"}, got[1])
	assert.Equal(t, schema.TestCase{ID: "id-2", TCName: "Refunds", TCID: "T2"}, got[2])

	// Identical visible fields are still appended, never merged.
	assert.Equal(t, got[0].TCName, got[1].TCName)
	assert.Len(t, existing, 1)
}

func TestReconcileTestCases_NothingUsable(t *testing.T) {
	idx := schema.MakeHeaderIndex(schema.TestCaseFields)
	got, n := ReconcileTestCases(nil, [][]string{{""}}, idx, seqIDs())
	assert.Zero(t, n)
	assert.Empty(t, got)
}

func TestReconcileConnections(t *testing.T) {
	existing := []schema.Connection{
		{Project: "WH1", Server: "a"},
		{Project: "WH0", Server: "z"},
	}
	idx := schema.MakeHeaderIndex(schema.ConnectionFields)

	tests := []struct {
		name  string
		rows  [][]string
		want  []schema.Connection
		count int
	}{
		{
			name:  "replace in place",
			rows:  [][]string{{"WH1", "b", "db", "wh", "role"}},
			want:  []schema.Connection{{Project: "WH1", Server: "b", Database: "db", Warehouse: "wh", Role: "role"}, {Project: "WH0", Server: "z"}},
			count: 1,
		},
		{
			name:  "new name appended",
			rows:  [][]string{{"WH2", "c"}},
			want:  []schema.Connection{{Project: "WH1", Server: "a"}, {Project: "WH0", Server: "z"}, {Project: "WH2", Server: "c"}},
			count: 1,
		},
		{
			name:  "repeat in file keeps first position and last values",
			rows:  [][]string{{"WH3", "first"}, {"WH4"}, {"WH3", "second"}, {""}},
			want:  []schema.Connection{{Project: "WH1", Server: "a"}, {Project: "WH0", Server: "z"}, {Project: "WH3", Server: "second"}, {Project: "WH4"}},
			count: 3,
		},
		{
			name:  "case-sensitive key",
			rows:  [][]string{{"wh1", "lower"}},
			want:  []schema.Connection{{Project: "WH1", Server: "a"}, {Project: "WH0", Server: "z"}, {Project: "wh1", Server: "lower"}},
			count: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := ReconcileConnections(existing, tt.rows, idx)
			assert.Equal(t, tt.count, n)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "a", existing[0].Server, "existing must not be modified")
		})
	}
}

func TestCountNewConnections(t *testing.T) {
	existing := []schema.Connection{{Project: "WH1"}}
	idx := schema.MakeHeaderIndex([]string{"Project"})
	rows := [][]string{{"WH1"}, {"WH2"}, {"WH2"}, {""}, {"WH3"}}
	assert.Equal(t, 2, countNewConnections(existing, rows, idx))
}
