package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsOf(t *testing.T) {
	assert.Len(t, FieldsOf(TagTestCases), 19)
	assert.Equal(t, []string{"Project", "Server", "Database", "Warehouse", "Role"}, FieldsOf(TagConnections))
	assert.Nil(t, FieldsOf(TagUnknown))

	// Callers get a copy.
	f := FieldsOf(TagConnections)
	f[0] = "changed"
	assert.Equal(t, "Project", FieldsOf(TagConnections)[0])
}

func TestDefinitions_Order(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, TagTestCases, defs[0].Tag)
	assert.Equal(t, TagConnections, defs[1].Tag)
	assert.Equal(t, "Project", defs[1].KeyField)
	assert.Empty(t, defs[0].KeyField)
}

func TestParseTag(t *testing.T) {
	for _, in := range []string{"testcases", "TestCases", " tc "} {
		tag, err := ParseTag(in)
		require.NoError(t, err, in)
		assert.Equal(t, TagTestCases, tag)
	}
	for _, in := range []string{"connections", "Connection", "conn"} {
		tag, err := ParseTag(in)
		require.NoError(t, err, in)
		assert.Equal(t, TagConnections, tag)
	}
	_, err := ParseTag("widgets")
	assert.Error(t, err)
}

func TestCanonicalField(t *testing.T) {
	f, ok := CanonicalField(TagTestCases, " tcid ")
	assert.True(t, ok)
	assert.Equal(t, "TCID", f)

	_, ok = CanonicalField(TagConnections, "TCID")
	assert.False(t, ok)
}

func TestDetect(t *testing.T) {
	both := append(append([]string{}, TestCaseFields...), ConnectionFields...)

	tests := []struct {
		name   string
		header []string
		want   Tag
	}{
		{"test case header", TestCaseFields, TagTestCases},
		{"connection header", ConnectionFields, TagConnections},
		{"both field sets prefer test cases", both, TagTestCases},
		{"case and whitespace ignored", []string{" project", "SERVER ", "database", "Warehouse", "role"}, TagConnections},
		{"order ignored", []string{"Role", "Warehouse", "Database", "Server", "Project"}, TagConnections},
		{"extra columns allowed", []string{"Project", "Server", "Database", "Warehouse", "Role", "Notes"}, TagConnections},
		{"missing one field", []string{"Project", "Server", "Database", "Warehouse"}, TagUnknown},
		{"test case header missing one field", TestCaseFields[1:], TagUnknown},
		{"empty header", []string{""}, TagUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.header))
		})
	}
}

func TestHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Role", " project ", "Server", "project"})

	assert.True(t, idx.Has("PROJECT"))
	assert.Equal(t, 3, idx["project"], "last occurrence wins")

	row := []string{"admin", "WH1", "acme", "WH2"}
	assert.Equal(t, "WH2", idx.Cell(row, "Project"))
	assert.Equal(t, "", idx.Cell(row[:2], "Server"), "short row")
	assert.Equal(t, "", idx.Cell(row, "Database"), "missing column")

	assert.Equal(t, []string{"Database", "Warehouse"}, idx.Missing(TagConnections))
}

func TestTestCaseFromRow(t *testing.T) {
	header := []string{"tcname", "Extra", "TCID"}
	idx := MakeHeaderIndex(header)

	tc := TestCaseFromRow([]string{"Orders check", "ignored", "T-1"}, idx)
	assert.Equal(t, "Orders check", tc.TCName)
	assert.Equal(t, "T-1", tc.TCID)
	assert.Empty(t, tc.Table)
	assert.Empty(t, tc.ID)
}

func TestConnectionFromRow_ShortRow(t *testing.T) {
	idx := MakeHeaderIndex(ConnectionFields)
	c := ConnectionFromRow([]string{"WH1", "acme.snowflakecomputing.com"}, idx)
	assert.Equal(t, Connection{Project: "WH1", Server: "acme.snowflakecomputing.com"}, c)
}

func TestFieldAccessors(t *testing.T) {
	var tc TestCase
	for i, f := range TestCaseFields {
		require.True(t, tc.SetField(f, strings.Repeat("x", i+1)), f)
	}
	for i, f := range TestCaseFields {
		assert.Equal(t, strings.Repeat("x", i+1), tc.Field(f), f)
	}
	assert.False(t, tc.SetField("_id", "nope"))
	assert.Empty(t, tc.ID)
	assert.Len(t, tc.Values(), len(TestCaseFields))

	var c Connection
	for _, f := range ConnectionFields {
		require.True(t, c.SetField(f, f+"-v"))
	}
	assert.Equal(t, []string{"Project-v", "Server-v", "Database-v", "Warehouse-v", "Role-v"}, c.Values())
	assert.Equal(t, "", c.Field("Nope"))
}

func TestNewTestCaseID(t *testing.T) {
	a, b := NewTestCaseID(), NewTestCaseID()
	assert.True(t, strings.HasPrefix(a, "tq_"))
	assert.NotEqual(t, a, b)
}

func TestTestCaseMatches(t *testing.T) {
	tc := TestCase{TCID: "T-9", TCName: "Revenue totals", SrcConnection: "Excel"}
	assert.True(t, tc.Matches(""))
	assert.True(t, tc.Matches("revenue"))
	assert.True(t, tc.Matches("EXCEL"))
	assert.False(t, tc.Matches("snowflake"))
}
