package interchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tqp/internal/schema"
)

func TestPreview_Connections(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)
	_, err := svc.SaveConnection(ctx, schema.Connection{Project: "WH1"})
	require.NoError(t, err)
	puts := mem.Puts()

	data := []byte("Project,Server,Database,Warehouse,Role,Notes\nWH1,a,,,,x\n\nWH2,b,,,,\nWH2,c,,,,\n")
	p, err := svc.Preview(ctx, "c.csv", data)
	require.NoError(t, err)

	assert.Equal(t, schema.TagConnections, p.Kind)
	assert.Equal(t, 3, p.Rows)
	assert.Equal(t, 2, p.BlankRows, "inner blank line and trailing newline")
	assert.Equal(t, 1, p.Added)
	assert.Equal(t, 2, p.Updated)
	assert.Equal(t, []string{"Notes"}, p.IgnoredColumns)
	require.Len(t, p.Samples, 3)
	assert.Equal(t, RowPreview{LineNumber: 2, Action: "update", Values: map[string]string{
		"Project": "WH1", "Server": "a", "Database": "", "Warehouse": "", "Role": "",
	}}, p.Samples[0])
	assert.Equal(t, 4, p.Samples[1].LineNumber)

	assert.Equal(t, puts, mem.Puts(), "preview never writes")
}

func TestPreview_TestCases(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := svc.Preview(context.Background(), "tc.csv", []byte(testCaseCSV("a", "b")))
	require.NoError(t, err)
	assert.Equal(t, schema.TagTestCases, p.Kind)
	assert.Equal(t, 2, p.Added)
	assert.Zero(t, p.Updated)
	assert.Empty(t, p.IgnoredColumns)
}

func TestPreview_UnknownHeader(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := svc.Preview(context.Background(), "x.csv", []byte("Project,Server\nWH1,a\n"))
	require.ErrorIs(t, err, ErrUnknownSchema)
	require.NotNil(t, p)
	assert.Equal(t, []string{"Database", "Warehouse", "Role"}, p.Missing[schema.TagConnections])
	assert.Len(t, p.Missing[schema.TagTestCases], len(schema.TestCaseFields))
}

func TestPreview_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Preview(context.Background(), "x.csv", nil)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = svc.Preview(context.Background(), "x.json", []byte("[]"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
