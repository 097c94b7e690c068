package interchange

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/schema"
)

func TestExportCSV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.SaveConnection(ctx, schema.Connection{Project: "WH1", Server: "a,b", Role: `say "x"`})
	require.NoError(t, err)
	_, err = svc.SaveConnection(ctx, schema.Connection{Project: "WH2"})
	require.NoError(t, err)

	exp, err := svc.Export(ctx, schema.TagConnections, FormatCSV)
	require.NoError(t, err)
	text := string(exp.Data)
	assert.Equal(t, "Project,Server,Database,Warehouse,Role\nWH1,\"a,b\",,,\"say \"\"x\"\"\"\nWH2,,,,\n", text)

	// Re-importing the export into a fresh store yields the same collection.
	other, _ := newTestService(t)
	_, err = other.ImportCSV(ctx, "connections.csv", []byte(text))
	require.NoError(t, err)
	want, _ := svc.ListConnections(ctx)
	got, _ := other.ListConnections(ctx)
	assert.Equal(t, want, got)
}

func TestExportCSV_EmptyCollection(t *testing.T) {
	svc, _ := newTestService(t)
	exp, err := svc.Export(context.Background(), schema.TagTestCases, "")
	require.NoError(t, err)
	assert.Zero(t, exp.Rows)

	rows := csvcodec.Decode(string(exp.Data))
	assert.Equal(t, schema.TestCaseFields, rows[0])
	assert.True(t, csvcodec.IsBlankRow(rows[1]))
}

func TestExportJSON(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.SaveTestCase(ctx, schema.TestCase{TCName: "n", SrcConnection: "a", TgtConnection: "b"})
	require.NoError(t, err)

	data, err := svc.ExportJSON(ctx, schema.TagTestCases)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"_id\": \"id-1\",")

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Len(t, decoded[0], len(schema.TestCaseFields)+1)
	assert.Equal(t, "n", decoded[0]["TCName"])

	empty, err := svc.ExportJSON(ctx, schema.TagConnections)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestExport_Formats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.SaveConnection(ctx, schema.Connection{Project: "WH1", Server: "00123"})
	require.NoError(t, err)

	tests := []struct {
		format   Format
		fileName string
		ctype    string
	}{
		{FormatCSV, "connections.csv", "text/csv; charset=utf-8"},
		{FormatJSON, "connections.json", "application/json"},
		{FormatXLSX, "connections.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			exp, err := svc.Export(ctx, schema.TagConnections, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.fileName, exp.FileName)
			assert.Equal(t, tt.ctype, exp.ContentType)
			assert.Equal(t, 1, exp.Rows)
			assert.NotEmpty(t, exp.Data)
		})
	}

	_, err = svc.Export(ctx, schema.TagUnknown, FormatCSV)
	assert.ErrorIs(t, err, ErrUnknownSchema)
	_, err = svc.Export(ctx, schema.TagConnections, Format("pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportXLSX_ImportsBack(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.SaveConnection(ctx, schema.Connection{Project: "WH1", Server: "00123", Role: "r"})
	require.NoError(t, err)

	exp, err := svc.Export(ctx, schema.TagConnections, FormatXLSX)
	require.NoError(t, err)

	headers, err := ReadHeaders(bytes.NewReader(exp.Data), "")
	require.NoError(t, err)
	assert.Equal(t, schema.ConnectionFields, headers)

	other, _ := newTestService(t)
	res, err := other.ImportXLSX(ctx, "connections.xlsx", exp.Data)
	require.NoError(t, err)
	assert.Equal(t, schema.TagConnections, res.Kind)

	got, err := other.ListConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []schema.Connection{{Project: "WH1", Server: "00123", Role: "r"}}, got)
}

func TestImportXLSX_NotAWorkbook(t *testing.T) {
	svc, mem := newTestService(t)
	_, err := svc.ImportXLSX(context.Background(), "bad.xlsx", []byte("Project,Server\n"))
	assert.Error(t, err)
	assert.Zero(t, mem.Puts())
}

func TestTemplate(t *testing.T) {
	text, err := Template(schema.TagConnections)
	require.NoError(t, err)
	assert.Equal(t, "Project,Server,Database,Warehouse,Role\n", text)

	text, err = Template(schema.TagTestCases)
	require.NoError(t, err)
	assert.Equal(t, schema.TagTestCases, schema.Detect(csvcodec.Decode(text)[0]))

	_, err = Template(schema.TagUnknown)
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, " json ": FormatJSON, "xlsx": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
