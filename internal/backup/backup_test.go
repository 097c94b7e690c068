package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tqp/internal/config"
	"github.com/JonMunkholm/tqp/internal/interchange"
	"github.com/JonMunkholm/tqp/internal/schema"
	"github.com/JonMunkholm/tqp/internal/store"
)

func clock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Hour)
		return t
	}
}

func TestSnapshot_WritesAndPrunes(t *testing.T) {
	ctx := context.Background()
	svc := interchange.NewService(store.New(store.NewMemory()))
	_, err := svc.SaveConnection(ctx, schema.Connection{Project: "WH1"})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "backups")
	s := New(svc, config.BackupConfig{Schedule: "@daily", Dir: dir, Keep: 2})
	s.now = clock(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	files, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "testcases-20260102T010000Z.json", filepath.Base(files[0]))
	assert.Equal(t, "connections-20260102T010000Z.json", filepath.Base(files[1]))

	data, err := os.ReadFile(files[1])
	require.NoError(t, err)
	var conns []schema.Connection
	require.NoError(t, json.Unmarshal(data, &conns))
	assert.Equal(t, []schema.Connection{{Project: "WH1"}}, conns)

	for i := 0; i < 3; i++ {
		_, err := s.Snapshot(ctx)
		require.NoError(t, err)
	}

	kept, err := s.Snapshots(schema.TagConnections)
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, "connections-20260102T030000Z.json", filepath.Base(kept[0]))
	assert.Equal(t, "connections-20260102T040000Z.json", filepath.Base(kept[1]))

	leftovers, err := filepath.Glob(filepath.Join(dir, ".backup-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

type failingExporter struct{}

func (failingExporter) ExportJSON(context.Context, schema.Tag) ([]byte, error) {
	return nil, errors.New("store down")
}

func TestSnapshot_ExportError(t *testing.T) {
	s := New(failingExporter{}, config.BackupConfig{Dir: t.TempDir()})
	files, err := s.Snapshot(context.Background())
	assert.ErrorContains(t, err, "store down")
	assert.Empty(t, files)
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := New(failingExporter{}, config.BackupConfig{Schedule: "every tuesday", Dir: t.TempDir()})
	assert.ErrorContains(t, s.Start(context.Background()), "invalid backup schedule")
}

func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	dir := t.TempDir()
	svc := interchange.NewService(store.New(store.NewMemory()))
	s := New(svc, config.BackupConfig{Schedule: "@hourly", Dir: dir, Keep: 5})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	files, err := s.Snapshots(schema.TagTestCases)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	s.Stop()
	s.Stop() // idempotent
}
