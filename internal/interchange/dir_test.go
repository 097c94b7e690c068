package interchange

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tqp/internal/schema"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportDir(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	dir := t.TempDir()

	writeFile(t, dir, "b_connections.csv", connectionsCSV)
	writeFile(t, dir, "a_testcases.csv", testCaseCSV("Orders"))
	writeFile(t, dir, "c_bad.csv", "Name\nx\n")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	results, err := svc.ImportDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a_testcases.csv", filepath.Base(results[0].Path))
	assert.NoError(t, results[0].Err)
	assert.Equal(t, schema.TagTestCases, results[0].Result.Kind)
	assert.NoError(t, results[1].Err)
	assert.ErrorIs(t, results[2].Err, ErrUnknownSchema)

	assert.FileExists(t, filepath.Join(dir, ImportedDir, "a_testcases.csv"))
	assert.FileExists(t, filepath.Join(dir, ImportedDir, "b_connections.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "a_testcases.csv"))
	assert.FileExists(t, filepath.Join(dir, "c_bad.csv"), "failed file stays")
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))

	// A second run finds nothing new to apply.
	results, err = svc.ImportDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, results, 1)

	counts, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{TestCases: 1, Connections: 1}, counts)
}

func TestImportDir_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ImportDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestImportFile_SizeLimit(t *testing.T) {
	svc, _ := newTestService(t, WithMaxFileSize(8))
	path := writeFile(t, t.TempDir(), "c.csv", connectionsCSV)
	_, err := svc.ImportFile(context.Background(), path, "")
	assert.Equal(t, "FILE001", MapError(err).Code)
}

func TestWatcher_ImportsDroppedFiles(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()
	writeFile(t, dir, "existing.csv", connectionsCSV)

	w, err := NewWatcher(svc, dir, 20*time.Millisecond)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen []string
	)
	w.OnImport = func(r FileResult) {
		mu.Lock()
		defer mu.Unlock()
		if r.Err == nil {
			seen = append(seen, filepath.Base(r.Path))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 5*time.Second, 10*time.Millisecond, "existing file imported on start")

	writeFile(t, dir, "dropped.csv", testCaseCSV("Dropped"))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, ImportedDir, "dropped.csv"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	list, err := svc.ListTestCases(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Dropped", list[0].TCName)
}

func TestImportDir_UnmovableFileNotAppliedTwice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "tc.csv", testCaseCSV("Orders"))
	// A plain file where the Imported directory should go blocks the move.
	writeFile(t, dir, ImportedDir, "")

	results, err := svc.ImportDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrNotArchived)
	require.NotNil(t, results[0].Result)
	assert.Equal(t, 1, results[0].Result.Imported)
	assert.Equal(t, "FILE002", MapError(results[0].Err).Code)

	results, err = svc.ImportDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrNotArchived)

	list, err := svc.ListTestCases(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// A changed file is new content and imports again.
	require.NoError(t, os.WriteFile(path, []byte(testCaseCSV("Orders", "Refunds")), 0644))
	results, err = svc.ImportDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Result.Imported)

	list, err = svc.ListTestCases(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
