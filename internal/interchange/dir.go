package interchange

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/logging"
	"github.com/JonMunkholm/tqp/internal/schema"
)

// ImportedDir is the subdirectory that successfully imported files are
// moved into by ImportDir and the Watcher.
const ImportedDir = "Imported"

// Importable reports whether name has an extension Import understands.
func Importable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".json", ".xlsx":
		return true
	}
	return false
}

// ImportFile reads path and imports it. kind is only consulted for JSON.
func (s *Service) ImportFile(ctx context.Context, path string, kind schema.Tag) (*Result, error) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return &Result{Kind: schema.TagUnknown, FileName: name}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	data, err := csvcodec.ReadLimited(f, s.maxFileSize)
	if err != nil {
		return &Result{Kind: schema.TagUnknown, FileName: name}, fmt.Errorf("%s: %w", name, err)
	}

	return s.Import(ctx, name, data, kind)
}

// FileResult is the outcome for one file of ImportDir.
type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// ImportDir imports every importable file directly inside dir, in name
// order. Each file that imports cleanly is moved to dir/Imported so a later
// run does not apply it twice. Failed files stay where they are. A file that
// imported but could not be moved reports ErrNotArchived with its Result.
func (s *Service) ImportDir(ctx context.Context, dir string) ([]FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && Importable(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	results := make([]FileResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.importAndArchive(ctx, path)
		results = append(results, FileResult{Path: path, Result: res, Err: err})
	}
	return results, nil
}

// fileStamp identifies one version of a file on disk.
type fileStamp struct {
	size int64
	mod  time.Time
}

func stampOf(info os.FileInfo) fileStamp {
	return fileStamp{size: info.Size(), mod: info.ModTime()}
}

// importAndArchive imports path and moves it to Imported. When the move
// fails the file is remembered, and the same unchanged file is refused with
// ErrNotArchived instead of being applied again.
func (s *Service) importAndArchive(ctx context.Context, path string) (*Result, error) {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil {
		return &Result{Kind: schema.TagUnknown, FileName: name}, fmt.Errorf("stat %s: %w", name, err)
	}

	s.stuckMu.Lock()
	prev, seen := s.stuck[path]
	s.stuckMu.Unlock()
	if seen {
		if prev == stampOf(info) {
			return &Result{Kind: schema.TagUnknown, FileName: name},
				fmt.Errorf("%s: %w: already applied, not importing again", name, ErrNotArchived)
		}
		s.forgetStuck(path)
	}

	res, err := s.ImportFile(ctx, path, schema.TagUnknown)
	if err != nil {
		return res, err
	}
	if err := archiveFile(path); err != nil {
		logging.FromContext(ctx).Warn("imported file could not be moved",
			"file", path,
			"error", err,
		)
		s.stuckMu.Lock()
		s.stuck[path] = stampOf(info)
		s.stuckMu.Unlock()
		return res, fmt.Errorf("%s: %w: %w", name, ErrNotArchived, err)
	}
	return res, nil
}

func (s *Service) forgetStuck(path string) {
	s.stuckMu.Lock()
	delete(s.stuck, path)
	s.stuckMu.Unlock()
}

// archiveFile moves path into the Imported subdirectory next to it. An
// existing file of the same name is replaced.
func archiveFile(path string) error {
	dest := filepath.Join(filepath.Dir(path), ImportedDir)
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	target := filepath.Join(dest, filepath.Base(path))
	if err := os.Rename(path, target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
