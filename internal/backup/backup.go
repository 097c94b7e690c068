// Package backup writes scheduled JSON snapshots of both record collections.
//
// Each run writes one file per kind, named <kind>-<UTC timestamp>.json, and
// prunes older snapshots beyond the configured count. A failed run is logged
// and does not stop the schedule.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/tqp/internal/config"
	"github.com/JonMunkholm/tqp/internal/schema"
)

const stampLayout = "20060102T150405Z"

// Exporter renders a collection as JSON.
type Exporter interface {
	ExportJSON(ctx context.Context, kind schema.Tag) ([]byte, error)
}

// Scheduler runs snapshots on a cron schedule.
type Scheduler struct {
	exp Exporter
	cfg config.BackupConfig
	now func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a scheduler. Nothing runs until Start.
func New(exp Exporter, cfg config.BackupConfig) *Scheduler {
	return &Scheduler{exp: exp, cfg: cfg, now: time.Now}
}

// Start validates the schedule, takes one snapshot immediately and then
// snapshots on every tick until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", s.cfg.Schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	slog.Info("backup scheduler started",
		"schedule", s.cfg.Schedule,
		"dir", s.cfg.Dir,
		"keep", s.cfg.Keep,
	)

	s.run(ctx)
	c.Start()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running snapshot to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		slog.Info("backup scheduler stopped")
	}
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	files, err := s.Snapshot(ctx)
	if err != nil {
		slog.Error("backup failed", "error", err)
		return
	}
	slog.Info("backup written",
		"files", len(files),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Snapshot writes one JSON file per record kind and prunes old ones.
// It returns the paths written.
func (s *Scheduler) Snapshot(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	stamp := s.now().UTC().Format(stampLayout)
	var written []string

	for _, def := range schema.Definitions() {
		data, err := s.exp.ExportJSON(ctx, def.Tag)
		if err != nil {
			return written, fmt.Errorf("export %s: %w", def.Tag, err)
		}

		path := filepath.Join(s.cfg.Dir, fmt.Sprintf("%s-%s.json", def.FileName, stamp))
		if err := writeAtomic(path, data); err != nil {
			return written, err
		}
		written = append(written, path)

		if err := s.prune(def.FileName); err != nil {
			slog.Warn("backup prune failed", "kind", def.Tag, "error", err)
		}
	}

	return written, nil
}

// Snapshots lists existing snapshot files for kind, oldest first.
func (s *Scheduler) Snapshots(kind schema.Tag) ([]string, error) {
	def, ok := schema.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	return s.list(def.FileName)
}

func (s *Scheduler) list(base string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.cfg.Dir, base+"-*.json"))
	if err != nil {
		return nil, err
	}
	// Timestamps sort lexically in time order.
	sort.Strings(matches)
	return matches, nil
}

func (s *Scheduler) prune(base string) error {
	if s.cfg.Keep <= 0 {
		return nil
	}
	files, err := s.list(base)
	if err != nil {
		return err
	}
	for len(files) > s.cfg.Keep {
		if err := os.Remove(files[0]); err != nil && !os.IsNotExist(err) {
			return err
		}
		files = files[1:]
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
