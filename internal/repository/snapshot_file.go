package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	applogger "PricePulse/pkg/logger"
)

const (
	snapshotPrefix = "snapshot_"
	snapshotSuffix = ".csv"
	// SnapshotTimeLayout is the timestamp encoded in snapshot file names.
	SnapshotTimeLayout = "2006-01-02_15-04-05"
)

var _ domrepo.SnapshotRepository = (*FileSnapshotStore)(nil)

// FileSnapshotStore keeps one CSV per snapshot under dir.
type FileSnapshotStore struct {
	dir string
	l   *applogger.Logger
}

func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{dir: dir}
}

// SetLogger injects a structured logger.
func (s *FileSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

// SnapshotFileName is the file name for a snapshot taken at ts.
func SnapshotFileName(ts time.Time) string {
	return snapshotPrefix + ts.UTC().Format(SnapshotTimeLayout) + snapshotSuffix
}

type snapshotFile struct {
	path string
	ts   time.Time
}

func (s *FileSnapshotStore) list() ([]snapshotFile, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	files := make([]snapshotFile, 0, len(entries))
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
		ts, err := time.ParseInLocation(SnapshotTimeLayout, raw, time.UTC)
		if err != nil {
			if s.l != nil {
				s.l.Warn("snapshot file name ignored", applogger.String("file", name))
			}
			continue
		}
		files = append(files, snapshotFile{path: filepath.Join(s.dir, name), ts: ts})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ts.Before(files[j].ts) })
	return files, nil
}

func (s *FileSnapshotStore) Latest(ctx context.Context, n int) ([]models.Snapshot, error) {
	files, err := s.list()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(files) > n {
		files = files[len(files)-n:]
	}
	out := make([]models.Snapshot, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := s.read(f)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *FileSnapshotStore) read(f snapshotFile) (models.Snapshot, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer fh.Close()
	entities, err := ReadSnapshotCSV(fh, filepath.Base(f.path))
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return models.Snapshot{Timestamp: f.ts, Entities: entities}, nil
}

// Put writes a new snapshot file. An existing file for the same timestamp is
// never rewritten.
func (s *FileSnapshotStore) Put(_ context.Context, snap models.Snapshot) error {
	path := filepath.Join(s.dir, SnapshotFileName(snap.Timestamp))
	if _, err := os.Stat(path); err == nil {
		if s.l != nil {
			s.l.Info("snapshot already stored", applogger.String("file", filepath.Base(path)))
		}
		return nil
	}
	err := writeAtomic(path, func(w io.Writer) error { return WriteSnapshotCSV(w, snap.Entities) })
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}
