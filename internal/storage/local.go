package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/dqlens/internal/models"
)

// TimestampLayout is the filename-safe timestamp of history files
const TimestampLayout = "2006-01-02T15-04-05"

// ErrNoSnapshots is returned when the history directory holds no snapshots
var ErrNoSnapshots = errors.New("no snapshots found")

// LocalStore implements Store over <baseDir>/snapshots/<timestamp>.{json,yaml,yml}
type LocalStore struct {
	baseDir string
}

// NewLocal creates a new local store
func NewLocal(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

// GetStoragePath returns the base directory
func (s *LocalStore) GetStoragePath() string {
	return s.baseDir
}

// SnapshotsDir returns the directory history files are read from
func (s *LocalStore) SnapshotsDir() string {
	return filepath.Join(s.baseDir, "snapshots")
}

// FileName returns the history file name for a timestamp
func FileName(ts time.Time, ext string) string {
	return ts.UTC().Format(TimestampLayout) + ext
}

// LoadSnapshot loads the snapshot taken at a specific timestamp
func (s *LocalStore) LoadSnapshot(timestamp time.Time) (*models.Snapshot, error) {
	files, err := s.index()
	if err != nil {
		return nil, err
	}
	path, ok := files[timestamp.UTC()]
	if !ok {
		return nil, fmt.Errorf("snapshot not found: %s", timestamp.UTC().Format(TimestampLayout))
	}
	return s.loadHistoryFile(path, timestamp)
}

// GetLatest retrieves the most recent snapshot
func (s *LocalStore) GetLatest() (*models.Snapshot, error) {
	timestamps, err := s.ListSnapshots()
	if err != nil {
		return nil, err
	}
	if len(timestamps) == 0 {
		return nil, ErrNoSnapshots
	}
	return s.LoadSnapshot(timestamps[len(timestamps)-1])
}

// GetLastN retrieves the last N snapshots, oldest first. Files that fail to
// load are skipped.
func (s *LocalStore) GetLastN(n int) ([]*models.Snapshot, error) {
	timestamps, err := s.ListSnapshots()
	if err != nil {
		return nil, err
	}
	if len(timestamps) == 0 {
		return nil, ErrNoSnapshots
	}

	start := len(timestamps) - n
	if start < 0 {
		start = 0
	}

	snaps := make([]*models.Snapshot, 0, len(timestamps)-start)
	for _, ts := range timestamps[start:] {
		snap, err := s.LoadSnapshot(ts)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// ListSnapshots returns all snapshot timestamps sorted chronologically
func (s *LocalStore) ListSnapshots() ([]time.Time, error) {
	files, err := s.index()
	if err != nil {
		return nil, err
	}

	timestamps := make([]time.Time, 0, len(files))
	for ts := range files {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i].Before(timestamps[j])
	})
	return timestamps, nil
}

// index maps timestamps parsed from file names to paths. Files with other
// names are ignored.
func (s *LocalStore) index() (map[time.Time]string, error) {
	dir := s.SnapshotsDir()
	files := make(map[time.Time]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}
		return nil, fmt.Errorf("failed to read snapshots directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := formatByExt[ext]; !ok {
			continue
		}
		ts, err := time.Parse(TimestampLayout, strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil {
			continue
		}
		files[ts] = filepath.Join(dir, name)
	}
	return files, nil
}

// loadHistoryFile loads a history file. The file name wins over a missing
// timestamp inside the document.
func (s *LocalStore) loadHistoryFile(path string, ts time.Time) (*models.Snapshot, error) {
	snap, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = ts.UTC()
	}
	return snap, nil
}
