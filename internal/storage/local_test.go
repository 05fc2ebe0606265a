package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeHistory(t *testing.T, baseDir string, ts time.Time, ext, body string) {
	t.Helper()
	dir := filepath.Join(baseDir, "snapshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName(ts, ext)), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

const historyYAML = `version: dqlens/v1
observations:
  - id: "1"
    database: PROD_DB
    schema: SALES
    table: CUSTOMER_DATA
    metric: NULL_COUNT
    category: Accuracy
    value: 10
    status: passed
`

const historyJSON = `{"version":"dqlens/v1","timestamp":"2024-01-19T10:00:00Z","observations":[]}`

func TestNewLocal(t *testing.T) {
	s := NewLocal("/tmp/dqlens")
	if s.GetStoragePath() != "/tmp/dqlens" {
		t.Errorf("GetStoragePath = %s", s.GetStoragePath())
	}
	if s.SnapshotsDir() != filepath.Join("/tmp/dqlens", "snapshots") {
		t.Errorf("SnapshotsDir = %s", s.SnapshotsDir())
	}
}

func TestListSnapshotsEmpty(t *testing.T) {
	s := NewLocal(filepath.Join(t.TempDir(), "missing"))

	timestamps, err := s.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(timestamps) != 0 {
		t.Errorf("expected no snapshots, got %d", len(timestamps))
	}

	if _, err := s.GetLatest(); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("GetLatest err = %v, want ErrNoSnapshots", err)
	}
	if _, err := s.GetLastN(3); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("GetLastN err = %v, want ErrNoSnapshots", err)
	}
}

func TestListSnapshotsSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	t1 := time.Date(2024, 1, 18, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 19, 10, 0, 0, 0, time.UTC)
	t3 := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

	writeHistory(t, dir, t3, ".yml", historyYAML)
	writeHistory(t, dir, t1, ".yaml", historyYAML)
	writeHistory(t, dir, t2, ".json", historyJSON)

	// ignored: wrong extension, unparsable name, directory
	snapDir := filepath.Join(dir, "snapshots")
	_ = os.WriteFile(filepath.Join(snapDir, "notes.txt"), []byte("x"), 0644)
	_ = os.WriteFile(filepath.Join(snapDir, "latest.yaml"), []byte(historyYAML), 0644)
	_ = os.MkdirAll(filepath.Join(snapDir, "2024-01-21T10-00-00.yaml"), 0755)

	s := NewLocal(dir)
	timestamps, err := s.ListSnapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(timestamps) != 3 {
		t.Fatalf("timestamps = %v, want 3", timestamps)
	}
	for i, want := range []time.Time{t1, t2, t3} {
		if !timestamps[i].Equal(want) {
			t.Errorf("timestamps[%d] = %v, want %v", i, timestamps[i], want)
		}
	}

	latest, err := s.GetLatest()
	if err != nil {
		t.Fatal(err)
	}
	if !latest.Timestamp.Equal(t3) {
		t.Errorf("latest timestamp = %v, want file name time %v", latest.Timestamp, t3)
	}
	if len(latest.Observations) != 1 {
		t.Errorf("latest observations = %d", len(latest.Observations))
	}
}

func TestGetLastN(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		writeHistory(t, dir, base.Add(time.Duration(i)*24*time.Hour), ".yaml", historyYAML)
	}
	// a broken file is skipped
	writeHistory(t, dir, base.Add(10*24*time.Hour), ".yaml", "observations: [")

	s := NewLocal(dir)
	snaps, err := s.GetLastN(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("GetLastN(3) = %d snapshots, want 2 (one broken)", len(snaps))
	}
	if !snaps[0].Timestamp.Before(snaps[1].Timestamp) {
		t.Error("snapshots should be oldest first")
	}

	all, _ := s.GetLastN(100)
	if len(all) != 5 {
		t.Errorf("GetLastN(100) = %d, want 5", len(all))
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	s := NewLocal(t.TempDir())
	if _, err := s.LoadSnapshot(time.Now()); err == nil {
		t.Error("expected error for missing snapshot")
	}
}
