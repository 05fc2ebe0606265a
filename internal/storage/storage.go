package storage

import (
	"time"

	"github.com/ppiankov/dqlens/internal/models"
)

// Store defines read access to snapshot history. Snapshots are written by
// external ingestion jobs; dqlens never writes history.
type Store interface {
	// LoadSnapshot loads the snapshot taken at a specific timestamp
	LoadSnapshot(timestamp time.Time) (*models.Snapshot, error)

	// GetLatest retrieves the most recent snapshot
	GetLatest() (*models.Snapshot, error)

	// GetLastN retrieves the last N snapshots, oldest first
	GetLastN(n int) ([]*models.Snapshot, error)

	// ListSnapshots returns all available snapshot timestamps
	ListSnapshots() ([]time.Time, error)
}
