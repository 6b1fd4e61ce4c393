package store

import (
	"fmt"
	"time"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// MemoryPath selects the in-memory backend.
const MemoryPath = ":memory:"

// Scan describes one scan run.
type Scan struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	// Command is the scanner invocation prefix: executable then flags.
	Command []string `json:"command"`
}

// Store provides persistence for scan results.
type Store interface {
	// AddScan records a scan run.
	AddScan(scan Scan) error

	// AddItem stores an item record. Adding an existing item is a no-op.
	AddItem(id types.ItemID, size int64) error

	// ItemExists checks if an item has already been scanned.
	ItemExists(id types.ItemID) (bool, error)

	// AddProvenance associates provenance with an item.
	AddProvenance(id types.ItemID, prov types.Provenance) error

	// AddMatches replaces the matches recorded for an item, keeping their order.
	AddMatches(scanID string, id types.ItemID, matches []*types.Match) error

	// GetMatches retrieves the matches for an item in scanner output order.
	GetMatches(id types.ItemID) ([]*types.Match, error)

	// GetScans retrieves all scan runs in insertion order.
	GetScans() ([]Scan, error)

	// GetResults retrieves every item that has at least one match, in the
	// order items were added.
	GetResults() ([]*types.ItemResult, error)

	// Close releases the underlying resources.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for an in-memory store (useful for testing).
	Path string
}

// New creates a Store: MemoryStore for ":memory:", SQLite otherwise.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if cfg.Path == MemoryPath {
		return NewMemory(), nil
	}

	return NewSQLite(cfg.Path)
}
