package store

import (
	"fmt"
	"sync"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

type itemRecord struct {
	id     types.ItemID
	size   int64
	scanID string
}

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu         sync.RWMutex
	scans      []Scan
	items      map[types.ItemID]*itemRecord
	order      []types.ItemID // insertion order of items
	matches    map[types.ItemID][]*types.Match
	provenance map[types.ItemID][]types.Provenance
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		items:      make(map[types.ItemID]*itemRecord),
		matches:    make(map[types.ItemID][]*types.Match),
		provenance: make(map[types.ItemID][]types.Provenance),
	}
}

// AddScan records a scan run.
func (m *MemoryStore) AddScan(scan Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.scans {
		if s.ID == scan.ID {
			return nil
		}
	}
	scan.Command = append([]string(nil), scan.Command...)
	m.scans = append(m.scans, scan)
	return nil
}

// AddItem stores an item record.
func (m *MemoryStore) AddItem(id types.ItemID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[id]; exists {
		return nil
	}
	m.items[id] = &itemRecord{id: id, size: size}
	m.order = append(m.order, id)
	return nil
}

// ItemExists checks if an item has already been scanned.
func (m *MemoryStore) ItemExists(id types.ItemID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.items[id]
	return exists, nil
}

// AddProvenance associates provenance with an item.
func (m *MemoryStore) AddProvenance(id types.ItemID, prov types.Provenance) error {
	if _, _, _, err := provenanceColumns(prov); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.provenance[id] {
		if fmt.Sprintf("%#v", p) == fmt.Sprintf("%#v", prov) {
			return nil
		}
	}
	m.provenance[id] = append(m.provenance[id], prov)
	return nil
}

// AddMatches replaces the matches recorded for an item.
func (m *MemoryStore) AddMatches(scanID string, id types.ItemID, matches []*types.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.items[id]
	if !ok {
		return fmt.Errorf("unknown item %s", id.Hex())
	}
	rec.scanID = scanID
	m.matches[id] = append([]*types.Match(nil), matches...)
	return nil
}

// GetMatches retrieves matches for an item.
func (m *MemoryStore) GetMatches(id types.ItemID) ([]*types.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Match, len(m.matches[id]))
	copy(result, m.matches[id])
	return result, nil
}

// GetScans retrieves all scan runs.
func (m *MemoryStore) GetScans() ([]Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Scan, len(m.scans))
	copy(result, m.scans)
	return result, nil
}

// GetResults retrieves every item with at least one match.
func (m *MemoryStore) GetResults() ([]*types.ItemResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*types.ItemResult
	for _, id := range m.order {
		matches := m.matches[id]
		if len(matches) == 0 {
			continue
		}
		rec := m.items[id]

		var paths []string
		for _, p := range m.provenance[id] {
			paths = appendUnique(paths, p.Path())
		}

		results = append(results, &types.ItemResult{
			ScanID:  rec.scanID,
			ItemID:  id,
			Size:    rec.size,
			Paths:   paths,
			Matches: append([]*types.Match(nil), matches...),
		})
	}
	return results, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
