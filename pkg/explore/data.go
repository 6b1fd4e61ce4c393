package explore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/yaraexec/pkg/store"
	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// exploreData holds all loaded data for the TUI.
type exploreData struct {
	store store.Store
	scans map[string]store.Scan
	items []*itemRow
}

// loadData opens a datastore and loads every matched item with its scan.
func loadData(storePath string) (*exploreData, error) {
	if storePath == store.MemoryPath {
		return nil, fmt.Errorf("cannot explore an in-memory store")
	}
	if _, err := os.Stat(storePath); err != nil {
		return nil, fmt.Errorf("datastore not found: %s", storePath)
	}

	s, err := store.New(store.Config{Path: storePath})
	if err != nil {
		return nil, fmt.Errorf("opening datastore: %w", err)
	}

	scans, err := s.GetScans()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("retrieving scans: %w", err)
	}
	scanMap := make(map[string]store.Scan, len(scans))
	for _, scan := range scans {
		scanMap[scan.ID] = scan
	}

	results, err := s.GetResults()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("retrieving results: %w", err)
	}

	rows := make([]*itemRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, buildItemRow(r))
	}

	return &exploreData{
		store: s,
		scans: scanMap,
		items: rows,
	}, nil
}

// buildItemRow creates an itemRow from a stored result.
func buildItemRow(r *types.ItemResult) *itemRow {
	row := &itemRow{
		ItemID:    r.ItemID,
		ScanID:    r.ScanID,
		Size:      r.Size,
		Paths:     r.Paths,
		RuleIDs:   r.RuleIDs(),
		Matches:   r.Matches,
		Extension: "-",
	}
	if len(r.Paths) > 0 {
		row.Path = r.Paths[0]
		row.Extension = extensionOf(row.Path)
	} else {
		row.Path = r.ItemID.Hex()
	}
	return row
}

// extensionOf returns the lower-cased extension of the item's name, or
// "-" when it has none. Archive members use the member name.
func extensionOf(path string) string {
	if i := strings.LastIndex(path, ":"); i >= 0 && i > strings.LastIndex(path, string(filepath.Separator)) {
		path = path[i+1:]
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "-"
	}
	return ext
}

// close closes the underlying store.
func (d *exploreData) close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
