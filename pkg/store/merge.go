package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	ScansMerged      int
	ItemsMerged      int
	MatchesMerged    int
	ProvenanceMerged int
	SourcesProcessed int
}

// Merge combines multiple datastores into one.
// Scans, items and provenance are deduplicated via INSERT OR IGNORE on
// unique keys. An item's matches are copied whole from the first source
// that recorded any, and later sources never add to them.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}
	for _, sourcePath := range cfg.SourcePaths {
		if _, err := os.Stat(sourcePath); err != nil {
			return nil, fmt.Errorf("source database not found: %s", sourcePath)
		}
	}

	dest, err := NewSQLite(cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer dest.Close()

	stats := &MergeStats{}
	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(dest.db, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.ScansMerged += sourceStats.ScansMerged
		stats.ItemsMerged += sourceStats.ItemsMerged
		stats.MatchesMerged += sourceStats.MatchesMerged
		stats.ProvenanceMerged += sourceStats.ProvenanceMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// copySpec names the columns copied for one table. When itemColumn is
// non-negative, rows are skipped for items the destination already holds
// rows for, so the table is merged per item rather than per row.
type copySpec struct {
	table      string
	columns    string
	args       int
	itemColumn int
}

var mergeTables = []copySpec{
	{"scans", "id, started_at, command_json", 3, -1},
	{"items", "id, size", 2, -1},
	{"provenance", "item_id, type, path, repo_path, commit_hash", 5, -1},
	{"matches", "scan_id, item_id, ordinal, rule, raw_json", 5, 1},
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	// Opening through NewSQLite validates the schema version.
	source, err := NewSQLite(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer source.Close()

	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	counts := make([]int, len(mergeTables))
	for i, spec := range mergeTables {
		counts[i], err = copyTable(tx, source.db, spec)
		if err != nil {
			return nil, fmt.Errorf("merging %s: %w", spec.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return &MergeStats{
		ScansMerged:      counts[0],
		ItemsMerged:      counts[1],
		ProvenanceMerged: counts[2],
		MatchesMerged:    counts[3],
	}, nil
}

func copyTable(tx *sql.Tx, sourceDB *sql.DB, spec copySpec) (int, error) {
	var owned map[string]bool
	if spec.itemColumn >= 0 {
		var err error
		owned, err = existingItems(tx, spec.table)
		if err != nil {
			return 0, err
		}
	}

	rows, err := sourceDB.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", spec.columns, spec.table))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	placeholders := "?" + strings.Repeat(", ?", spec.args-1)
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", spec.table, spec.columns, placeholders))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	values := make([]any, spec.args)
	ptrs := make([]any, spec.args)
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return count, err
		}
		if owned != nil && owned[columnString(values[spec.itemColumn])] {
			continue
		}
		result, err := stmt.Exec(values...)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}

// existingItems returns the item IDs that already have rows in table.
func existingItems(tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.Query(fmt.Sprintf("SELECT DISTINCT item_id FROM %s", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items[id] = true
	}
	return items, rows.Err()
}

func columnString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
