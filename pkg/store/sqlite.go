package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite serializes writers, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddScan records a scan run.
func (s *SQLiteStore) AddScan(scan Scan) error {
	commandJSON, err := json.Marshal(scan.Command)
	if err != nil {
		return fmt.Errorf("marshaling command: %w", err)
	}

	_, err = s.db.Exec("INSERT OR IGNORE INTO scans (id, started_at, command_json) VALUES (?, ?, ?)",
		scan.ID, scan.StartedAt.UTC().Format(time.RFC3339Nano), string(commandJSON))
	if err != nil {
		return fmt.Errorf("inserting scan: %w", err)
	}
	return nil
}

// AddItem stores an item record.
func (s *SQLiteStore) AddItem(id types.ItemID, size int64) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO items (id, size) VALUES (?, ?)", id.Hex(), size)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// ItemExists checks if an item has already been scanned.
func (s *SQLiteStore) ItemExists(id types.ItemID) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM items WHERE id = ?", id.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking item existence: %w", err)
	}
	return count > 0, nil
}

// provenanceColumns flattens a provenance into its stored columns.
func provenanceColumns(prov types.Provenance) (path, repoPath, commitHash string, err error) {
	switch p := prov.(type) {
	case types.FileProvenance, types.ArchiveProvenance, types.InlineProvenance:
		return p.Path(), "", "", nil
	case types.GitProvenance:
		if p.Commit != nil {
			commitHash = p.Commit.CommitID
		}
		return p.BlobPath, p.RepoPath, commitHash, nil
	default:
		return "", "", "", fmt.Errorf("unknown provenance type: %T", prov)
	}
}

// AddProvenance associates provenance with an item.
func (s *SQLiteStore) AddProvenance(id types.ItemID, prov types.Provenance) error {
	path, repoPath, commitHash, err := provenanceColumns(prov)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO provenance (item_id, type, path, repo_path, commit_hash)
		VALUES (?, ?, ?, ?, ?)
	`, id.Hex(), prov.Kind(), path, repoPath, commitHash)
	if err != nil {
		return fmt.Errorf("inserting provenance: %w", err)
	}
	return nil
}

// AddMatches replaces the matches recorded for an item.
func (s *SQLiteStore) AddMatches(scanID string, id types.ItemID, matches []*types.Match) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM matches WHERE item_id = ?", id.Hex()); err != nil {
		return fmt.Errorf("clearing matches: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO matches (scan_id, item_id, ordinal, rule, raw_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range matches {
		rawJSON, err := json.Marshal(m.Raw)
		if err != nil {
			return fmt.Errorf("marshaling raw tokens: %w", err)
		}
		if _, err := stmt.Exec(scanID, id.Hex(), i, m.Rule, string(rawJSON)); err != nil {
			return fmt.Errorf("inserting match: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetMatches retrieves matches for an item.
func (s *SQLiteStore) GetMatches(id types.ItemID) ([]*types.Match, error) {
	matches, _, err := s.matchesFor(id)
	return matches, err
}

// matchesFor returns an item's matches and the scan that recorded them.
func (s *SQLiteStore) matchesFor(id types.ItemID) ([]*types.Match, string, error) {
	rows, err := s.db.Query(`
		SELECT scan_id, rule, raw_json
		FROM matches
		WHERE item_id = ?
		ORDER BY ordinal
	`, id.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	matches := []*types.Match{}
	var scanID string
	for rows.Next() {
		var m types.Match
		var rawJSON string
		if err := rows.Scan(&scanID, &m.Rule, &rawJSON); err != nil {
			return nil, "", fmt.Errorf("scanning match: %w", err)
		}
		if err := json.Unmarshal([]byte(rawJSON), &m.Raw); err != nil {
			return nil, "", fmt.Errorf("unmarshaling raw tokens: %w", err)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterating matches: %w", err)
	}

	return matches, scanID, nil
}

// GetScans retrieves all scan runs.
func (s *SQLiteStore) GetScans() ([]Scan, error) {
	rows, err := s.db.Query("SELECT id, started_at, command_json FROM scans ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var scan Scan
		var startedAt, commandJSON string
		if err := rows.Scan(&scan.ID, &startedAt, &commandJSON); err != nil {
			return nil, fmt.Errorf("scanning scan: %w", err)
		}
		scan.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing scan start time: %w", err)
		}
		if err := json.Unmarshal([]byte(commandJSON), &scan.Command); err != nil {
			return nil, fmt.Errorf("unmarshaling command: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scans: %w", err)
	}
	return scans, nil
}

// GetResults retrieves every item with at least one match.
func (s *SQLiteStore) GetResults() ([]*types.ItemResult, error) {
	// Collect items first; the single connection cannot serve nested queries.
	rows, err := s.db.Query(`
		SELECT i.id, i.size
		FROM items i
		WHERE EXISTS (SELECT 1 FROM matches m WHERE m.item_id = i.id)
		ORDER BY i.rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}

	var results []*types.ItemResult
	for rows.Next() {
		var idHex string
		var r types.ItemResult
		if err := rows.Scan(&idHex, &r.Size); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		r.ItemID, err = types.ParseItemID(idHex)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("parsing item ID: %w", err)
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	rows.Close()

	for _, r := range results {
		r.Matches, r.ScanID, err = s.matchesFor(r.ItemID)
		if err != nil {
			return nil, err
		}
		r.Paths, err = s.paths(r.ItemID)
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// paths returns the display paths recorded for an item.
func (s *SQLiteStore) paths(id types.ItemID) ([]string, error) {
	rows, err := s.db.Query("SELECT type, path FROM provenance WHERE item_id = ? ORDER BY id", id.Hex())
	if err != nil {
		return nil, fmt.Errorf("querying provenance: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var kind, path string
		if err := rows.Scan(&kind, &path); err != nil {
			return nil, fmt.Errorf("scanning provenance: %w", err)
		}
		paths = appendUnique(paths, path)
	}
	return paths, rows.Err()
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
