package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

func TestMerge_EmptySources(t *testing.T) {
	_, err := Merge(MergeConfig{DestPath: filepath.Join(t.TempDir(), "dest.db")})
	assert.ErrorContains(t, err, "no source databases")
}

func TestMerge_NoDestination(t *testing.T) {
	_, err := Merge(MergeConfig{SourcePaths: []string{"source.db"}})
	assert.ErrorContains(t, err, "destination path is required")
}

// seed writes one scan with one matched item into a new database.
func seed(t *testing.T, path, scanID string, content string, rules ...string) types.ItemID {
	t.Helper()
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	id := types.ComputeItemID([]byte(content))
	require.NoError(t, s.AddScan(Scan{ID: scanID, StartedAt: time.Now(), Command: []string{"yara"}}))
	require.NoError(t, s.AddItem(id, int64(len(content))))
	require.NoError(t, s.AddProvenance(id, types.FileProvenance{FilePath: content + ".bin"}))

	var matches []*types.Match
	for _, r := range rules {
		matches = append(matches, match(r, content))
	}
	require.NoError(t, s.AddMatches(scanID, id, matches))
	return id
}

func TestMerge_MultipleSources(t *testing.T) {
	dir := t.TempDir()
	src1 := filepath.Join(dir, "one.db")
	src2 := filepath.Join(dir, "two.db")
	dest := filepath.Join(dir, "dest.db")

	shared := seed(t, src1, "scan-1", "shared", "A", "B")
	seed(t, src2, "scan-2", "shared", "A", "B")
	unique := seed(t, src2, "scan-3", "unique", "C")

	stats, err := Merge(MergeConfig{SourcePaths: []string{src1, src2}, DestPath: dest})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.SourcesProcessed)
	assert.Equal(t, 3, stats.ScansMerged)
	assert.Equal(t, 2, stats.ItemsMerged)
	assert.Equal(t, 3, stats.MatchesMerged, "shared item's matches are not duplicated")

	s, err := NewSQLite(dest)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetMatches(shared)
	require.NoError(t, err)
	assert.Equal(t, []*types.Match{match("A", "shared"), match("B", "shared")}, got)

	got, err = s.GetMatches(unique)
	require.NoError(t, err)
	assert.Equal(t, []*types.Match{match("C", "unique")}, got)

	results, err := s.GetResults()
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMerge_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := Merge(MergeConfig{
		SourcePaths: []string{filepath.Join(dir, "missing", "nope.db")},
		DestPath:    filepath.Join(dir, "dest.db"),
	})
	assert.ErrorContains(t, err, "source database not found")
}

func TestMerge_FirstSourceMatchesWinWhole(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.db")
	second := filepath.Join(dir, "second.db")
	dest := filepath.Join(dir, "dest.db")

	id := seed(t, first, "scan-1", "sample", "A")
	seed(t, second, "scan-2", "sample", "X", "Y")

	stats, err := Merge(MergeConfig{SourcePaths: []string{first, second}, DestPath: dest})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MatchesMerged)

	s, err := NewSQLite(dest)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetMatches(id)
	require.NoError(t, err)
	assert.Equal(t, []*types.Match{match("A", "sample")}, got)
}
