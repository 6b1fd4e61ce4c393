package explore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/yaraexec/pkg/store"
	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// seedStore writes a datastore with two matched items and one clean item.
func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explore.db")

	s, err := store.New(store.Config{Path: path})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddScan(store.Scan{ID: "scan-1", StartedAt: time.Now(), Command: []string{"yara", "-w"}}))

	add := func(content string, prov types.Provenance, matches ...*types.Match) {
		id := types.ComputeItemID([]byte(content))
		require.NoError(t, s.AddItem(id, int64(len(content))))
		require.NoError(t, s.AddProvenance(id, prov))
		require.NoError(t, s.AddMatches("scan-1", id, matches))
	}

	add("sample one", types.FileProvenance{FilePath: "/data/sample.exe"},
		&types.Match{Rule: "pe_executable", Raw: []string{"pe_executable", "/tmp/yara1"}},
		&types.Match{Rule: "eicar_test_file", Raw: []string{"eicar_test_file", "/tmp/yara1"}})
	add("sample two", types.ArchiveProvenance{ArchivePath: "/data/bundle.zip", MemberPath: "shell.PHP"},
		&types.Match{Rule: "php_webshell", Raw: []string{"php_webshell", "/tmp/yara2"}})
	add("clean", types.FileProvenance{FilePath: "/data/readme.txt"})

	return path
}

func TestLoadData(t *testing.T) {
	data, err := loadData(seedStore(t))
	require.NoError(t, err)
	defer data.close()

	require.Len(t, data.items, 2)
	assert.Contains(t, data.scans, "scan-1")

	first := data.items[0]
	assert.Equal(t, "/data/sample.exe", first.Path)
	assert.Equal(t, ".exe", first.Extension)
	assert.Equal(t, "scan-1", first.ScanID)
	assert.Len(t, first.Matches, 2)

	second := data.items[1]
	assert.Equal(t, "/data/bundle.zip:shell.PHP", second.Path)
	assert.Equal(t, ".php", second.Extension)
}

func TestLoadData_Errors(t *testing.T) {
	_, err := loadData(":memory:")
	assert.ErrorContains(t, err, "in-memory")

	_, err = loadData(filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorContains(t, err, "datastore not found")
}

func TestBuildItemRow_NoPaths(t *testing.T) {
	id := types.ComputeItemID([]byte("x"))
	row := buildItemRow(&types.ItemResult{ItemID: id, Matches: []*types.Match{{Rule: "r", Raw: []string{"r"}}}})

	assert.Equal(t, id.Hex(), row.Path)
	assert.Equal(t, "-", row.Extension)
	assert.Equal(t, []string{"r"}, row.RuleIDs)
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, ".exe", extensionOf("/a/b/c.EXE"))
	assert.Equal(t, "-", extensionOf("/a/b/Makefile"))
	assert.Equal(t, ".txt", extensionOf("/a/b.zip:dir/note.txt"))
}
