package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileProvenance(t *testing.T) {
	prov := FileProvenance{FilePath: "/path/to/file.bin"}

	assert.Equal(t, "file", prov.Kind())
	assert.Equal(t, "/path/to/file.bin", prov.Path())
}

func TestGitProvenance(t *testing.T) {
	prov := GitProvenance{
		RepoPath: "/path/to/repo",
		Commit: &CommitMetadata{
			CommitID:        "abc123def456",
			AuthorName:      "Jane Doe",
			AuthorEmail:     "jane@example.com",
			AuthorTimestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		BlobPath: "bin/dropper.exe",
	}

	assert.Equal(t, "git", prov.Kind())
	assert.Equal(t, "bin/dropper.exe", prov.Path())
	assert.Equal(t, "abc123def456", prov.Commit.CommitID)
}

func TestArchiveProvenance(t *testing.T) {
	prov := ArchiveProvenance{ArchivePath: "/samples/bundle.7z", MemberPath: "payload/a.dll"}

	assert.Equal(t, "archive", prov.Kind())
	assert.Equal(t, "/samples/bundle.7z:payload/a.dll", prov.Path())
}

func TestInlineProvenance(t *testing.T) {
	prov := InlineProvenance{Source: "request:1"}

	assert.Equal(t, "inline", prov.Kind())
	assert.Equal(t, "request:1", prov.Path())
}

func TestProvenanceInterface(t *testing.T) {
	var _ Provenance = FileProvenance{}
	var _ Provenance = GitProvenance{}
	var _ Provenance = ArchiveProvenance{}
	var _ Provenance = InlineProvenance{}
}
