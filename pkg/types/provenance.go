package types

import (
	"fmt"
	"time"
)

// Provenance tracks where an item was discovered.
type Provenance interface {
	Kind() string
	// Path returns displayable path (if applicable)
	Path() string
}

// FileProvenance for filesystem files.
type FileProvenance struct {
	FilePath string
}

func (f FileProvenance) Kind() string { return "file" }
func (f FileProvenance) Path() string { return f.FilePath }

// GitProvenance for blobs read out of a git tree.
type GitProvenance struct {
	RepoPath string
	Commit   *CommitMetadata
	BlobPath string // path within the tree at Commit
}

func (g GitProvenance) Kind() string { return "git" }
func (g GitProvenance) Path() string { return g.BlobPath }

// CommitMetadata holds git commit information.
type CommitMetadata struct {
	CommitID        string
	AuthorName      string
	AuthorEmail     string
	AuthorTimestamp time.Time
	Message         string
}

// ArchiveProvenance for members extracted from zip or 7z archives.
type ArchiveProvenance struct {
	ArchivePath string
	MemberPath  string
}

func (a ArchiveProvenance) Kind() string { return "archive" }

// Path joins archive and member with a colon.
func (a ArchiveProvenance) Path() string {
	return fmt.Sprintf("%s:%s", a.ArchivePath, a.MemberPath)
}

// InlineProvenance labels items submitted directly by a caller, such as
// content sent to the serve command.
type InlineProvenance struct {
	Source string
}

func (i InlineProvenance) Kind() string { return "inline" }
func (i InlineProvenance) Path() string { return i.Source }
