package enum

import (
	"context"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// ItemFunc receives one item: its content, content ID and where it came from.
type ItemFunc func(content []byte, id types.ItemID, prov types.Provenance) error

// Enumerator discovers items to scan.
type Enumerator interface {
	// Enumerate yields items from the source. Returning an error from fn
	// stops enumeration.
	Enumerate(ctx context.Context, fn ItemFunc) error
}

// Config for enumeration.
type Config struct {
	// Root is a file or directory to enumerate, or a repository for git.
	Root string

	// IncludeHidden includes hidden files/directories (starting with .).
	IncludeHidden bool

	// MaxFileSize is the maximum item size to yield (0 = no limit). It also
	// bounds each archive member.
	MaxFileSize int64

	// FollowSymlinks follows symbolic links.
	FollowSymlinks bool

	// ExtractArchives additionally yields the members of zip and 7z archives.
	ExtractArchives bool
}
