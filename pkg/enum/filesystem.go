package enum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// FilesystemEnumerator enumerates a file, or the files below a directory.
// Every file is yielded byte-for-byte; binary content is not skipped.
type FilesystemEnumerator struct {
	config Config
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
func NewFilesystemEnumerator(config Config) *FilesystemEnumerator {
	return &FilesystemEnumerator{config: config}
}

// Enumerate walks the tree and yields file items.
// Phase 1 collects eligible paths sequentially; phase 2 reads them and
// invokes fn from parallel readers, so fn must be safe for concurrent use.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, fn ItemFunc) error {
	var ignore *gitignore.GitIgnore
	gitignorePath := filepath.Join(e.config.Root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		ignore, _ = gitignore.CompileIgnoreFile(gitignorePath)
	}

	root := filepath.Clean(e.config.Root)
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// The root itself is always taken, hidden or not.
		isRoot := path == root

		if info.IsDir() {
			if !isRoot && !e.config.IncludeHidden && isHidden(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 && !e.config.FollowSymlinks {
			return nil
		}
		if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
			return nil
		}

		if !isRoot && !e.config.IncludeHidden && isHidden(info.Name()) {
			return nil
		}

		if e.config.MaxFileSize > 0 && info.Size() > e.config.MaxFileSize {
			return nil
		}

		if ignore != nil && !isRoot {
			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if ignore.MatchesPath(relPath) {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return err
	}

	numReaders := runtime.NumCPU()
	if numReaders < 1 {
		numReaders = 1
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	pathsCh := make(chan string, numReaders*2)

	g.Go(func() error {
		defer close(pathsCh)
		for _, f := range files {
			select {
			case pathsCh <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < numReaders; i++ {
		g.Go(func() error {
			for path := range pathsCh {
				if err := e.processFile(ctx, path, fn); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// If the caller's context was cancelled but all goroutines finished
	// before noticing, propagate the cancellation.
	if origCtx.Err() != nil {
		return origCtx.Err()
	}
	return nil
}

// processFile reads one file, yields it, then yields archive members when
// extraction is enabled.
func (e *FilesystemEnumerator) processFile(ctx context.Context, path string, fn ItemFunc) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if err := fn(content, types.ComputeItemID(content), types.FileProvenance{FilePath: path}); err != nil {
		return err
	}

	if !e.config.ExtractArchives || !IsArchive(path) {
		return nil
	}

	// Unreadable archives are still scanned whole above; members are a bonus.
	members, err := ExtractMembers(path, content, e.config.MaxFileSize)
	if err != nil {
		return nil
	}
	for _, m := range members {
		prov := types.ArchiveProvenance{ArchivePath: path, MemberPath: m.Name}
		if err := fn(m.Content, types.ComputeItemID(m.Content), prov); err != nil {
			return err
		}
	}
	return nil
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
