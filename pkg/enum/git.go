package enum

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// GitEnumerator enumerates the blobs of one tree in a git repository.
type GitEnumerator struct {
	config Config
	// Revision selects the commit whose tree is enumerated (defaults to HEAD).
	Revision string
}

// NewGitEnumerator creates a new git enumerator.
func NewGitEnumerator(config Config) *GitEnumerator {
	return &GitEnumerator{
		config:   config,
		Revision: "HEAD",
	}
}

// Enumerate walks the tree at Revision and yields unique blobs, binary ones
// included.
func (e *GitEnumerator) Enumerate(ctx context.Context, fn ItemFunc) error {
	repo, err := git.PlainOpen(e.config.Root)
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}

	rev := e.Revision
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return fmt.Errorf("failed to resolve revision %s: %w", rev, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("failed to get tree: %w", err)
	}

	meta := &types.CommitMetadata{
		CommitID:        commit.Hash.String(),
		AuthorName:      commit.Author.Name,
		AuthorEmail:     commit.Author.Email,
		AuthorTimestamp: commit.Author.When,
		Message:         commit.Message,
	}

	seen := make(map[plumbing.Hash]bool)

	err = tree.Files().ForEach(func(f *object.File) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if seen[f.Hash] {
			return nil
		}
		seen[f.Hash] = true

		if e.config.MaxFileSize > 0 && f.Size > e.config.MaxFileSize {
			return nil
		}

		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("failed to get contents of %s: %w", f.Name, err)
		}
		data := []byte(content)

		prov := types.GitProvenance{
			RepoPath: e.config.Root,
			Commit:   meta,
			BlobPath: f.Name,
		}
		return fn(data, types.ComputeItemID(data), prov)
	})
	if err != nil {
		return fmt.Errorf("failed to walk tree: %w", err)
	}

	return nil
}
