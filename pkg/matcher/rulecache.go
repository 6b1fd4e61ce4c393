package matcher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// RuleCache stores rule documents under content-addressed names so that
// repeated scans with the same rules reuse one file instead of writing a
// new one per call. A document is named by its SHA-224 digest.
//
// Each path is created at most once per cache: concurrent callers asking
// for the same document share a single write, and the file is renamed
// into place only once complete. Files already present in the directory
// are reused as-is.
type RuleCache struct {
	dir   string
	group singleflight.Group

	mu      sync.Mutex
	created map[string]struct{}
}

// NewRuleCache creates dir if needed and returns a cache rooted there.
// An empty dir selects a "yaraexec-rules" directory under os.TempDir.
func NewRuleCache(dir string) (*RuleCache, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "yaraexec-rules")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating rule cache dir: %w", err)
	}
	return &RuleCache{dir: dir, created: make(map[string]struct{})}, nil
}

// Dir returns the cache directory.
func (c *RuleCache) Dir() string {
	return c.dir
}

// Path returns the file holding document, writing it first if absent.
// The returned file belongs to the cache and must not be removed by callers.
func (c *RuleCache) Path(document string) (string, error) {
	sum := sha256.Sum224([]byte(document))
	name := hex.EncodeToString(sum[:]) + ".yar"
	path := filepath.Join(c.dir, name)

	_, err, _ := c.group.Do(name, func() (interface{}, error) {
		_, err := os.Stat(path)
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &IOError{Op: "stat", Path: path, Err: err}
		}

		tmp, err := writeTemp(c.dir, []byte(document))
		if err != nil {
			return nil, err
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return nil, &IOError{Op: "rename", Path: path, Err: err}
		}

		c.mu.Lock()
		c.created[path] = struct{}{}
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// Len returns the number of rule files this cache has written.
func (c *RuleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created)
}

// Purge removes every content-addressed rule file in the cache directory,
// including ones written by earlier processes, and returns how many were
// removed. Other files in the directory are left alone.
func (c *RuleCache) Purge() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, &IOError{Op: "read", Path: c.dir, Err: err}
	}

	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && isRuleFileName(entry.Name()) {
			paths = append(paths, filepath.Join(c.dir, entry.Name()))
		}
	}
	c.created = make(map[string]struct{})

	if err := removeAll(paths); err != nil {
		return 0, err
	}
	return len(paths), nil
}

// isRuleFileName reports whether name is a SHA-224 hex digest plus ".yar".
func isRuleFileName(name string) bool {
	digest, ok := strings.CutSuffix(name, ".yar")
	if !ok || len(digest) != hex.EncodedLen(sha256.Size224) {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil
}
