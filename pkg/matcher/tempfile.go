package matcher

import (
	"errors"
	"io/fs"
	"os"
)

// tempPrefix makes leftover files recognisable in the temp directory.
const tempPrefix = "yara"

// writeTemp writes data to a new uniquely named file in dir (os.TempDir
// when dir is empty) and returns its path. On failure nothing is left behind.
func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		if dir == "" {
			dir = os.TempDir()
		}
		return "", &IOError{Op: "create", Path: dir, Err: err}
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", &IOError{Op: "close", Path: path, Err: err}
	}
	return path, nil
}

// removeAll deletes every path, tolerating files that are already gone,
// and reports the first failure.
func removeAll(paths []string) error {
	var first error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) && first == nil {
			first = &IOError{Op: "remove", Path: p, Err: err}
		}
	}
	return first
}
