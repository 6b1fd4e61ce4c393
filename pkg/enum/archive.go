package enum

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// ArchiveMember is one regular file read out of an archive.
type ArchiveMember struct {
	Name    string // path within the archive
	Content []byte
}

var zipExtensions = map[string]bool{
	".zip":  true,
	".jar":  true,
	".apk":  true,
	".docx": true,
	".xlsx": true,
	".pptx": true,
}

// IsArchive reports whether path has an extension ExtractMembers handles.
func IsArchive(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return zipExtensions[ext] || ext == ".7z"
}

// ExtractMembers returns the regular files inside a zip-family or 7z
// archive, in archive order. Members larger than maxSize are skipped
// (0 = no limit). Nested archives are returned as-is, not expanded.
func ExtractMembers(path string, content []byte, maxSize int64) ([]ArchiveMember, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case zipExtensions[ext]:
		return extractZip(content, maxSize)
	case ext == ".7z":
		return extract7z(content, maxSize)
	default:
		return nil, fmt.Errorf("unsupported archive type: %s", ext)
	}
}

func extractZip(content []byte, maxSize int64) ([]ArchiveMember, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	var members []ArchiveMember
	for _, f := range zr.File {
		m, ok, err := readMember(f.Name, f.FileInfo(), f.Open, maxSize)
		if err != nil {
			return nil, err
		}
		if ok {
			members = append(members, m)
		}
	}
	return members, nil
}

func extract7z(content []byte, maxSize int64) ([]ArchiveMember, error) {
	zr, err := sevenzip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z: %w", err)
	}

	var members []ArchiveMember
	for _, f := range zr.File {
		m, ok, err := readMember(f.Name, f.FileInfo(), f.Open, maxSize)
		if err != nil {
			return nil, err
		}
		if ok {
			members = append(members, m)
		}
	}
	return members, nil
}

// readMember reads one entry, skipping directories and oversized files.
// The size check reads one byte past the limit so a lying header cannot
// smuggle in a larger member.
func readMember(name string, info fs.FileInfo, open func() (io.ReadCloser, error), maxSize int64) (ArchiveMember, bool, error) {
	if !info.Mode().IsRegular() {
		return ArchiveMember{}, false, nil
	}
	if maxSize > 0 && info.Size() > maxSize {
		return ArchiveMember{}, false, nil
	}

	rc, err := open()
	if err != nil {
		return ArchiveMember{}, false, fmt.Errorf("failed to open member %s: %w", name, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxSize > 0 {
		r = io.LimitReader(rc, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ArchiveMember{}, false, fmt.Errorf("failed to read member %s: %w", name, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return ArchiveMember{}, false, nil
	}

	return ArchiveMember{Name: name, Content: data}, true, nil
}
