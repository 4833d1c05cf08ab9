// Package archive reads chat export ZIP containers.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Canonical entry names within an export archive. Entries are matched by
// substring, tolerating nested path prefixes like "export-2025/users.json".
const (
	ConversationsFile = "conversations.json"
	UsersFile         = "users.json"
	ProjectsFile      = "projects.json"
)

var (
	// ErrArchive marks an unreadable or corrupt container.
	ErrArchive = errors.New("unreadable archive")

	// ErrMissingRequiredFile marks the absence of a required entry.
	ErrMissingRequiredFile = errors.New("required file not in archive")
)

// Archive is an open export container.
type Archive struct {
	path string
	rc   *zip.ReadCloser
}

// Open opens the ZIP container at path.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchive, path, err)
	}
	return &Archive{path: path, rc: rc}, nil
}

// Close releases the underlying container.
func (a *Archive) Close() error {
	return a.rc.Close()
}

// Path returns the container path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Entries returns the names of all file entries in the archive.
func (a *Archive) Entries() []string {
	var names []string
	for _, f := range a.rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// FindEntry returns the first file entry whose name contains fragment.
func (a *Archive) FindEntry(fragment string) (*zip.File, bool) {
	for _, f := range a.rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.Contains(f.Name, fragment) {
			return f, true
		}
	}
	return nil, false
}

// RequireEntry is FindEntry for entries whose absence aborts the run.
func (a *Archive) RequireEntry(fragment string) (*zip.File, error) {
	f, ok := a.FindEntry(fragment)
	if !ok {
		return nil, fmt.Errorf("Missing %s: %w", fragment, ErrMissingRequiredFile)
	}
	return f, nil
}

// ReadEntry reads a full entry into memory. Only suitable for the small
// optional collections; conversations go through extraction and streaming.
func ReadEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return data, nil
}

// ExtractAll materializes every entry under destDir on fsys. The streaming
// parser wants a real byte-addressable file, not an in-archive stream.
// Entries are copied without buffering whole files in memory.
func (a *Archive) ExtractAll(fsys afero.Fs, destDir string) error {
	for _, f := range a.rc.File {
		name := filepath.Clean(f.Name)
		if name == "." || strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("%w: unsafe entry path %q", ErrArchive, f.Name)
		}
		target := filepath.Join(destDir, name)
		if f.FileInfo().IsDir() {
			if err := fsys.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}
		if err := fsys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", filepath.Dir(target), err)
		}
		if err := extractFile(fsys, f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(fsys afero.Fs, f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := fsys.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}
