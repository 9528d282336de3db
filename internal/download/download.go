// Package download hands finished artifacts to their destination.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// ErrInvalidName is returned for filenames that would escape the directory.
var ErrInvalidName = errors.New("invalid artifact name")

// Directory writes artifacts into one directory. Each write goes to a
// temporary file first and is renamed into place, so readers never see a
// partial document.
type Directory struct {
	dir string
}

// NewDirectory creates dir if needed.
func NewDirectory(dir string) (*Directory, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	return &Directory{dir: dir}, nil
}

// Dir returns the target directory.
func (d *Directory) Dir() string { return d.dir }

// Download implements core.Downloader. An existing file of the same name
// is replaced.
func (d *Directory) Download(ctx context.Context, a core.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.Path(a.Filename)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, "."+a.Filename+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", a.Filename, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", a.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", a.Filename, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move %s into place: %w", a.Filename, err)
	}
	return nil
}

// Path resolves a bare artifact name inside the directory.
func (d *Directory) Path(name string) (string, error) {
	if err := ValidName(name); err != nil {
		return "", err
	}
	return filepath.Join(d.dir, name), nil
}

// ValidName rejects empty names, hidden files and anything with a path
// separator.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) ||
		filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Memory keeps artifacts in memory, keyed by filename.
type Memory struct {
	mu    sync.RWMutex
	files map[string]core.Artifact
}

// NewMemory returns an empty in-memory destination.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]core.Artifact)}
}

func (m *Memory) Download(ctx context.Context, a core.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidName(a.Filename); err != nil {
		return err
	}
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	a.Data = data

	m.mu.Lock()
	m.files[a.Filename] = a
	m.mu.Unlock()
	return nil
}

// Get returns a stored artifact.
func (m *Memory) Get(name string) (core.Artifact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.files[name]
	return a, ok
}

// Names lists stored filenames in sorted order.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for name := range m.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
