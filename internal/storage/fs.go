// Package storage provides a root-scoped directory for import/export
// artifacts: flat JSON files, written atomically.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes one artifact file.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Dir is an artifact directory. Names are plain file names; anything
// with a path separator or traversal is rejected.
type Dir struct {
	root string
}

// NewDir creates the directory if needed and returns a Dir rooted
// there.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute artifact directory path.
func (d *Dir) Root() string {
	return d.root
}

// safeName validates that name is a plain file name and returns its
// absolute path under the root.
func (d *Dir) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: name is required")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) || strings.HasPrefix(name, "..") {
		return "", fmt.Errorf("storage: invalid name: %s", name)
	}
	return filepath.Join(d.root, name), nil
}

// List returns metadata for every .json file in the directory.
func (d *Dir) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

// Read returns the raw bytes of an artifact.
func (d *Dir) Read(name string) ([]byte, error) {
	abs, err := d.safeName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically writes an artifact: tmp file, fsync, rename.
func (d *Dir) Write(name string, content []byte) error {
	abs, err := d.safeName(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, ".shelf-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Rename moves an artifact within the directory, used to mark consumed
// import files.
func (d *Dir) Rename(oldName, newName string) error {
	absOld, err := d.safeName(oldName)
	if err != nil {
		return err
	}
	absNew, err := d.safeName(newName)
	if err != nil {
		return err
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// Remove deletes an artifact.
func (d *Dir) Remove(name string) error {
	abs, err := d.safeName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: remove %s: %w", name, err)
	}
	return nil
}
