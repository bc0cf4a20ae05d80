// Package source provides read-only access to the local tree being mirrored.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/apperr"
)

// Tree is rooted at the path given on the command line. The root may be a
// directory or a single file; everything else is addressed by a path
// relative to it.
type Tree struct {
	root string // absolute path to the mirror root
	dir  bool
}

// NewTree resolves and probes the root. It fails when the root does not
// exist or cannot be opened for reading, so a bad root is caught before
// anything is sent to the remote service.
func NewTree(root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("source: resolve root: %w: %v", apperr.ErrAccess, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source: stat root %s: %w: %v", root, apperr.ErrAccess, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("source: open root %s: %w: %v", root, apperr.ErrAccess, err)
	}
	_ = f.Close()
	return &Tree{root: abs, dir: info.IsDir()}, nil
}

// Root returns the absolute path of the mirror root.
func (t *Tree) Root() string { return t.root }

// Name returns the base name of the mirror root.
func (t *Tree) Name() string { return filepath.Base(t.root) }

// IsDir reports whether the root is a directory.
func (t *Tree) IsDir() bool { return t.dir }

// safePath resolves a relative path against the root and rejects any
// result that escapes it (directory traversal).
func (t *Tree) safePath(rel string) (string, error) {
	if rel == "" {
		return t.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("source: absolute paths not allowed: %s: %w", rel, apperr.ErrAccess)
	}
	joined := filepath.Join(t.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("source: resolve path: %w: %v", apperr.ErrAccess, err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, t.root+string(os.PathSeparator)) && abs != t.root {
		return "", fmt.Errorf("source: path escapes root: %s: %w", rel, apperr.ErrAccess)
	}
	return abs, nil
}

// Entry is one member of a directory listing.
type Entry struct {
	Name string // base name
	Path string // path relative to the tree root
	Dir  bool
}

// List returns the immediate entries of dir (relative to root), sorted by
// name in byte order. The ordering never depends on how the underlying
// file system enumerates directories.
func (t *Tree) List(dir string) ([]Entry, error) {
	abs, err := t.safePath(dir)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("source: list %s: %w: %v", dir, apperr.ErrAccess, err)
	}
	out := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		out = append(out, Entry{
			Name: d.Name(),
			Path: filepath.Join(dir, d.Name()),
			Dir:  d.IsDir(),
		})
	}
	return out, nil
}

// Read returns the raw bytes of the file at path (relative to root).
// An empty path reads the root itself, for the single-file case.
func (t *Tree) Read(path string) ([]byte, error) {
	abs, err := t.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w: %v", path, apperr.ErrAccess, err)
	}
	return data, nil
}
