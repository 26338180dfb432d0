package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultContentFiles are the primary content file names, in priority order.
var DefaultContentFiles = []string{"index.mdx", "index.md"}

// DefaultExcludePrefix marks item directories that are never scanned.
const DefaultExcludePrefix = "_"

// FS implements Provider backed by the local file system.
type FS struct {
	root          string // absolute path to the site directory
	contentFiles  []string
	excludePrefix string
}

// FSOption customizes an FS.
type FSOption func(*FS)

// WithContentFiles overrides the primary content file candidates. The first
// existing candidate wins.
func WithContentFiles(names ...string) FSOption {
	return func(f *FS) {
		if len(names) > 0 {
			f.contentFiles = append([]string(nil), names...)
		}
	}
}

// WithExcludePrefix overrides the prefix of item directories to skip.
// An empty prefix disables exclusion.
func WithExcludePrefix(prefix string) FSOption {
	return func(f *FS) {
		f.excludePrefix = prefix
	}
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{
		root:          abs,
		contentFiles:  DefaultContentFiles,
		excludePrefix: DefaultExcludePrefix,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute site root.
func (f *FS) Root() string {
	return f.root
}

// Abs resolves a site-relative path to an absolute one.
func (f *FS) Abs(rel string) (string, error) {
	return f.safePath(rel)
}

// safePath resolves a relative path against the site root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes site root: %s", rel)
	}
	return abs, nil
}

// Items returns one ItemFile per immediate subdirectory of dir that holds a
// primary content file, in directory-name order. A missing dir is an empty
// collection.
func (f *FS) Items(dir string) ([]ItemFile, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(base)
	if errors.Is(err, fs.ErrNotExist) {
		return []ItemFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: collection is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}

	out := make([]ItemFile, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if f.excludePrefix != "" && strings.HasPrefix(name, f.excludePrefix) {
			continue
		}
		// Stat follows symlinked item directories.
		st, err := os.Stat(filepath.Join(base, name))
		if err != nil || !st.IsDir() {
			continue
		}
		file, ok := f.primaryFile(filepath.Join(base, name))
		if !ok {
			continue
		}
		out = append(out, ItemFile{
			Dir:  name,
			Path: path.Join(filepath.ToSlash(filepath.Clean(dir)), name, file),
		})
	}
	return out, nil
}

func (f *FS) primaryFile(itemDir string) (string, bool) {
	for _, name := range f.contentFiles {
		st, err := os.Stat(filepath.Join(itemDir, name))
		if err == nil && st.Mode().IsRegular() {
			return name, true
		}
	}
	return "", false
}

// Read returns the raw bytes of a site file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path exists under the site root.
func (f *FS) Exists(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: cannot write to site root")
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".linkgraph-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
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
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
