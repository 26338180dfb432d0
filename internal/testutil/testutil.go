// Package testutil provides shared test helpers for building site fixtures.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/linkgraph/internal/storage"
)

// TestSite creates a temporary site root with a storage provider.
func TestSite(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteFile creates rel under root with content, making parent dirs.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// WritePost writes content/posts/<dir>/index.md.
func WritePost(t *testing.T, root, dir, content string) {
	t.Helper()
	WriteFile(t, root, "content/posts/"+dir+"/index.md", content)
}

// WriteSnippet writes content/snippets/<dir>/index.md.
func WriteSnippet(t *testing.T, root, dir, content string) {
	t.Helper()
	WriteFile(t, root, "content/snippets/"+dir+"/index.md", content)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
