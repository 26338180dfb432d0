// Package storage provides site-rooted file access for the graph builder:
// collection scanning, side-car reads and atomic artifact writes.
package storage

// ItemFile locates the primary content file of one collection item.
type ItemFile struct {
	// Dir is the item's directory name; it doubles as the item slug.
	Dir string
	// Path is the content file path relative to the site root.
	Path string
}

// Provider is the interface for site file operations. All paths are
// relative to the site root.
type Provider interface {
	// Items lists the content items of the collection rooted at dir.
	Items(dir string) ([]ItemFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether path exists.
	Exists(path string) bool
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
