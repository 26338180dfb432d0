// Package models defines the domain types shared by the graph pipeline.
package models

// ContentKind distinguishes the two content collections.
type ContentKind int

const (
	KindPost ContentKind = iota
	KindSnippet
)

const (
	// SnippetIDPrefix namespaces snippet node ids away from post ids.
	SnippetIDPrefix = "snippet-"
	// SnippetRefPrefix marks a reference that names a snippet by slug
	// rather than by title.
	SnippetRefPrefix = "snippet:"
)

// String returns the collection name for the kind.
func (k ContentKind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindSnippet:
		return "snippet"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k ContentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ContentItem is one scanned post or snippet with its extracted references.
type ContentItem struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Kind        ContentKind `json:"kind"`
	Path        string      `json:"path"`
	Tags        []string    `json:"tags"`
	References  []string    `json:"references"`
	DisplayDate string      `json:"displayDate,omitempty"`
	Accessible  bool        `json:"accessible"`
	Hidden      bool        `json:"hidden"`
}

// ItemID returns the node id for a content slug of the given kind.
func ItemID(kind ContentKind, slug string) string {
	if kind == KindSnippet {
		return SnippetIDPrefix + slug
	}
	return slug
}

// IsSnippet reports whether the item belongs to the snippets collection.
func (c *ContentItem) IsSnippet() bool {
	return c.Kind == KindSnippet
}
