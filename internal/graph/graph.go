// Package graph assembles scanned content items into the node/link graph
// consumed by the client-side renderer.
package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/linkgraph/internal/models"
)

// TagIDPrefix namespaces tag node ids.
const TagIDPrefix = "tag-"

// Node is one vertex of the artifact. Field order and names are the
// renderer's contract.
type Node struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Slug          *string `json:"slug"`
	Exists        bool    `json:"exists"`
	IsTag         bool    `json:"isTag"`
	IsSnippet     bool    `json:"isSnippet"`
	Accessible    bool    `json:"accessible"`
	LinkCount     int     `json:"linkCount"`
	IncomingLinks int     `json:"incomingLinks"`
	TotalLinks    int     `json:"totalLinks"`
}

// Link is one directed edge of the artifact.
type Link struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	TargetTitle string `json:"targetTitle"`
}

// Graph is the serialized artifact.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Stats summarizes a graph.
type Stats struct {
	Nodes        int `json:"nodes"`
	Links        int `json:"links"`
	Posts        int `json:"posts"`
	Snippets     int `json:"snippets"`
	Tags         int `json:"tags"`
	Placeholders int `json:"placeholders"`
	Inaccessible int `json:"inaccessible"`
}

// Encode serializes g as compact JSON without HTML escaping.
func Encode(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(g); err != nil {
		return nil, fmt.Errorf("graph: encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses an artifact produced by Encode.
func Decode(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("graph: decode: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Links == nil {
		g.Links = []Link{}
	}
	return &g, nil
}

// Stats counts nodes by category.
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.Nodes), Links: len(g.Links)}
	for _, n := range g.Nodes {
		switch {
		case n.IsTag:
			s.Tags++
		case !n.Exists:
			s.Placeholders++
		case n.IsSnippet:
			s.Snippets++
		default:
			s.Posts++
		}
		if !n.IsTag && n.Exists && !n.Accessible {
			s.Inaccessible++
		}
	}
	return s
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Backlinks returns the sources of links targeting id, in link order.
func (g *Graph) Backlinks(id string) []string {
	out := []string{}
	for _, l := range g.Links {
		if l.Target == id {
			out = append(out, l.Source)
		}
	}
	return out
}

// Outgoing returns the links leaving id, in link order.
func (g *Graph) Outgoing(id string) []Link {
	out := []Link{}
	for _, l := range g.Links {
		if l.Source == id {
			out = append(out, l)
		}
	}
	return out
}

// Unresolved returns the placeholder nodes.
func (g *Graph) Unresolved() []Node {
	out := []Node{}
	for _, n := range g.Nodes {
		if !n.Exists && !n.IsTag {
			out = append(out, n)
		}
	}
	return out
}

// underlyingSlug strips the snippet or tag namespace from a node id.
func underlyingSlug(id string) string {
	if s, ok := strings.CutPrefix(id, models.SnippetIDPrefix); ok {
		return s
	}
	return strings.TrimPrefix(id, TagIDPrefix)
}

func strPtr(s string) *string {
	return &s
}
