package graph

import (
	"strings"

	"github.com/starford/linkgraph/internal/models"
	"github.com/starford/linkgraph/internal/sidecar"
	"github.com/starford/linkgraph/internal/slug"
)

// Policy carries the visibility rules applied during assembly.
type Policy struct {
	Hidden  sidecar.HiddenSet
	Quality sidecar.QualityIndex
}

type titleEntry struct {
	slug string
	kind models.ContentKind
}

type tagAggregate struct {
	slug  string
	name  string
	count int
}

type assembler struct {
	policy Policy
	titles map[string]titleEntry
	nodes  []Node
	index  map[string]int
	links  []Link
	tags   []*tagAggregate
	tagBy  map[string]*tagAggregate
}

// Assemble builds the graph from items given posts first, then snippets,
// each in scan order. It fills in Accessible and Hidden on items.
func Assemble(items []models.ContentItem, policy Policy) *Graph {
	a := &assembler{
		policy: policy,
		titles: make(map[string]titleEntry, len(items)),
		index:  make(map[string]int, len(items)),
		tagBy:  make(map[string]*tagAggregate),
	}

	// Hidden snippets still resolve titles so references to them can be
	// recognized and discarded.
	for _, it := range items {
		a.titles[slug.Fold(it.Title)] = titleEntry{slug: it.Slug, kind: it.Kind}
	}

	visible := make([]*models.ContentItem, 0, len(items))
	for i := range items {
		it := &items[i]
		it.Accessible = true
		it.Hidden = false
		if it.IsSnippet() {
			if policy.Hidden.Has(it.Slug) {
				it.Hidden = true
				it.Accessible = false
				continue
			}
			it.Accessible = policy.Quality.Passes(it.Slug, it.Title)
		}
		visible = append(visible, it)
	}

	// Links are emitted per item: reference edges first, then tag edges.
	for _, it := range visible {
		a.addContentNode(it)
		if !it.IsSnippet() {
			a.addReferenceEdges(it)
		}
		a.addTagEdges(it)
	}
	a.addTagNodes()
	a.addPlaceholders()
	a.countIncoming()

	return &Graph{Nodes: a.nodes, Links: a.filterLinks()}
}

func (a *assembler) addNode(n Node) {
	if _, ok := a.index[n.ID]; ok {
		return
	}
	a.index[n.ID] = len(a.nodes)
	a.nodes = append(a.nodes, n)
}

func (a *assembler) addContentNode(it *models.ContentItem) {
	nodeSlug := "/" + it.Slug + "/"
	if it.IsSnippet() {
		nodeSlug = "/snippets/" + it.Slug + "/"
	}
	a.addNode(Node{
		ID:         models.ItemID(it.Kind, it.Slug),
		Title:      it.Title,
		Slug:       strPtr(nodeSlug),
		Exists:     true,
		IsSnippet:  it.IsSnippet(),
		Accessible: it.Accessible,
		LinkCount:  len(it.References) + len(it.Tags),
	})
}

func (a *assembler) addReferenceEdges(it *models.ContentItem) {
	source := models.ItemID(it.Kind, it.Slug)
	for _, ref := range it.References {
		target, title, targetSlug := a.resolve(ref)
		if targetSlug == "" || a.policy.Hidden.Has(targetSlug) {
			continue
		}
		a.links = append(a.links, Link{Source: source, Target: target, TargetTitle: title})
	}
}

// resolve maps a reference to its target id, link title and the slug the
// hidden policy is checked against.
func (a *assembler) resolve(ref string) (target, title, targetSlug string) {
	if s, ok := strings.CutPrefix(ref, models.SnippetRefPrefix); ok {
		return models.SnippetIDPrefix + s, s, s
	}
	if e, ok := a.titles[slug.Fold(ref)]; ok {
		return models.ItemID(e.kind, e.slug), ref, e.slug
	}
	s := slug.Slugify(ref)
	return s, ref, s
}

func (a *assembler) addTagEdges(it *models.ContentItem) {
	source := models.ItemID(it.Kind, it.Slug)
	seen := make(map[string]struct{}, len(it.Tags))
	for _, tag := range it.Tags {
		ts := slug.Slugify(tag)
		if ts == "" {
			continue
		}
		if _, dup := seen[ts]; dup {
			continue
		}
		seen[ts] = struct{}{}

		agg, ok := a.tagBy[ts]
		if !ok {
			agg = &tagAggregate{slug: ts, name: tag}
			a.tagBy[ts] = agg
			a.tags = append(a.tags, agg)
		}
		agg.count++
		a.links = append(a.links, Link{Source: source, Target: TagIDPrefix + ts, TargetTitle: tag})
	}
}

// addTagNodes skips tags whose slug is hidden: the final filter drops every
// edge into them.
func (a *assembler) addTagNodes() {
	for _, t := range a.tags {
		if a.policy.Hidden.Has(t.slug) {
			continue
		}
		a.addNode(Node{
			ID:            TagIDPrefix + t.slug,
			Title:         t.name,
			Slug:          strPtr("/tags/" + t.slug + "/"),
			Exists:        true,
			IsTag:         true,
			Accessible:    true,
			LinkCount:     t.count,
			IncomingLinks: t.count,
			TotalLinks:    t.count,
		})
	}
}

func (a *assembler) addPlaceholders() {
	for _, l := range a.links {
		if l.Target == "" || strings.HasPrefix(l.Target, TagIDPrefix) {
			continue
		}
		if _, ok := a.index[l.Target]; ok {
			continue
		}
		if a.policy.Hidden.Has(underlyingSlug(l.Target)) {
			continue
		}
		n := Node{ID: l.Target, Title: l.TargetTitle}
		if s, ok := strings.CutPrefix(l.Target, models.SnippetIDPrefix); ok {
			n.IsSnippet = true
			n.Slug = strPtr("/snippets/" + s + "/")
		}
		a.addNode(n)
	}
}

func (a *assembler) countIncoming() {
	for _, l := range a.links {
		i, ok := a.index[l.Target]
		if !ok || a.nodes[i].IsTag {
			continue
		}
		a.nodes[i].IncomingLinks++
		a.nodes[i].TotalLinks++
	}
}

func (a *assembler) filterLinks() []Link {
	out := make([]Link, 0, len(a.links))
	for _, l := range a.links {
		if l.Target == "" {
			continue
		}
		if a.policy.Hidden.Has(underlyingSlug(l.Source)) || a.policy.Hidden.Has(underlyingSlug(l.Target)) {
			continue
		}
		out = append(out, l)
	}
	return out
}
