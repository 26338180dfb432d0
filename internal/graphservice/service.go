// Package graphservice holds the most recent successful build and answers
// lookups against it.
package graphservice

import (
	"sync"

	"github.com/starford/linkgraph/internal/apperr"
	"github.com/starford/linkgraph/internal/builder"
	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/models"
)

// NodeDetail is a node with its neighbourhood.
type NodeDetail struct {
	graph.Node
	Backlinks []string     `json:"backlinks"`
	Outgoing  []graph.Link `json:"outgoing"`
}

// BuildInfo identifies the build currently served.
type BuildInfo struct {
	BuildID  string      `json:"buildId"`
	Checksum string      `json:"checksum"`
	Posts    int         `json:"posts"`
	Snippets int         `json:"snippets"`
	Stats    graph.Stats `json:"stats"`
}

// Service is safe for concurrent use.
type Service struct {
	mu     sync.RWMutex
	latest *builder.Result
}

// New returns an empty service. Lookups fail with apperr.ErrNotReady until
// the first Update.
func New() *Service {
	return &Service{}
}

// Update replaces the served build. A nil result, or one older than the
// served build, is ignored.
func (s *Service) Update(res *builder.Result) {
	if res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil && res.Seq < s.latest.Seq {
		return
	}
	s.latest = res
}

// Ready reports whether a build has been stored.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest != nil
}

func (s *Service) current() (*builder.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, apperr.ErrNotReady
	}
	return s.latest, nil
}

// Artifact returns the serialized graph and its checksum.
func (s *Service) Artifact() ([]byte, string, bool) {
	res, err := s.current()
	if err != nil {
		return nil, "", false
	}
	return res.Data, res.Checksum, true
}

// Info describes the served build.
func (s *Service) Info() (BuildInfo, error) {
	res, err := s.current()
	if err != nil {
		return BuildInfo{}, err
	}
	return BuildInfo{
		BuildID:  res.BuildID,
		Checksum: res.Checksum,
		Posts:    res.Posts,
		Snippets: res.Snippets,
		Stats:    res.Graph.Stats(),
	}, nil
}

// Node returns the node with id and its links.
func (s *Service) Node(id string) (*NodeDetail, error) {
	res, err := s.current()
	if err != nil {
		return nil, err
	}
	n, ok := res.Graph.Node(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &NodeDetail{
		Node:      n,
		Backlinks: res.Graph.Backlinks(id),
		Outgoing:  res.Graph.Outgoing(id),
	}, nil
}

// Backlinks returns the ids of nodes linking to id.
func (s *Service) Backlinks(id string) ([]string, error) {
	res, err := s.current()
	if err != nil {
		return nil, err
	}
	if _, ok := res.Graph.Node(id); !ok {
		return nil, apperr.ErrNotFound
	}
	return res.Graph.Backlinks(id), nil
}

// Unresolved returns placeholder nodes with their referrers.
func (s *Service) Unresolved() ([]NodeDetail, error) {
	res, err := s.current()
	if err != nil {
		return nil, err
	}
	nodes := res.Graph.Unresolved()
	out := make([]NodeDetail, len(nodes))
	for i, n := range nodes {
		out[i] = NodeDetail{Node: n, Backlinks: res.Graph.Backlinks(n.ID), Outgoing: []graph.Link{}}
	}
	return out, nil
}

// Item returns the scanned content item for a node id, hidden items
// included.
func (s *Service) Item(id string) (*models.ContentItem, error) {
	res, err := s.current()
	if err != nil {
		return nil, err
	}
	for i := range res.Items {
		if res.Items[i].ID == id {
			item := res.Items[i]
			return &item, nil
		}
	}
	return nil, apperr.ErrNotFound
}
