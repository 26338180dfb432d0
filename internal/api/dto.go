package api

import (
	"github.com/starford/linkgraph/internal/graphservice"
	"github.com/starford/linkgraph/internal/models"
)

// StatsResponse describes the build currently served.
type StatsResponse = graphservice.BuildInfo

// NodeResponse is a node with its backlinks and outgoing links.
type NodeResponse = graphservice.NodeDetail

// ItemResponse is a scanned content item.
type ItemResponse = models.ContentItem

// BacklinksResponse lists the ids of nodes linking to ID.
type BacklinksResponse struct {
	ID        string   `json:"id" example:"my-post" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// UnresolvedResponse lists placeholder nodes.
type UnresolvedResponse struct {
	Nodes []graphservice.NodeDetail `json:"nodes" validate:"required"`
}

// HealthResponse is returned by the health probes.
type HealthResponse struct {
	Status string `json:"status" example:"ok" validate:"required"`
}
