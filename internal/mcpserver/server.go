// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes graph inspection tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/linkgraph/internal/apperr"
	"github.com/starford/linkgraph/internal/builder"
	"github.com/starford/linkgraph/internal/graphservice"
)

// Rebuilder runs one full build.
type Rebuilder interface {
	Build(ctx context.Context) (*builder.Result, error)
}

// Server wraps the MCP server with graph tools.
type Server struct {
	mcp *server.MCPServer
	svc *graphservice.Service
	b   Rebuilder
}

// New creates an MCP server over svc. A nil b leaves out the rebuild tool.
func New(svc *graphservice.Service, b Rebuilder, version string) *Server {
	s := &Server{svc: svc, b: b}

	s.mcp = server.NewMCPServer(
		"linkgraph",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("graph_stats",
		mcp.WithDescription("Summarize the current graph: node, link, tag and placeholder counts plus the build id and checksum."),
	), s.graphStats)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Return one graph node with its backlinks and outgoing links."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id, e.g. my-post, snippet-foo or tag-go")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("List the ids of nodes linking to the given node."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_unresolved",
		mcp.WithDescription("List placeholder nodes: references that resolve to no post or snippet, with the items referring to them."),
	), s.listUnresolved)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Return the scanned content item behind a node: title, tags, references, displayDate, accessibility and hidden flag."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id, e.g. my-post or snippet-foo")),
	), s.getItem)

	if b != nil {
		s.mcp.AddTool(mcp.NewTool("rebuild",
			mcp.WithDescription("Rescan the site and rewrite the graph artifact."),
		), s.rebuild)
	}

	s.mcp.AddResource(
		mcp.NewResource(SchemaURI, "Graph Artifact Schema",
			mcp.WithResourceDescription("Shape and semantics of the generated graph-data.json."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) graphStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.svc.Info()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info)
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Node(id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(n)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(id)
	if err != nil {
		return errorResult(id, err), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return jsonResult(bl)
}

func (s *Server) listUnresolved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.svc.Unresolved()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("no unresolved references"), nil
	}
	return jsonResult(nodes)
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.Item(id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(item)
}

func (s *Server) rebuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.b.Build(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}
	s.svc.Update(res)
	st := res.Graph.Stats()
	return mcp.NewToolResultText(fmt.Sprintf("build %s: %d nodes, %d links", res.BuildID, st.Nodes, st.Links)), nil
}

func (s *Server) readSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemaURI,
			MIMEType: "text/markdown",
			Text:     GraphSchema,
		},
	}, nil
}
