// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the mirror tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/mirror"
	"github.com/starford/raido/internal/notion"
	"github.com/starford/raido/internal/source"
)

// Server wraps the MCP server with the mirror tools.
type Server struct {
	mcp       *server.MCPServer
	remote    notion.Service
	extractor *extract.Service
	opts      mirror.Options
}

// New creates a new MCP server with the mirror tools registered. Every
// mirror_folder call runs with the given remote client and options.
func New(remote notion.Service, opts mirror.Options) *Server {
	s := &Server{remote: remote, extractor: extract.NewService(), opts: opts}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("mirror_folder",
		mcp.WithDescription("Mirror a local folder tree into the remote workspace as nested pages. "+
			"Returns the root page id and run counters as JSON. The mapping rules are documented "+
			"by the get_mirror_contract tool and the raido://mirror-format resource."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Path of the local folder (or single file) to mirror")),
		mcp.WithString("page", mcp.Required(), mcp.Description("Parent page ID the mirrored root is created under (UUID, hyphens optional)")),
	), s.mirrorFolder)

	s.mcp.AddTool(mcp.NewTool("extract_text",
		mcp.WithDescription("Extract the plain text of a single file exactly the way the mirror would, "+
			"without touching the remote service."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Root folder the path is resolved under")),
		mcp.WithString("path", mcp.Description("File path relative to folder; omit when folder itself is a file")),
	), s.extractText)

	s.mcp.AddTool(mcp.NewTool("get_mirror_contract",
		mcp.WithDescription("Returns the canonical folder-to-page mapping rules the mirror follows."),
	), s.getMirrorContract)

	// Resource: mirror mapping contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://mirror-format", "Mirror Mapping Contract",
			mcp.WithResourceDescription("How local folders and files map onto remote pages and blocks."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMirrorFormatResource,
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

// mirrorResult is the JSON shape mirror_folder returns.
type mirrorResult struct {
	RootPageID      string `json:"rootPageId"`
	Pages           int    `json:"pages"`
	TextBlocks      int    `json:"textBlocks"`
	FileBlocks      int    `json:"fileBlocks"`
	Fallbacks       int    `json:"fallbacks"`
	SkippedSubtrees int    `json:"skippedSubtrees"`
}

func (s *Server) mirrorFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	parentID, err := notion.NormalizePageID(page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := source.NewTree(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := mirror.New(tree, s.remote, s.extractor, s.opts).Mirror(ctx, parentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("mirror failed: %v", err)), nil
	}

	out, _ := json.MarshalIndent(mirrorResult{
		RootPageID:      res.RootPageID,
		Pages:           res.Pages,
		TextBlocks:      res.TextBlocks,
		FileBlocks:      res.FileBlocks,
		Fallbacks:       res.Fallbacks,
		SkippedSubtrees: res.SkippedSubtrees,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) extractText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path := ""
	if p, pErr := req.RequireString("path"); pErr == nil {
		path = p
	}

	tree, err := source.NewTree(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := path
	if name == "" {
		name = tree.Name()
	}
	kind := extract.Detect(name)
	if !kind.TextLike() {
		return mcp.NewToolResultError(fmt.Sprintf("no text extraction for %s (%s)", name, kind)), nil
	}

	data, err := tree.Read(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.extractor.Text(kind, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) getMirrorContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MirrorFormatContract), nil
}

func (s *Server) readMirrorFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://mirror-format",
			MIMEType: "text/markdown",
			Text:     MirrorFormatContract,
		},
	}, nil
}
