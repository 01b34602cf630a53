// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Life Matrix profile to LLM clients via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lifematrix/internal/apperr"
	"github.com/starford/lifematrix/internal/profile"
	"github.com/starford/lifematrix/internal/radar"
)

// ScoringURI is the resource URI of the scoring contract.
const ScoringURI = "lifematrix://scoring"

// Server wraps the MCP server with Life Matrix tools.
type Server struct {
	mcp *server.MCPServer
	svc *profile.Service
}

// New creates a new MCP server with all tools registered. svc should
// already be loaded.
func New(svc *profile.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Life Matrix",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_dashboard",
		mcp.WithDescription("Current stage, total level, balance and per-dimension levels."),
		mcp.WithNumber("size", mcp.Description("Optional radar target size (default 400)")),
	), s.getDashboard)

	s.mcp.AddTool(mcp.NewTool("record_progress",
		mcp.WithDescription("Record one point of progress against a dimension. "+
			"The index is the dimension's position in the full list returned by get_dashboard, "+
			"including inactive ones. #hashtags in the text become tags."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Dimension index (0-based)")),
		mcp.WithString("text", mcp.Required(), mcp.Description("What was done")),
	), s.recordProgress)

	s.mcp.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("Most recent progress entries, newest first."),
		mcp.WithNumber("limit", mcp.Description("Max entries (default 10)")),
	), s.listHistory)

	s.mcp.AddTool(mcp.NewTool("get_radar",
		mcp.WithDescription("Radar chart of the active dimensions, as a JSON scene or an SVG document. "+
			"Empty when fewer than three dimensions are active."),
		mcp.WithString("format", mcp.Description("json (default) or svg")),
		mcp.WithNumber("size", mcp.Description("Optional target size (default 400)")),
	), s.getRadar)

	s.mcp.AddTool(mcp.NewTool("get_scoring_contract",
		mcp.WithDescription("Returns how experience turns into levels, progress and balance."),
	), s.getScoringContract)

	s.mcp.AddResource(
		mcp.NewResource(ScoringURI, "Scoring Contract",
			mcp.WithResourceDescription("Leveling curve, progress and balance rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readScoringResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dash := s.svc.Dashboard(req.GetFloat("size", radar.DefaultSize))
	// The scene is for drawing; get_radar serves it.
	dash.Radar = nil
	return jsonResult(dash), nil
}

func (s *Server) recordProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.RecordProgress(index, text)
	switch {
	case errors.Is(err, apperr.ErrStageMismatch):
		return mcp.NewToolResultError("profile is not set up yet; finish setup in the app first"), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entry), nil
}

func (s *Server) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", profile.RecentLimit)
	entries := s.svc.History(limit)
	if len(entries) == 0 {
		return mcp.NewToolResultText("no progress recorded"), nil
	}
	return jsonResult(entries), nil
}

func (s *Server) getRadar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scene := s.svc.Radar(req.GetFloat("size", radar.DefaultSize))
	switch format := req.GetString("format", "json"); format {
	case "json":
		if scene == nil {
			return mcp.NewToolResultText("fewer than three active dimensions"), nil
		}
		return jsonResult(scene), nil
	case "svg":
		var buf bytes.Buffer
		if err := radar.WriteSVG(&buf, scene); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format: %s", format)), nil
	}
}

func (s *Server) getScoringContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ScoringContract), nil
}

func (s *Server) readScoringResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ScoringURI,
			MIMEType: "text/markdown",
			Text:     ScoringContract,
		},
	}, nil
}
