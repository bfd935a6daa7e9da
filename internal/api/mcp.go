package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/callsight/callsight/internal/analysis"
	"github.com/callsight/callsight/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Analysis *analysis.Stage
}

// NewMCPServer creates an MCP server exposing call analytics tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"callsight",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("callsight — sales call transcription and analysis pipeline."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_calls",
			mcp.WithDescription("List uploaded sales calls with their stage statuses and overall scores."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of calls to return (default 20)")),
		),
		mcpListCalls(deps),
	)

	s.AddTool(
		mcp.NewTool("get_call",
			mcp.WithDescription("Fetch a call record including its transcript and analysis results."),
			mcp.WithString("id", mcp.Description("Call id"), mcp.Required()),
		),
		mcpGetCall(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_call",
			mcp.WithDescription("Run sentiment and performance analysis on an already transcribed call."),
			mcp.WithString("id", mcp.Description("Call id"), mcp.Required()),
		),
		mcpAnalyzeCall(deps),
	)

	return s
}

func mcpListCalls(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		calls, err := deps.Store.ListCalls(limit, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list calls: %v", err)), nil
		}
		if len(calls) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(calls)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal calls: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetCall(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		record, err := deps.Store.GetCall(id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("call %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get call: %v", err)), nil
		}

		b, err := json.Marshal(record)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal call: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAnalyzeCall(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		_, err = deps.Analysis.Run(ctx, id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return mcpError(fmt.Sprintf("call %s not found", id)), nil
		case errors.Is(err, analysis.ErrNoTranscript):
			return mcpError("call has no transcript; transcribe it first"), nil
		case err != nil:
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		record, err := deps.Store.GetCall(id)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis completed but failed to reload call: %v", err)), nil
		}

		b, err := json.Marshal(record)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal call: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
