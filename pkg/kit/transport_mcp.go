package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDecodeResult is what a tool's decode function yields: the typed request
// for the endpoint and, optionally, a hook that adds values to the call context.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// RegisterMCPTool exposes endpoint as the MCP tool described by tool.
//
// The same tool set is served over stdio (cmd/server mcp) and over QUIC
// sessions (pkg/chassis). QUIC sessions tag their context "mcp_quic" before
// any call is dispatched; a call arriving without a tag came over stdio and
// is tagged "mcp". Metrics and logs read the tag through GetTransport.
//
// Endpoint and decode failures are returned as tool errors, never as
// protocol errors, so the client always sees a result.
func RegisterMCPTool(srv *server.MCPServer, tool mcp.Tool, endpoint Endpoint, decode func(mcp.CallToolRequest) (*MCPDecodeResult, error)) {
	srv.AddTool(tool, mcpToolHandler(endpoint, decode))
}

func mcpToolHandler(endpoint Endpoint, decode func(mcp.CallToolRequest) (*MCPDecodeResult, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		ctx = tagMCPTransport(ctx)
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal %s result: %v", req.Params.Name, err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// tagMCPTransport keeps a transport set by the session and otherwise marks
// the call as stdio MCP.
func tagMCPTransport(ctx context.Context) context.Context {
	if _, ok := ctx.Value(TransportKey).(string); ok {
		return ctx
	}
	return WithTransport(ctx, "mcp")
}
