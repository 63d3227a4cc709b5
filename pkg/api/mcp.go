package api

import (
	"strings"

	"github.com/hazyhaar/touchstone-names/pkg/kit"
	"github.com/hazyhaar/touchstone-names/pkg/names"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the name tools on the server. They share the
// endpoints, and therefore the directory, of the HTTP router.
func RegisterMCPTools(srv *server.MCPServer, svc *Service, m *Metrics) {
	eps := buildEndpoints(svc, m)
	registerNormalizeName(srv, eps)
	registerMatchNames(srv, eps, svc.DefaultThreshold)
	registerLookupName(srv, eps)
	registerAddNames(srv, eps)
}

// stringArg returns nil when the argument is missing or not a string.
func stringArg(args map[string]any, key string) *string {
	s, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func registerNormalizeName(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("normalize_name",
		mcp.WithDescription("Reduce a person's name to its canonical form: ASCII, lowercase, tokens sorted, titles removed, abbreviations expanded."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The name to normalize")),
	)

	kit.RegisterMCPTool(srv, tool, eps.normalize, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &normalizeReq{Name: stringArg(req.GetArguments(), "name")}}, nil
	})
}

func registerMatchNames(srv *server.MCPServer, eps endpoints, def names.Threshold) {
	tool := mcp.NewTool("match_names",
		mcp.WithDescription("Decide whether two names sound alike by comparing their Double Metaphone keys."),
		mcp.WithString("name1", mcp.Required(), mcp.Description("First name")),
		mcp.WithString("name2", mcp.Required(), mcp.Description("Second name")),
		mcp.WithString("threshold", mcp.Description("weak, normal or strong (or 0, 1, 2); defaults to "+def.String())),
	)

	kit.RegisterMCPTool(srv, tool, eps.match, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		t := def
		if v, ok := args["threshold"]; ok && v != nil && v != "" {
			var err error
			if t, err = names.ParseThresholdValue(v); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &matchReq{
			Name1:     stringArg(args, "name1"),
			Name2:     stringArg(args, "name2"),
			Threshold: t,
		}}, nil
	})
}

func registerLookupName(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("lookup_name",
		mcp.WithDescription("List the indexed ids whose names share a phonetic key with the given name (strong: primary key, weak: secondary key). Results are not ranked."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The name to look up")),
	)

	kit.RegisterMCPTool(srv, tool, eps.lookup, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		name, _ := req.GetArguments()["name"].(string)
		return &kit.MCPDecodeResult{Request: &lookupReq{Name: name}}, nil
	})
}

func registerAddNames(srv *server.MCPServer, eps endpoints) {
	tool := mcp.NewTool("add_names",
		mcp.WithDescription("Index names under ids. Both lists are newline-separated and must have the same length."),
		mcp.WithString("names", mcp.Required(), mcp.Description("Newline-separated names")),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Newline-separated ids, one per name")),
	)

	kit.RegisterMCPTool(srv, tool, eps.addNames, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		ns, _ := args["names"].(string)
		ids, _ := args["ids"].(string)
		return &kit.MCPDecodeResult{Request: &addNamesReq{Names: splitLines(ns), IDs: splitLines(ids)}}, nil
	})
}

// splitLines splits s on newlines, trimming each line and dropping a trailing empty one.
func splitLines(s string) []string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}
