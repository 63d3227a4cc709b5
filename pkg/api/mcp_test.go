package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
)

// toolReply is the JSON-RPC reply to a tools/call.
type toolReply struct {
	Result *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// callTool sends a tools/call through srv and returns whether the tool
// reported an error, plus the decoded JSON payload on success.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) (bool, map[string]any) {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	raw, err := json.Marshal(srv.HandleMessage(context.Background(), msg))
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	var reply toolReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		t.Fatalf("%s: decode reply %s: %v", name, raw, err)
	}
	if reply.Error != nil {
		t.Fatalf("%s: rpc error: %s", name, reply.Error.Message)
	}
	if reply.Result == nil || len(reply.Result.Content) == 0 {
		t.Fatalf("%s: empty reply %s", name, raw)
	}
	if reply.Result.IsError {
		return true, nil
	}
	var out map[string]any
	text := reply.Result.Content[0].Text
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("%s: decode %q: %v", name, text, err)
	}
	return false, out
}

func TestMCPTools(t *testing.T) {
	svc := testService(t)
	srv := server.NewMCPServer("test", "0.0.0", server.WithToolCapabilities(false))
	RegisterMCPTools(srv, svc, nil)

	_, out := callTool(t, srv, "normalize_name", map[string]any{"name": "Prof. Chas. Dickens"})
	if out["normalized"] != "charles dickens" {
		t.Errorf("normalized = %v, want charles dickens", out["normalized"])
	}

	_, out = callTool(t, srv, "match_names", map[string]any{"name1": "Smith", "name2": "Smyth", "threshold": "weak"})
	if out["match"] != true {
		t.Errorf("match_names weak = %v, want true", out["match"])
	}

	failed, out := callTool(t, srv, "match_names", map[string]any{"name1": "Smith", "name2": "Smyth", "threshold": "1"})
	if failed || out["threshold"] != "normal" {
		t.Errorf("match_names threshold \"1\" = failed %v, %v, want normal", failed, out)
	}

	failed, _ = callTool(t, srv, "match_names", map[string]any{"name1": "Smith"})
	if !failed {
		t.Error("match_names without name2 should fail")
	}

	failed, _ = callTool(t, srv, "match_names", map[string]any{"name1": "a", "name2": "b", "threshold": "loose"})
	if !failed {
		t.Error("match_names with unknown threshold should fail")
	}

	_, out = callTool(t, srv, "add_names", map[string]any{"names": "John Doe\nJanis Doe\n", "ids": "1\n3"})
	if out["added"] != float64(2) {
		t.Errorf("added = %v, want 2", out["added"])
	}

	failed, _ = callTool(t, srv, "add_names", map[string]any{"names": "a\nb", "ids": "1"})
	if !failed {
		t.Error("add_names with mismatched lists should fail")
	}

	_, out = callTool(t, srv, "lookup_name", map[string]any{"name": "Doe John"})
	strong, _ := out["strong"].([]any)
	if len(strong) != 1 || strong[0] != "1" {
		t.Errorf("lookup strong = %v, want [1]", out["strong"])
	}
	if svc.Directory.Stats().Names != 2 {
		t.Errorf("directory not shared with MCP tools: %+v", svc.Directory.Stats())
	}
}
