package chassis

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/quic-go/quic-go"
)

// MCPClient is an initialized MCP session over QUIC.
type MCPClient struct {
	conn   *quic.Conn
	stream *quic.Stream
	mcp    *client.Client
}

// DialMCP connects to addr, opens the MCP stream and runs the initialize
// handshake. A nil tlsCfg trusts any certificate.
func DialMCP(ctx context.Context, addr string, tlsCfg *tls.Config) (*MCPClient, error) {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(true)
	}
	conn, err := quic.DialAddr(ctx, addr, tlsCfg, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quic dial %s: %w", addr, err)
	}
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNMCP {
		conn.CloseWithError(connErrALPN, "bad ALPN")
		return nil, fmt.Errorf("%w: got %q", ErrALPN, alpn)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(connErrProtocol, "stream open failed")
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c := &MCPClient{conn: conn, stream: stream}
	if err := writeMagic(stream); err != nil {
		c.closeTransport()
		return nil, err
	}

	c.mcp = client.NewClient(transport.NewIO(stream, streamCloser{stream}, io.NopCloser(eofReader{})))
	if err := c.mcp.Start(ctx); err != nil {
		c.closeTransport()
		return nil, fmt.Errorf("mcp start: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "touchstone-names-client", Version: "1.0.0"}
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.mcp.Initialize(initCtx, initReq); err != nil {
		c.closeTransport()
		return nil, fmt.Errorf("mcp initialize: %w", err)
	}
	return c, nil
}

// CallTool invokes a tool by name.
func (c *MCPClient) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return c.mcp.CallTool(ctx, req)
}

// ListTools lists the tools the server offers.
func (c *MCPClient) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	return c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
}

func (c *MCPClient) Close() error {
	c.mcp.Close()
	c.closeTransport()
	return nil
}

func (c *MCPClient) closeTransport() {
	c.stream.Close()
	c.conn.CloseWithError(connErrNone, "client closing")
}

type streamCloser struct{ s *quic.Stream }

func (w streamCloser) Write(p []byte) (int, error) { return w.s.Write(p) }
func (w streamCloser) Close() error                { return w.s.Close() }

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
