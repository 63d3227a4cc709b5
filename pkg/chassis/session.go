// CLAUDE:SUMMARY MCP JSON-RPC sessions over a single bidirectional QUIC stream, opened by the MCP1 magic bytes.
package chassis

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/touchstone-names/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
)

const (
	// ALPNMCP selects MCP on a QUIC connection. "h3" selects HTTP/3.
	ALPNMCP = "horos-mcp-v1"
	alpnH3  = "h3"

	// magic opens every MCP stream, after ALPN.
	magic = "MCP1"

	// MaxMessageSize bounds one JSON-RPC line.
	MaxMessageSize = 10 << 20
)

const (
	streamErrProtocol quic.StreamErrorCode = 0x02
	streamErrTooLarge quic.StreamErrorCode = 0x03

	connErrNone        quic.ApplicationErrorCode = 0x00
	connErrALPN        quic.ApplicationErrorCode = 0x01
	connErrProtocol    quic.ApplicationErrorCode = 0x03
	connErrMCPDisabled quic.ApplicationErrorCode = 0x10
)

var (
	ErrBadMagic = errors.New("invalid magic bytes: expected MCP1")
	ErrALPN     = errors.New("ALPN negotiation failed: " + ALPNMCP + " not selected")
)

func readMagic(r io.Reader) error {
	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("read magic bytes: %w", err)
	}
	if !bytes.Equal(buf, []byte(magic)) {
		return fmt.Errorf("%w: got %q", ErrBadMagic, buf)
	}
	return nil
}

func writeMagic(w io.Writer) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return fmt.Errorf("write magic bytes: %w", err)
	}
	return nil
}

// mcpHandler runs one MCP session per QUIC connection.
type mcpHandler struct {
	srv    *server.MCPServer
	logger *slog.Logger
}

func (h *mcpHandler) serveConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		h.logger.Warn("mcp: accept stream", "remote", remote, "error", err)
		conn.CloseWithError(connErrProtocol, "stream accept failed")
		return
	}
	if err := readMagic(stream); err != nil {
		h.logger.Warn("mcp: rejected stream", "remote", remote, "error", err)
		stream.CancelRead(streamErrProtocol)
		stream.CancelWrite(streamErrProtocol)
		conn.CloseWithError(connErrProtocol, "invalid magic bytes")
		return
	}

	sess := &session{
		id:            "quic_" + randomHex(4),
		notifications: make(chan mcp.JSONRPCNotification, 100),
		w:             stream,
	}
	if err := h.srv.RegisterSession(ctx, sess); err != nil {
		h.logger.Error("mcp: register session", "session", sess.id, "error", err)
		stream.Close()
		return
	}
	defer h.srv.UnregisterSession(ctx, sess.id)
	h.logger.Info("mcp session started", "session", sess.id, "remote", remote)

	ctx, cancel := context.WithCancel(kit.WithTransport(ctx, "mcp_quic"))
	defer cancel()
	ctx = h.srv.WithContext(ctx, sess)
	go sess.forwardNotifications(ctx)

	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := h.srv.HandleMessage(ctx, json.RawMessage(line))
		if resp == nil {
			continue
		}
		if err := sess.send(resp); err != nil {
			h.logger.Warn("mcp: write", "session", sess.id, "error", err)
			break
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			stream.CancelRead(streamErrTooLarge)
		}
		if ctx.Err() == nil {
			h.logger.Warn("mcp: read", "session", sess.id, "error", err)
		}
	}
	h.logger.Info("mcp session ended", "session", sess.id, "remote", remote)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// session implements server.ClientSession over one stream. Responses and
// notifications share the stream, so every write goes through send.
type session struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool

	mu sync.Mutex
	w  io.Writer
}

func (s *session) SessionID() string                                   { return s.id }
func (s *session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }
func (s *session) Initialize()                                         { s.initialized.Store(true) }
func (s *session) Initialized() bool                                   { return s.initialized.Load() }

func (s *session) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(data)
	return err
}

func (s *session) forwardNotifications(ctx context.Context) {
	for {
		select {
		case n := <-s.notifications:
			_ = s.send(n)
		case <-ctx.Done():
			return
		}
	}
}
