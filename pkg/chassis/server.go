// Package chassis serves the name API on two transports sharing one port
// number:
//
//   - TCP: HTTP/1.1 and HTTP/2 over TLS
//   - UDP: QUIC, demultiplexed by ALPN into HTTP/3 ("h3") and MCP
//     JSON-RPC streams (ALPNMCP)
//
// HTTP responses carry an Alt-Svc header advertising HTTP/3.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

// Config holds the chassis settings.
type Config struct {
	Addr      string // host:port for both TCP and UDP; port 0 picks a free one
	TLS       *tls.Config
	Handler   http.Handler
	MCPServer *server.MCPServer // nil disables MCP over QUIC
	Logger    *slog.Logger
}

// Server runs the TCP and QUIC listeners.
type Server struct {
	cfg     Config
	handler http.Handler
	mcp     *mcpHandler

	mu     sync.Mutex
	addr   string
	tcpLn  net.Listener
	quicLn *quic.Listener
	tcp    *http.Server
	h3     *http3.Server
}

func New(cfg Config) (*Server, error) {
	if cfg.TLS == nil {
		return nil, errors.New("chassis: TLS config required")
	}
	if cfg.Handler == nil {
		return nil, errors.New("chassis: handler required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{cfg: cfg}
	if cfg.MCPServer != nil {
		s.mcp = &mcpHandler{srv: cfg.MCPServer, logger: cfg.Logger}
	}
	return s, nil
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxStreamReceiveWindow:     10 << 20,
		MaxConnectionReceiveWindow: 50 << 20,
		MaxIdleTimeout:             5 * time.Minute,
		KeepAlivePeriod:            30 * time.Second,
	}
}

// Listen binds TCP first, then UDP on the port TCP obtained.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tcpTLS := s.cfg.TLS.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("tcp listen: %w", err)
	}

	host, _, err := net.SplitHostPort(s.cfg.Addr)
	if err != nil {
		ln.Close()
		return fmt.Errorf("addr %q: %w", s.cfg.Addr, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	s.addr = net.JoinHostPort(host, strconv.Itoa(port))

	qln, err := quic.ListenAddr(s.addr, s.cfg.TLS, quicConfig())
	if err != nil {
		ln.Close()
		return fmt.Errorf("quic listen: %w", err)
	}

	s.handler = securityHeaders(altSvc(port, s.cfg.Handler))
	s.tcpLn = tls.NewListener(ln, tcpTLS)
	s.quicLn = qln
	s.tcp = &http.Server{Handler: s.handler, TLSConfig: tcpTLS, ReadHeaderTimeout: 10 * time.Second}
	s.h3 = &http3.Server{Handler: s.handler}
	return nil
}

// Addr is the bound host:port, valid after Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Serve accepts on both listeners until ctx is done or one of them fails.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	tcp, tcpLn, qln, addr := s.tcp, s.tcpLn, s.quicLn, s.addr
	s.mu.Unlock()
	if tcp == nil {
		return errors.New("chassis: Serve called before Listen")
	}

	s.cfg.Logger.Info("chassis listening", "addr", addr,
		"tcp", "HTTP/1.1+HTTP/2 (TLS)", "udp", "QUIC (HTTP/3 + MCP)", "mcp", s.mcp != nil)

	errCh := make(chan error, 2)
	go func() {
		if err := tcp.Serve(tcpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("tcp: %w", err)
		}
	}()
	go func() {
		errCh <- s.acceptQUIC(ctx, qln)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) acceptQUIC(ctx context.Context, ln *quic.Listener) error {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("quic accept: %w", err)
		}

		switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn {
		case alpnH3:
			go func() {
				if err := s.h3.ServeQUICConn(conn); err != nil {
					s.cfg.Logger.Debug("http3 conn done", "remote", conn.RemoteAddr(), "error", err)
				}
			}()
		case ALPNMCP:
			if s.mcp == nil {
				conn.CloseWithError(connErrMCPDisabled, "MCP not enabled")
				continue
			}
			go s.mcp.serveConn(ctx, conn)
		default:
			s.cfg.Logger.Warn("unsupported ALPN", "alpn", alpn, "remote", conn.RemoteAddr())
			conn.CloseWithError(connErrALPN, "unsupported ALPN: "+alpn)
		}
	}
}

// Shutdown stops both listeners, letting in-flight HTTP requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.tcp != nil {
		errs = append(errs, s.tcp.Shutdown(ctx))
	}
	if s.h3 != nil {
		errs = append(errs, s.h3.Close())
	}
	if s.quicLn != nil {
		errs = append(errs, s.quicLn.Close())
	}
	return errors.Join(errs...)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=31536000")
		next.ServeHTTP(w, r)
	})
}

func altSvc(port int, next http.Handler) http.Handler {
	value := fmt.Sprintf(`h3=":%d"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", value)
		next.ServeHTTP(w, r)
	})
}
