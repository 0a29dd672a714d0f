package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/intunesync/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const instructions = `Triggers Intune device check-ins.
Sync tools act on real devices and run one at a time; a second sync while
one is running is rejected. Use list_devices to check exact names first.`

// Server exposes the sync orchestrator to MCP clients.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// HTTPConfig configures the streamable HTTP transport.
type HTTPConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8080".
	Addr string

	// Token, if set, must be sent as "Authorization: Bearer <token>".
	Token string

	// OnListen is called with the bound address once the listener is open.
	OnListen func(addr net.Addr)
}

// NewServer creates a server over ports. Only the sync orchestrator is
// required; tools and resources backed by a missing port are not registered.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "intunesync",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler, guarded by token when set.
func (s *Server) Handler(token string) http.Handler {
	var h http.Handler = mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
	if token != "" {
		h = requireBearer(token, h)
	}
	return h
}

// RunHTTP serves streamable HTTP until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, cfg HTTPConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(cfg.Token),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	logger.Info("mcp: listening on %s", ln.Addr())
	if cfg.OnListen != nil {
		cfg.OnListen(ln.Addr())
	}

	err = httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func requireBearer(token string, next http.Handler) http.Handler {
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			logger.Debug("mcp: rejected request from %s", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Bearer realm="intunesync"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
