package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// HTTPPath is where the streamable HTTP transport is mounted.
const HTTPPath = "/mcp"

// HTTPServer serves MCP over streamable HTTP, for agents that talk to the
// running desktop app.
type HTTPServer struct {
	srv  *http.Server
	ln   net.Listener
	done chan error
	log  *zap.Logger
}

// ListenHTTP binds addr and serves s under HTTPPath until Shutdown.
func (s *Server) ListenHTTP(addr string) (*HTTPServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mcp listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(HTTPPath, server.NewStreamableHTTPServer(s.mcp))

	h := &HTTPServer{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		ln:   ln,
		done: make(chan error, 1),
		log:  s.log,
	}
	go func() {
		err := h.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		h.done <- err
	}()
	s.log.Info("serving http", zap.String("addr", h.Addr()))
	return h, nil
}

// Addr is the bound address, useful when listening on port 0.
func (h *HTTPServer) Addr() string {
	return h.ln.Addr().String()
}

// URL is the endpoint agents connect to.
func (h *HTTPServer) URL() string {
	return "http://" + h.Addr() + HTTPPath
}

// Shutdown stops accepting requests and waits for open ones until ctx ends.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	err := h.srv.Shutdown(ctx)
	if err != nil {
		h.srv.Close()
	}
	if serveErr := <-h.done; serveErr != nil {
		h.log.Warn("http server stopped", zap.Error(serveErr))
	}
	return err
}
