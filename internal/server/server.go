// Package server exposes the switch engine over JSON-RPC 2.0: an HTTP
// bridge for request/response calls and a websocket endpoint that
// additionally receives push notifications for switch events.
package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/creachadair/jrpc2/jhttp"
)

// Server manages the HTTP listener hosting the /rpc bridge and the /ws
// websocket endpoint.
type Server struct {
	addr     string
	log      *log.Logger
	rpc      *RPCServer
	notifier *RPCNotifier
	bridge   jhttp.Bridge
	server   *http.Server
	mu       sync.Mutex
}

// NewServer creates a Server. The notifier must be the same instance wired
// into the engine so websocket clients observe engine events.
func NewServer(addr string, l *log.Logger, rpc *RPCServer, notifier *RPCNotifier) *Server {
	return &Server{
		addr:     addr,
		log:      l,
		rpc:      rpc,
		notifier: notifier,
		bridge:   jhttp.NewBridge(rpc.Methods(), nil),
	}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/rpc", requireToken(s.rpc.cfg.Secret, s.bridge))
	mux.Handle("/ws", requireToken(s.rpc.cfg.Secret, http.HandlerFunc(s.serveWS)))
	return mux
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called. http.ErrServerClosed is swallowed as the expected shutdown signal.
func (s *Server) Start() error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.handler(),
	}
	s.mu.Unlock()

	s.log.Printf("server: listening on %s", s.addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil // Expected during shutdown
	}
	return err
}

// Shutdown gracefully stops the HTTP server and closes the bridge.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	err := s.server.Shutdown(ctx)
	s.bridge.Close()
	return err
}
