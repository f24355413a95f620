// Package api serves the dashboard's derived views over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"

	"github.com/kubeadapt/clusterview/internal/observability"
	"github.com/kubeadapt/clusterview/pkg/model"
)

const (
	basePath   = "/api/v1"
	streamPath = basePath + "/stream"
)

// Source is the read side of the snapshot store.
type Source interface {
	NodeSummaries() *model.NodeSummaries
	Node(hostname, ip string) (model.NodeSummary, bool)
	MemorySnapshot() (*model.MemoryTable, model.MemoryGroupByKey)
	Subscribe() (updates <-chan struct{}, cancel func())
}

// MemoryControl drives the memory table poller.
type MemoryControl interface {
	Pause()
	Resume()
	Paused() bool
	GroupBy() model.MemoryGroupByKey
	SetGroupBy(key model.MemoryGroupByKey) error
}

// StatusProvider reports collector states and active errors.
type StatusProvider interface {
	Status() model.StatusView
}

// Options configure the API server.
type Options struct {
	Port int
	// AllowedOrigins restricts websocket upgrades; empty allows any origin.
	AllowedOrigins []string
	// VisibleEntries is the default number of rows shown per memory group.
	VisibleEntries int
}

// Server is the dashboard view API.
type Server struct {
	opts    Options
	source  Source
	memory  MemoryControl
	status  StatusProvider
	metrics *observability.Metrics

	engine     *gin.Engine
	upgrader   websocket.Upgrader
	httpServer *http.Server

	closing  chan struct{}
	// streamMu orders streams.Add against Stop so that no stream is added
	// once Stop has started waiting.
	streamMu sync.Mutex
	stopped  bool
	streams  sync.WaitGroup
}

// NewServer creates the API server. Pass Port 0 to let the OS pick a free port.
func NewServer(opts Options, source Source, memory MemoryControl, status StatusProvider, metrics *observability.Metrics) *Server {
	s := &Server{
		opts:    opts,
		source:  source,
		memory:  memory,
		status:  status,
		metrics: metrics,
		closing: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger(), s.countRequests())
	s.registerRoutes(s.engine.Group(basePath))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Handler returns the HTTP handler. Every route except the websocket stream
// is gzip-compressed when the client accepts it.
func (s *Server) Handler() http.Handler {
	gz := gzhttp.GzipHandler(s.engine)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == streamPath {
			s.engine.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Addr returns the listen address; after Start it is the bound address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start begins listening and serving HTTP in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("api server listen: %w", err)
	}
	s.httpServer.Addr = ln.Addr().String()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("api server exited", "error", err)
		}
	}()
	slog.Info("api server listening", "addr", s.httpServer.Addr)
	return nil
}

// Stop closes open streams and gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.streamMu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.closing)
	}
	s.streamMu.Unlock()
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// acquireStream registers a new stream. It reports false once Stop has run.
func (s *Server) acquireStream() bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	if s.stopped {
		return false
	}
	s.streams.Add(1)
	return true
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, r.Header.Get("Origin"))
}
