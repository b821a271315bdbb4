package server

import (
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/cortex"
	"github.com/frostpeakco/floe/pkg/eventstream"
	"github.com/frostpeakco/floe/pkg/thread"
	"github.com/frostpeakco/floe/server/worker"
)

// Server is the chat HTTP server. It fronts the Cortex REST API for
// thread and agent management and streams agent turns to clients as
// server-sent render operations, persisting finalized turns through an
// async worker pool.
type Server struct {
	config    Config
	cortex    *cortex.Client
	store     thread.Store
	pool      *worker.Pool
	publisher eventstream.Publisher
	logger    *zap.Logger
	app       *fiber.App

	// turnMu guards activeTurns. One streaming turn per thread at a
	// time; overlapping turns would interleave parent message ids.
	turnMu      sync.Mutex
	activeTurns map[int64]struct{}

	captureMu   sync.Mutex
	lastCapture []byte
}

// NewServer creates a new chat server. The store and publisher are
// injected to allow sharing with other components.
func NewServer(config Config, client *cortex.Client, store thread.Store, publisher eventstream.Publisher, logger *zap.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	wp, err := worker.NewPool(&worker.Config{
		Store:     store,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:      config,
		cortex:      client,
		store:       store,
		pool:        wp,
		publisher:   publisher,
		logger:      logger,
		app:         app,
		activeTurns: make(map[int64]struct{}),
	}

	app.Get("/healthz", s.handleHealthz)
	app.Get("/api/agents", s.handleListAgents)
	app.Get("/api/agents/:name", s.handleDescribeAgent)
	app.Get("/api/threads", s.handleListThreads)
	app.Post("/api/threads", s.handleCreateThread)
	app.Get("/api/threads/:id", s.handleGetThread)
	app.Delete("/api/threads/:id", s.handleDeleteThread)
	app.Post("/api/threads/:id/rename", s.handleRenameThread)
	app.Get("/api/threads/:id/messages", s.handleListMessages)
	app.Post("/api/threads/:id/messages", s.handleRunTurn)
	app.Get("/api/debug/last", s.handleDebugLast)
	app.Get("/", s.handleIndex)

	return s, nil
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting chat server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("agent", s.config.Agent),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting chat server",
		zap.String("listen", listener.Addr().String()),
		zap.String("agent", s.config.Agent),
	)
	return s.app.Listener(listener)
}

// Close gracefully shuts down the server and waits for the worker pool
// to drain.
func (s *Server) Close() error {
	err := s.app.Shutdown()
	s.pool.Close()
	return err
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// beginTurn marks a thread as streaming. Returns false if a turn is
// already in flight for it.
func (s *Server) beginTurn(threadID int64) bool {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	if _, busy := s.activeTurns[threadID]; busy {
		return false
	}
	s.activeTurns[threadID] = struct{}{}
	return true
}

func (s *Server) endTurn(threadID int64) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	delete(s.activeTurns, threadID)
}

func (s *Server) setLastCapture(raw []byte) {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	s.lastCapture = append(s.lastCapture[:0], raw...)
}

func (s *Server) getLastCapture() []byte {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	out := make([]byte, len(s.lastCapture))
	copy(out, s.lastCapture)
	return out
}
