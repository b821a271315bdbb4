package server

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/cortex"
	"github.com/frostpeakco/floe/pkg/eventstream"
	"github.com/frostpeakco/floe/pkg/reassembly"
	"github.com/frostpeakco/floe/pkg/thread"
	"github.com/frostpeakco/floe/server/worker"
)

const defaultThreadPageSize = 50

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

// runTurnRequest is the body of POST /api/threads/:id/messages.
type runTurnRequest struct {
	Message string `json:"message"`

	// Agent and Model override the server defaults for this turn.
	Agent string `json:"agent,omitempty"`
	Model string `json:"model,omitempty"`
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleListAgents(c *fiber.Ctx) error {
	agents, err := s.cortex.ListAgents(c.Context(), s.config.Database, s.config.Schema)
	if err != nil {
		s.logger.Error("failed to list agents", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to list agents"})
	}
	return c.JSON(fiber.Map{"agents": agents})
}

func (s *Server) handleDescribeAgent(c *fiber.Ctx) error {
	agent, err := s.cortex.DescribeAgent(c.Context(), s.config.Database, s.config.Schema, c.Params("name"))
	if err != nil {
		s.logger.Error("failed to describe agent",
			zap.String("agent", c.Params("name")),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to describe agent"})
	}
	if agent.Model == "" {
		agent.Model = s.config.Model
	}
	return c.JSON(agent)
}

func (s *Server) handleListThreads(c *fiber.Ctx) error {
	threads, err := s.cortex.ListThreads(c.Context(), s.config.OriginApplication)
	if err != nil {
		s.logger.Error("failed to list threads", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to list threads"})
	}
	return c.JSON(fiber.Map{"threads": threads})
}

func (s *Server) handleCreateThread(c *fiber.Ctx) error {
	threadID, err := s.cortex.CreateThread(c.Context(), s.config.OriginApplication)
	if err != nil {
		s.logger.Error("failed to create thread", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to create thread"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"thread_id": threadID})
}

func (s *Server) handleGetThread(c *fiber.Ctx) error {
	threadID, err := parseThreadID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid thread id"})
	}

	pageSize := c.QueryInt("page_size", defaultThreadPageSize)
	th, err := s.cortex.GetThread(c.Context(), threadID, pageSize)
	if err != nil {
		s.logger.Error("failed to get thread", zap.Int64("thread_id", threadID), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to get thread"})
	}
	return c.JSON(th)
}

func (s *Server) handleDeleteThread(c *fiber.Ctx) error {
	threadID, err := parseThreadID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid thread id"})
	}

	if err := s.cortex.DeleteThread(c.Context(), threadID); err != nil {
		s.logger.Error("failed to delete thread", zap.Int64("thread_id", threadID), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to delete thread"})
	}

	// The local cache is best-effort; the vendor thread is gone either way.
	if err := s.store.DeleteThread(c.Context(), threadID); err != nil {
		s.logger.Warn("failed to delete cached messages", zap.Int64("thread_id", threadID), zap.Error(err))
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRenameThread(c *fiber.Ctx) error {
	threadID, err := parseThreadID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid thread id"})
	}

	var req struct {
		ThreadName string `json:"thread_name"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.ThreadName) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "thread_name is required"})
	}

	if err := s.cortex.RenameThread(c.Context(), threadID, req.ThreadName); err != nil {
		s.logger.Error("failed to rename thread", zap.Int64("thread_id", threadID), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to rename thread"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListMessages(c *fiber.Ctx) error {
	threadID, err := parseThreadID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid thread id"})
	}

	msgs, err := s.store.ListThread(c.Context(), threadID)
	if err != nil {
		s.logger.Error("failed to list cached messages", zap.Int64("thread_id", threadID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to list messages"})
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// handleRunTurn starts an agent run for a thread and streams render
// operations back as server-sent events.
func (s *Server) handleRunTurn(c *fiber.Ctx) error {
	threadID, err := parseThreadID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid thread id"})
	}

	var req runTurnRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "message is required"})
	}

	agent := req.Agent
	if agent == "" {
		agent = s.config.Agent
	}
	model := req.Model
	if model == "" {
		model = s.config.Model
	}
	if agent == "" || model == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "no agent or model configured"})
	}

	if !s.beginTurn(threadID) {
		return c.Status(fiber.StatusConflict).JSON(errorResponse{Error: "a turn is already streaming for this thread"})
	}

	// The newest assistant message becomes the parent of this turn.
	parentID := int64(0)
	if th, err := s.cortex.GetThread(c.Context(), threadID, defaultThreadPageSize); err == nil {
		parentID = th.ParentMessageID()
	} else {
		s.logger.Warn("failed to resolve parent message id",
			zap.Int64("thread_id", threadID), zap.Error(err))
	}

	startedAt := time.Now().UTC()
	var capture bytes.Buffer

	// The run outlives this handler: fasthttp recycles its RequestCtx
	// after the handler returns, but the stream goroutine keeps reading
	// from the upstream connection.
	stream, err := s.cortex.Run(context.Background(), cortex.RunRequest{
		Database:        s.config.Database,
		Schema:          s.config.Schema,
		Agent:           agent,
		Model:           model,
		ThreadID:        threadID,
		ParentMessageID: parentID,
		Message:         req.Message,
		RawCapture:      &capture,
	})
	if err != nil {
		s.endTurn(threadID)
		s.logger.Error("failed to start agent run", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to start agent run"})
	}

	s.pool.Enqueue(worker.Job{Message: &thread.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		RequestID: stream.RequestID,
		Role:      thread.RoleUser,
		CreatedAt: startedAt,
		Content:   []thread.ContentItem{{Type: thread.ContentText, Text: req.Message}},
	}})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Request-Id", stream.RequestID)

	pr, pw := io.Pipe()
	go s.streamTurn(stream, pw, threadID, agent, model, startedAt, &capture)

	// Unknown size (-1) triggers chunked transfer encoding; pw.Write
	// blocks until fasthttp flushes to the socket, so render ops reach
	// the client one by one.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamTurn drives the agent run to completion, emitting render ops to
// the pipe and enqueuing the finalized message for persistence.
func (s *Server) streamTurn(stream *cortex.RunStream, pw *io.PipeWriter, threadID int64, agent, model string, startedAt time.Time, capture *bytes.Buffer) {
	defer pw.Close()
	defer stream.Close()
	defer s.endTurn(threadID)

	sink := newSSESink(pw, s.logger)
	ra := reassembly.New(stream.RequestID, sink, s.logger)

	interrupted := false
	for {
		ev, err := stream.Next()
		if err != nil {
			s.logger.Error("error reading agent run stream",
				zap.String("request_id", stream.RequestID), zap.Error(err))
			sink.Error("stream_interrupted", "the agent run stream was interrupted")
			interrupted = true
			break
		}
		if ev == nil {
			break
		}
		ra.HandleEvent(ev)
		if ev.Terminal() {
			break
		}
	}
	if !interrupted {
		ra.Finalize()
	}

	s.setLastCapture(capture.Bytes())

	if interrupted || ra.Failed() {
		s.logger.Warn("turn not persisted",
			zap.String("request_id", stream.RequestID),
			zap.Bool("interrupted", interrupted))
		return
	}

	msg := ra.Message(threadID)
	completedAt := time.Now().UTC()
	s.pool.Enqueue(worker.Job{
		Message: msg,
		Event: &eventstream.TurnFinalizedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeTurnFinalized,
			EventID:       uuid.NewString(),
			EmittedAt:     completedAt,
			Source: eventstream.EventSource{
				Account: s.config.Account,
				Agent:   agent,
				Model:   model,
			},
			RequestMeta: eventstream.TurnRequestMeta{
				RequestID:   stream.RequestID,
				ThreadID:    threadID,
				StartedAt:   startedAt,
				CompletedAt: completedAt,
				DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
			},
			Message: msg,
		},
	})
}

func (s *Server) handleDebugLast(c *fiber.Ctx) error {
	raw := s.getLastCapture()
	if len(raw) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "no captured stream"})
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.Send(raw)
}

func parseThreadID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
