package server

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/render"
	"github.com/frostpeakco/floe/pkg/thread"
)

// renderOp is the wire form of one render sink call. Op discriminates
// which fields are set.
type renderOp struct {
	Op        string              `json:"op"`
	Key       *render.ContentKey  `json:"key,omitempty"`
	Keys      []render.ContentKey `json:"keys,omitempty"`
	Text      string              `json:"text,omitempty"`
	Name      string              `json:"name,omitempty"`
	Status    string              `json:"status,omitempty"`
	SQL       string              `json:"sql,omitempty"`
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
	Table     *thread.Table       `json:"table,omitempty"`
	Chart     map[string]any      `json:"chart,omitempty"`
	Citations []thread.Citation   `json:"citations,omitempty"`
}

// sseSink is a render.Sink that writes each call as a "render" SSE event.
// Writes block until the client consumes them, which gives the turn
// stream direct backpressure.
type sseSink struct {
	mu     sync.Mutex
	w      io.Writer
	logger *zap.Logger
	failed bool
}

func newSSESink(w io.Writer, logger *zap.Logger) *sseSink {
	return &sseSink{w: w, logger: logger}
}

func (s *sseSink) emit(op renderOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return
	}

	payload, err := json.Marshal(op)
	if err != nil {
		s.logger.Error("failed to marshal render op", zap.Error(err))
		return
	}

	if _, err := fmt.Fprintf(s.w, "event: render\ndata: %s\n\n", payload); err != nil {
		// Client went away. Stop writing but keep the turn running so
		// the message is still assembled and persisted.
		s.logger.Debug("render stream closed by client", zap.Error(err))
		s.failed = true
	}
}

func (s *sseSink) Status(message string) {
	s.emit(renderOp{Op: "status", Message: message})
}

func (s *sseSink) Text(key render.ContentKey, markdown string) {
	s.emit(renderOp{Op: "text", Key: &key, Text: markdown})
}

func (s *sseSink) Reasoning(key render.ContentKey, text string) {
	s.emit(renderOp{Op: "reasoning", Key: &key, Text: text})
}

func (s *sseSink) Clear(keys []render.ContentKey) {
	s.emit(renderOp{Op: "clear", Keys: keys})
}

func (s *sseSink) ToolUse(name, detail string) {
	s.emit(renderOp{Op: "tool_use", Name: name, Text: detail})
}

func (s *sseSink) ToolResult(name, status, text, sql string) {
	s.emit(renderOp{Op: "tool_result", Name: name, Status: status, Text: text, SQL: sql})
}

func (s *sseSink) SQLExplanation(key render.ContentKey, text string) {
	s.emit(renderOp{Op: "sql_explanation", Key: &key, Text: text})
}

func (s *sseSink) Table(key render.ContentKey, table *thread.Table) {
	s.emit(renderOp{Op: "table", Key: &key, Table: table})
}

func (s *sseSink) Chart(key render.ContentKey, spec map[string]any) {
	s.emit(renderOp{Op: "chart", Key: &key, Chart: spec})
}

func (s *sseSink) Citations(citations []thread.Citation) {
	s.emit(renderOp{Op: "citations", Citations: citations})
}

func (s *sseSink) Notice(text string) {
	s.emit(renderOp{Op: "notice", Text: text})
}

func (s *sseSink) Error(code, message string) {
	s.emit(renderOp{Op: "error", Code: code, Message: message})
}

func (s *sseSink) Done() {
	s.emit(renderOp{Op: "done"})
}
