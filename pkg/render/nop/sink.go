// Package nop provides a render sink that discards everything, used for
// tests and headless runs.
package nop

import (
	"github.com/frostpeakco/floe/pkg/render"
	"github.com/frostpeakco/floe/pkg/thread"
)

// Sink is a no-op render sink.
type Sink struct{}

// NewSink creates a new no-op render sink.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Status(string)                            {}
func (s *Sink) Text(render.ContentKey, string)           {}
func (s *Sink) Reasoning(render.ContentKey, string)      {}
func (s *Sink) Clear([]render.ContentKey)                {}
func (s *Sink) ToolUse(string, string)                   {}
func (s *Sink) ToolResult(string, string, string, string) {}
func (s *Sink) SQLExplanation(render.ContentKey, string) {}
func (s *Sink) Table(render.ContentKey, *thread.Table)   {}
func (s *Sink) Chart(render.ContentKey, map[string]any)  {}
func (s *Sink) Citations([]thread.Citation)              {}
func (s *Sink) Notice(string)                            {}
func (s *Sink) Error(string, string)                     {}
func (s *Sink) Done()                                    {}
