// Package render defines the output surface agent run reassembly draws
// on. A Sink receives replace-style updates as the stream progresses;
// implementations turn them into terminal output, server-sent render
// operations, or recorded state for tests.
package render

import "github.com/frostpeakco/floe/pkg/thread"

// ContentKey scopes a content slot to the agent run that produced it.
// Keys from different requests never collide, which is what keeps an
// earlier turn's content safe when a later turn streams into the same
// surface.
type ContentKey struct {
	RequestID string `json:"request_id"`
	Index     int    `json:"index"`
}

// Sink receives rendering updates for an agent run.
//
// Text and Reasoning carry the full accumulated buffer for their slot,
// not a delta; sinks replace whatever they previously displayed for the
// key. Clear removes slots entirely, used when the agent discards its
// partial answer during plan re-evaluation.
type Sink interface {
	// Status reports orchestration progress.
	Status(message string)

	// Text replaces the answer text for a slot.
	Text(key ContentKey, markdown string)

	// Reasoning replaces the reasoning text for a slot.
	Reasoning(key ContentKey, text string)

	// Clear removes previously rendered slots.
	Clear(keys []ContentKey)

	// ToolUse reports a tool invocation.
	ToolUse(name, detail string)

	// ToolResult reports a completed tool call.
	ToolResult(name, status, text, sql string)

	// SQLExplanation replaces the accumulated SQL explanation for a slot.
	SQLExplanation(key ContentKey, text string)

	// Table renders a structured result set into a slot.
	Table(key ContentKey, table *thread.Table)

	// Chart renders a chart specification into a slot.
	Chart(key ContentKey, spec map[string]any)

	// Citations delivers the numbered source list for the turn.
	Citations(citations []thread.Citation)

	// Notice surfaces a degraded-state warning to the user.
	Notice(text string)

	// Error reports a stream error. The turn is over.
	Error(code, message string)

	// Done signals normal completion. The turn is over.
	Done()
}
