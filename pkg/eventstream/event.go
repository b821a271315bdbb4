package eventstream

import (
	"time"

	"github.com/frostpeakco/floe/pkg/thread"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnFinalized is emitted after an assistant turn completes
	// and its message is persisted.
	EventTypeTurnFinalized = "floe.turn.finalized"
)

// TurnFinalizedEvent is a transport-neutral event payload for a finalized
// agent turn.
type TurnFinalizedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   TurnRequestMeta `json:"request_meta"`
	Message       *thread.Message `json:"message"`
}

// EventSource identifies the agent that produced the turn.
type EventSource struct {
	Account string `json:"account,omitempty"`
	Agent   string `json:"agent,omitempty"`
	Model   string `json:"model,omitempty"`
}

// TurnRequestMeta captures request lifecycle metadata for the event.
type TurnRequestMeta struct {
	RequestID   string    `json:"request_id"`
	ThreadID    int64     `json:"thread_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Failed      bool      `json:"failed"`
}
