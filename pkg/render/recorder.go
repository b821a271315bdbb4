package render

import (
	"sync"

	"github.com/frostpeakco/floe/pkg/thread"
)

// Op is one recorded sink call.
type Op struct {
	Kind    string
	Key     ContentKey
	Keys    []ContentKey
	Text    string
	Name    string
	Status  string
	SQL     string
	Code    string
	Message string
	Table   *thread.Table
	Chart   map[string]any
}

// Recorder is a Sink that records every call and tracks the final state
// of each slot. Used by tests and the debug endpoint.
type Recorder struct {
	mu sync.Mutex

	ops       []Op
	texts     map[ContentKey]string
	reasoning map[ContentKey]string
	citations []thread.Citation
	done      bool
	errCode   string
	errMsg    string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		texts:     make(map[ContentKey]string),
		reasoning: make(map[ContentKey]string),
	}
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *Recorder) Status(message string) {
	r.record(Op{Kind: "status", Message: message})
}

func (r *Recorder) Text(key ContentKey, markdown string) {
	r.mu.Lock()
	r.texts[key] = markdown
	r.mu.Unlock()
	r.record(Op{Kind: "text", Key: key, Text: markdown})
}

func (r *Recorder) Reasoning(key ContentKey, text string) {
	r.mu.Lock()
	r.reasoning[key] = text
	r.mu.Unlock()
	r.record(Op{Kind: "reasoning", Key: key, Text: text})
}

func (r *Recorder) Clear(keys []ContentKey) {
	r.mu.Lock()
	for _, k := range keys {
		delete(r.texts, k)
		delete(r.reasoning, k)
	}
	r.mu.Unlock()
	r.record(Op{Kind: "clear", Keys: keys})
}

func (r *Recorder) ToolUse(name, detail string) {
	r.record(Op{Kind: "tool_use", Name: name, Text: detail})
}

func (r *Recorder) ToolResult(name, status, text, sql string) {
	r.record(Op{Kind: "tool_result", Name: name, Status: status, Text: text, SQL: sql})
}

func (r *Recorder) SQLExplanation(key ContentKey, text string) {
	r.record(Op{Kind: "sql_explanation", Key: key, Text: text})
}

func (r *Recorder) Table(key ContentKey, table *thread.Table) {
	r.record(Op{Kind: "table", Key: key, Table: table})
}

func (r *Recorder) Chart(key ContentKey, spec map[string]any) {
	r.record(Op{Kind: "chart", Key: key, Chart: spec})
}

func (r *Recorder) Citations(citations []thread.Citation) {
	r.mu.Lock()
	r.citations = citations
	r.mu.Unlock()
	r.record(Op{Kind: "citations"})
}

func (r *Recorder) Notice(text string) {
	r.record(Op{Kind: "notice", Text: text})
}

func (r *Recorder) Error(code, message string) {
	r.mu.Lock()
	r.errCode = code
	r.errMsg = message
	r.mu.Unlock()
	r.record(Op{Kind: "error", Code: code, Message: message})
}

func (r *Recorder) Done() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
	r.record(Op{Kind: "done"})
}

// Ops returns a copy of the recorded calls in order.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// TextFor returns the last rendered text for a slot.
func (r *Recorder) TextFor(key ContentKey) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.texts[key]
	return s, ok
}

// ReasoningFor returns the last rendered reasoning for a slot.
func (r *Recorder) ReasoningFor(key ContentKey) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.reasoning[key]
	return s, ok
}

// LiveKeys returns the slot keys that currently hold text.
func (r *Recorder) LiveKeys() []ContentKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]ContentKey, 0, len(r.texts))
	for k := range r.texts {
		keys = append(keys, k)
	}
	return keys
}

// RecordedCitations returns the final citation list.
func (r *Recorder) RecordedCitations() []thread.Citation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.citations
}

// Completed reports whether Done was called.
func (r *Recorder) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns the recorded error code and message.
func (r *Recorder) Err() (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errCode, r.errMsg
}
