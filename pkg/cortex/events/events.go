// Package events defines the typed model for Cortex agent run stream
// events. The run endpoint emits SSE events whose "event:" field names
// one of the kinds below; Parse converts a raw sse.Event into the
// corresponding typed payload.
package events

import "encoding/json"

// Kind identifies an agent run stream event type.
type Kind string

const (
	// KindResponse is the basic response envelope event. It carries no
	// payload relevant to reassembly.
	KindResponse Kind = "response"

	// KindStatus carries orchestration progress updates. A status of
	// "reevaluating_plan" signals the agent is about to replace its
	// streamed answer.
	KindStatus Kind = "response.status"

	// KindTextDelta carries an incremental answer text fragment.
	KindTextDelta Kind = "response.text.delta"

	// KindText carries complete answer text. Redundant with the deltas,
	// surfaced only for debugging.
	KindText Kind = "response.text"

	// KindTextAnnotation carries a citation annotation for answer text.
	KindTextAnnotation Kind = "response.text.annotation"

	// KindThinkingDelta carries an incremental reasoning fragment.
	KindThinkingDelta Kind = "response.thinking.delta"

	// KindThinking carries the complete reasoning text.
	KindThinking Kind = "response.thinking"

	// KindToolUse signals the agent invoked a tool.
	KindToolUse Kind = "response.tool_use"

	// KindToolResult carries a tool's output, including any embedded
	// search citations.
	KindToolResult Kind = "response.tool_result"

	// KindToolResultStatus carries tool execution progress.
	KindToolResultStatus Kind = "response.tool_result.status"

	// KindAnalystDelta carries incremental analyst commentary emitted
	// while a SQL tool runs.
	KindAnalystDelta Kind = "response.tool_result.analyst.delta"

	// KindSQLExplanationDelta carries incremental SQL explanation text.
	KindSQLExplanationDelta Kind = "response.tool_result.sql_explanation.delta"

	// KindTable carries a structured result set.
	KindTable Kind = "response.table"

	// KindChart carries a Vega-Lite chart specification.
	KindChart Kind = "response.chart"

	// KindMetadata carries message identifiers for the turn.
	KindMetadata Kind = "metadata"

	// KindExecutionTrace carries orchestration trace data, captured only
	// for debugging.
	KindExecutionTrace Kind = "execution_trace"

	// KindDone signals the stream completed normally.
	KindDone Kind = "response.done"

	// KindResponseError carries a response-scoped error.
	KindResponseError Kind = "response.error"

	// KindError carries a top-level stream error. Processing stops.
	KindError Kind = "error"

	// KindUnknown is assigned to event types this package does not model.
	// The raw payload is preserved for debugging.
	KindUnknown Kind = ""
)

// Event is a parsed agent run stream event. Kind discriminates which
// payload pointer is set; all others are nil. Raw always holds the
// original data payload.
type Event struct {
	Kind Kind

	Status              *Status
	TextDelta           *TextDelta
	Text                *Text
	Annotation          *Annotation
	ThinkingDelta       *ThinkingDelta
	Thinking            *Thinking
	ToolUse             *ToolUse
	ToolResult          *ToolResult
	ToolResultStatus    *ToolResultStatus
	AnalystDelta        *ToolResultDelta
	SQLExplanationDelta *ToolResultDelta
	Table               *Table
	Chart               *Chart
	Metadata            *Metadata
	Error               *Error

	// SSEType is the raw SSE event type, useful when Kind is KindUnknown.
	SSEType string

	Raw json.RawMessage
}

// Terminal reports whether this event ends stream processing.
func (e *Event) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

// Status is the payload of a response.status event.
type Status struct {
	Message string `json:"message"`

	// Status is a machine-readable status identifier such as
	// "reevaluating_plan".
	Status string `json:"status"`
}

// Reevaluating reports whether this status announces a plan re-evaluation.
func (s *Status) Reevaluating() bool {
	return s.Status == "reevaluating_plan"
}

// TextDelta is the payload of a response.text.delta event.
type TextDelta struct {
	ContentIndex int    `json:"content_index"`
	Text         string `json:"text"`
}

// Text is the payload of a response.text event.
type Text struct {
	ContentIndex int    `json:"content_index"`
	Text         string `json:"text"`
}

// Annotation is the payload of a response.text.annotation event.
type Annotation struct {
	ContentIndex    int            `json:"content_index"`
	AnnotationIndex int            `json:"annotation_index"`
	Annotation      AnnotationData `json:"annotation"`
}

// AnnotationData describes a single citation annotation.
type AnnotationData struct {
	// SearchResultID is the cs_-prefixed identifier matched against
	// <cite> markers in answer text.
	SearchResultID string `json:"search_result_id"`

	DocTitle string `json:"doc_title"`
	DocID    string `json:"doc_id"`
	Text     string `json:"text"`
	Type     string `json:"type"`
}

// Valid reports whether the annotation carries enough data to number
// and display as a citation.
func (a *AnnotationData) Valid() bool {
	return a.SearchResultID != "" && a.DocTitle != ""
}

// ThinkingDelta is the payload of a response.thinking.delta event.
type ThinkingDelta struct {
	ContentIndex int    `json:"content_index"`
	Text         string `json:"text"`
}

// Thinking is the payload of a response.thinking event.
type Thinking struct {
	ContentIndex int    `json:"content_index"`
	Text         string `json:"text"`
}

// ToolUse is the payload of a response.tool_use event.
type ToolUse struct {
	ContentIndex int            `json:"content_index"`
	ToolUseID    string         `json:"tool_use_id"`
	Name         string         `json:"name"`
	Input        map[string]any `json:"input"`
}

// ToolResultStatus is the payload of a response.tool_result.status event.
type ToolResultStatus struct {
	ContentIndex int    `json:"content_index"`
	ToolType     string `json:"tool_type"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// ToolResultDelta is the payload of the incremental tool result events
// (analyst commentary and SQL explanations).
type ToolResultDelta struct {
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

// Table is the payload of a response.table event.
type Table struct {
	ContentIndex int       `json:"content_index"`
	ResultSet    ResultSet `json:"result_set"`
}

// ResultSet is a structured query result with column metadata.
type ResultSet struct {
	Data     [][]any           `json:"data"`
	Metadata ResultSetMetadata `json:"resultSetMetaData"`
}

// ResultSetMetadata describes the columns of a ResultSet.
// Field names follow the Snowflake SQL API.
type ResultSetMetadata struct {
	RowType []ColumnType `json:"rowType"`
}

// ColumnType describes one result set column.
type ColumnType struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Columns returns the column names in declaration order.
func (r *ResultSet) Columns() []string {
	cols := make([]string, 0, len(r.Metadata.RowType))
	for _, c := range r.Metadata.RowType {
		cols = append(cols, c.Name)
	}
	return cols
}

// Empty reports whether the result set has no rows and no columns.
func (r *ResultSet) Empty() bool {
	return len(r.Data) == 0 && len(r.Metadata.RowType) == 0
}

// Chart is the payload of a response.chart event.
type Chart struct {
	ContentIndex int    `json:"content_index"`
	ChartSpec    string `json:"chart_spec"`
}

// Spec returns the effective Vega-Lite specification. Some responses wrap
// the spec in a {"charts": [...]} envelope; the first entry is unwrapped,
// parsing it from a string when needed.
func (c *Chart) Spec() (map[string]any, error) {
	var spec map[string]any
	if err := json.Unmarshal([]byte(c.ChartSpec), &spec); err != nil {
		return nil, err
	}

	raw, ok := spec["charts"]
	if !ok {
		return spec, nil
	}

	arr, ok := raw.([]any)
	if !ok || len(arr) == 0 {
		return spec, nil
	}

	switch first := arr[0].(type) {
	case string:
		var inner map[string]any
		if err := json.Unmarshal([]byte(first), &inner); err != nil {
			return nil, err
		}
		return inner, nil
	case map[string]any:
		return first, nil
	default:
		return spec, nil
	}
}

// Error is the payload of error and response.error events.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
