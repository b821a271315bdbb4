package events

import (
	"encoding/json"
	"fmt"

	"github.com/frostpeakco/floe/pkg/sse"
)

// Parse converts a raw SSE event into a typed Event. Unknown event types
// are returned as KindUnknown with the raw payload preserved, never as an
// error, so stream processing is resilient to new event kinds.
func Parse(raw *sse.Event) (*Event, error) {
	data := json.RawMessage(raw.Data)
	ev := &Event{
		Kind:    Kind(raw.Type),
		SSEType: raw.Type,
		Raw:     data,
	}

	var err error
	switch ev.Kind {
	case KindResponse, KindDone, KindExecutionTrace:
		// Payload is not consumed beyond the raw capture.

	case KindStatus:
		ev.Status = &Status{}
		err = unmarshal(data, ev.Status)

	case KindTextDelta:
		ev.TextDelta = &TextDelta{}
		err = unmarshal(data, ev.TextDelta)

	case KindText:
		ev.Text = &Text{}
		err = unmarshal(data, ev.Text)

	case KindTextAnnotation:
		ev.Annotation = &Annotation{}
		err = unmarshal(data, ev.Annotation)

	case KindThinkingDelta:
		ev.ThinkingDelta = &ThinkingDelta{}
		err = unmarshal(data, ev.ThinkingDelta)

	case KindThinking:
		ev.Thinking = &Thinking{}
		err = unmarshal(data, ev.Thinking)

	case KindToolUse:
		ev.ToolUse = &ToolUse{}
		err = unmarshal(data, ev.ToolUse)

	case KindToolResult:
		ev.ToolResult = &ToolResult{}
		err = unmarshal(data, ev.ToolResult)

	case KindToolResultStatus:
		ev.ToolResultStatus = &ToolResultStatus{}
		err = unmarshal(data, ev.ToolResultStatus)

	case KindAnalystDelta:
		ev.AnalystDelta = &ToolResultDelta{}
		err = unmarshal(data, ev.AnalystDelta)

	case KindSQLExplanationDelta:
		ev.SQLExplanationDelta = &ToolResultDelta{}
		err = unmarshal(data, ev.SQLExplanationDelta)

	case KindTable:
		ev.Table = &Table{}
		err = unmarshal(data, ev.Table)

	case KindChart:
		ev.Chart = &Chart{}
		err = unmarshal(data, ev.Chart)

	case KindMetadata:
		ev.Metadata = &Metadata{}
		err = unmarshal(data, ev.Metadata)

	case KindResponseError, KindError:
		ev.Error = &Error{}
		err = unmarshal(data, ev.Error)

	default:
		ev.Kind = KindUnknown
	}

	if err != nil {
		return nil, fmt.Errorf("parsing %s event: %w", raw.Type, err)
	}

	return ev, nil
}

// unmarshal decodes the payload, treating an empty body as the zero value
// rather than an error. Some events arrive with no data at all.
func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
