// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// reader for consuming agent run streams. The TeeReader parses SSE events
// from the upstream response body while simultaneously forwarding the raw
// bytes verbatim to a destination writer, so raw streams can be captured
// for debugging while the parsed events drive reassembly.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
