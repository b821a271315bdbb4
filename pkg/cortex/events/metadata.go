package events

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Metadata is the payload of a metadata event. It identifies the
// assistant message created for the turn, which becomes the parent of
// the next user message in the thread.
type Metadata struct {
	MessageID int64
	ParentID  int64
	ThreadID  string
}

// UnmarshalJSON handles the nested "metadata" envelope and accepts ids
// encoded as either JSON numbers or strings.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var aux struct {
		Metadata struct {
			MessageID json.RawMessage `json:"message_id"`
			ParentID  json.RawMessage `json:"parent_id"`
			ThreadID  json.RawMessage `json:"thread_id"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.MessageID = parseID(aux.Metadata.MessageID)
	m.ParentID = parseID(aux.Metadata.ParentID)
	m.ThreadID = parseIDString(aux.Metadata.ThreadID)

	return nil
}

// parseID parses a raw JSON value as an int64 id, tolerating both
// number and string encodings. Returns 0 when absent or unparseable.
func parseID(raw json.RawMessage) int64 {
	s := parseIDString(raw)
	if s == "" {
		return 0
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// parseIDString returns the raw JSON value as a plain string.
func parseIDString(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return strings.TrimSpace(string(raw))
}
