package events

import (
	"encoding/json"
	"strings"
)

// ToolResult is the payload of a response.tool_result event.
type ToolResult struct {
	ContentIndex int
	ToolUseID    string
	Name         string
	Type         string
	Status       string
	Content      []ToolResultContent
}

// ToolResultContent is one entry in a tool result's content array.
// Search tools emit citation entries; SQL tools emit json entries
// carrying text, sql, and embedded result sets.
type ToolResultContent struct {
	Type string         `json:"type"`
	Text string         `json:"text"`
	JSON map[string]any `json:"json"`

	// Citation fields, present on search result entries.
	ID       string `json:"id"`
	DocID    string `json:"doc_id"`
	DocTitle string `json:"doc_title"`
	SourceID int    `json:"source_id"`
}

// UnmarshalJSON accepts both layouts the API emits: content at the top
// level, or nested under a "data" envelope.
func (t *ToolResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		ContentIndex int                 `json:"content_index"`
		ToolUseID    string              `json:"tool_use_id"`
		Name         string              `json:"name"`
		Type         string              `json:"type"`
		Status       string              `json:"status"`
		Content      []ToolResultContent `json:"content"`
		Data         struct {
			Content []ToolResultContent `json:"content"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.ContentIndex = aux.ContentIndex
	t.ToolUseID = aux.ToolUseID
	t.Name = aux.Name
	t.Type = aux.Type
	t.Status = aux.Status

	t.Content = aux.Content
	if len(t.Content) == 0 {
		t.Content = aux.Data.Content
	}

	return nil
}

// Failed reports whether the tool execution errored.
func (t *ToolResult) Failed() bool {
	return strings.EqualFold(t.Status, "error")
}

// Citations returns the search citations embedded in the tool result.
// Entries missing a cs_-prefixed id, doc id, or title are skipped.
func (t *ToolResult) Citations() []ToolResultContent {
	var out []ToolResultContent
	for _, c := range t.Content {
		if c.DocID != "" && c.DocTitle != "" && strings.HasPrefix(c.ID, "cs_") {
			out = append(out, c)
		}
	}
	return out
}

// TextContent returns the display text from the first json content entry, if any.
func (t *ToolResult) TextContent() string {
	for _, c := range t.Content {
		if c.Type == "json" && c.JSON != nil {
			if s, ok := c.JSON["text"].(string); ok {
				return s
			}
		}
	}
	return ""
}

// ResultSet returns the tabular payload embedded in a json content
// entry, or nil when the tool result carries none. SQL tools inline
// their query results next to the sql text, in the same result-set
// shape the table event uses.
func (t *ToolResult) ResultSet() *ResultSet {
	for _, c := range t.Content {
		if c.Type != "json" || c.JSON == nil {
			continue
		}
		if _, ok := c.JSON["data"]; !ok {
			continue
		}
		if _, ok := c.JSON["resultSetMetaData"]; !ok {
			continue
		}
		raw, err := json.Marshal(c.JSON)
		if err != nil {
			continue
		}
		var rs ResultSet
		if err := json.Unmarshal(raw, &rs); err != nil {
			continue
		}
		if rs.Empty() {
			continue
		}
		return &rs
	}
	return nil
}

// SQL returns the generated SQL from the first json content entry, if any.
func (t *ToolResult) SQL() string {
	for _, c := range t.Content {
		if c.Type == "json" && c.JSON != nil {
			if s, ok := c.JSON["sql"].(string); ok {
				return s
			}
		}
	}
	return ""
}
