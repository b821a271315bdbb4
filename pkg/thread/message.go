// Package thread models locally cached conversation history. The vendor
// thread API is the source of truth for message ordering; this package
// caches fully reassembled turns so past conversations render without
// replaying streams.
package thread

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentType discriminates the kinds of content a message can carry.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentTable ContentType = "table"
	ContentChart ContentType = "chart"
)

// ContentItem is one block of message content. Type determines which of
// the payload fields is set.
type ContentItem struct {
	Type ContentType `json:"type"`

	// Text is the rendered markdown for text blocks, with citation
	// markers already numbered.
	Text string `json:"text,omitempty"`

	Table *Table `json:"table,omitempty"`
	Chart *Chart `json:"chart,omitempty"`
}

// Table is a structured result set attached to a message.
type Table struct {
	Title   string   `json:"title,omitempty"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Chart is a Vega-Lite specification attached to a message.
type Chart struct {
	Spec map[string]any `json:"spec"`
}

// Citation is one numbered source reference for a message.
type Citation struct {
	// Number is the display number assigned in first-seen order.
	Number int `json:"number"`

	// SearchResultID is the cs_-prefixed source identifier.
	SearchResultID string `json:"search_result_id"`

	DocID    string `json:"doc_id,omitempty"`
	DocTitle string `json:"doc_title"`
	Text     string `json:"text,omitempty"`
}

// Message is one cached turn in a conversation thread.
type Message struct {
	// ID is the cache key. User messages get a locally generated id;
	// assistant messages use the vendor message id when available.
	ID string `json:"id"`

	// ThreadID is the vendor thread this message belongs to.
	ThreadID int64 `json:"thread_id"`

	// VendorMessageID is the message id assigned by the thread API,
	// 0 when unknown.
	VendorMessageID int64 `json:"vendor_message_id,omitempty"`

	// RequestID scopes the message to the agent run that produced it.
	RequestID string `json:"request_id,omitempty"`

	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	Content   []ContentItem `json:"content"`
	Citations []Citation    `json:"citations,omitempty"`
}

// Text returns the concatenated text blocks of the message.
func (m *Message) Text() string {
	var out string
	for _, c := range m.Content {
		if c.Type == ContentText {
			out += c.Text
		}
	}
	return out
}
