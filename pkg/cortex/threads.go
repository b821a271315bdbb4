package cortex

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// ThreadMetadata describes a conversation thread.
type ThreadMetadata struct {
	ThreadID          int64  `json:"thread_id"`
	ThreadName        string `json:"thread_name"`
	OriginApplication string `json:"origin_application"`
	CreatedOn         int64  `json:"created_on"`
	UpdatedOn         int64  `json:"updated_on"`
}

// ThreadMessage is one message stored in a thread. The API returns
// messages in newest-first order.
type ThreadMessage struct {
	MessageID      int64  `json:"message_id"`
	ParentID       int64  `json:"parent_id"`
	CreatedOn      int64  `json:"created_on"`
	Role           string `json:"role"`
	MessagePayload string `json:"message_payload"`
	RequestID      string `json:"request_id"`
}

// Thread is a thread with its message history.
type Thread struct {
	Metadata ThreadMetadata  `json:"metadata"`
	Messages []ThreadMessage `json:"messages"`
}

// ParentMessageID returns the message id the next user message should
// reference: the most recent assistant message, or 0 when the thread has
// no assistant messages yet.
func (t *Thread) ParentMessageID() int64 {
	for _, m := range t.Messages {
		if m.Role == "assistant" {
			return m.MessageID
		}
	}
	return 0
}

// CreateThread creates a new conversation thread. The origin application
// tag is limited to 16 bytes by the API.
func (c *Client) CreateThread(ctx context.Context, originApplication string) (int64, error) {
	payload := map[string]string{}
	if originApplication != "" {
		payload["origin_application"] = originApplication
	}

	var resp struct {
		ThreadID int64 `json:"thread_id"`
	}
	if err := c.doJSON(ctx, "POST", "/cortex/threads", payload, &resp); err != nil {
		return 0, fmt.Errorf("creating thread: %w", err)
	}

	if resp.ThreadID == 0 {
		return 0, fmt.Errorf("creating thread: no thread_id in response")
	}

	c.logger.Debug("created thread", zap.Int64("thread_id", resp.ThreadID))

	return resp.ThreadID, nil
}

// GetThread fetches a thread and up to pageSize of its most recent
// messages. The API caps pageSize at 100.
func (c *Client) GetThread(ctx context.Context, threadID int64, pageSize int) (*Thread, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	path := fmt.Sprintf("/cortex/threads/%d?page_size=%d", threadID, pageSize)

	thread := &Thread{}
	if err := c.doJSON(ctx, "GET", path, nil, thread); err != nil {
		return nil, fmt.Errorf("fetching thread %d: %w", threadID, err)
	}

	return thread, nil
}

// ListThreads lists the caller's threads, optionally filtered by the
// origin application tag.
func (c *Client) ListThreads(ctx context.Context, originApplication string) ([]ThreadMetadata, error) {
	path := "/cortex/threads"
	if originApplication != "" {
		path += "?origin_application=" + url.QueryEscape(originApplication)
	}

	var threads []ThreadMetadata
	if err := c.doJSON(ctx, "GET", path, nil, &threads); err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}

	return threads, nil
}

// RenameThread updates a thread's display name.
func (c *Client) RenameThread(ctx context.Context, threadID int64, name string) error {
	path := fmt.Sprintf("/cortex/threads/%d", threadID)
	payload := map[string]string{"thread_name": name}

	if err := c.doJSON(ctx, "POST", path, payload, nil); err != nil {
		return fmt.Errorf("renaming thread %d: %w", threadID, err)
	}

	return nil
}

// DeleteThread deletes a thread and all its messages.
func (c *Client) DeleteThread(ctx context.Context, threadID int64) error {
	path := fmt.Sprintf("/cortex/threads/%d", threadID)

	if err := c.doJSON(ctx, "DELETE", path, nil, nil); err != nil {
		return fmt.Errorf("deleting thread %d: %w", threadID, err)
	}

	c.logger.Debug("deleted thread", zap.Int64("thread_id", threadID))

	return nil
}
