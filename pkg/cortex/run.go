package cortex

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/cortex/events"
	"github.com/frostpeakco/floe/pkg/sse"
)

// RunRequest describes one agent run turn.
type RunRequest struct {
	Database string
	Schema   string
	Agent    string

	// Model is the orchestration model. Required; callers resolve it from
	// the agent spec or configuration.
	Model string

	// ThreadID and ParentMessageID attach the turn to a conversation
	// thread. ParentMessageID is 0 for the first message in a thread.
	ThreadID        int64
	ParentMessageID int64

	// Message is the user's prompt text.
	Message string

	// RawCapture, when set, receives a verbatim copy of the SSE stream.
	RawCapture io.Writer
}

// RunStream is a live agent run. Next yields parsed events until the
// stream is exhausted; Close releases the underlying connection.
type RunStream struct {
	// RequestID is the server-assigned request identifier for this turn.
	// When the server omits the header a locally generated id is used so
	// content isolation still holds.
	RequestID string

	reader *sse.TeeReader
	body   io.ReadCloser
}

// Next returns the next parsed event, or nil when the stream ends.
func (s *RunStream) Next() (*events.Event, error) {
	raw, err := s.reader.Next()
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return events.Parse(raw)
}

// Close releases the underlying response body.
func (s *RunStream) Close() error {
	return s.body.Close()
}

// Run starts a streaming agent run and returns the live stream.
func (c *Client) Run(ctx context.Context, runReq RunRequest) (*RunStream, error) {
	path := fmt.Sprintf("/databases/%s/schemas/%s/agents/%s:run",
		url.PathEscape(runReq.Database), url.PathEscape(runReq.Schema), url.PathEscape(runReq.Agent))

	payload := map[string]any{
		"model":  runReq.Model,
		"models": map[string]string{"orchestration": runReq.Model},
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]string{
					{"type": "text", "text": runReq.Message},
				},
			},
		},
		"thread_id":         runReq.ThreadID,
		"parent_message_id": runReq.ParentMessageID,
	}

	req, err := c.newRequest(ctx, "POST", path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("starting agent run: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("starting agent run: %w", newAPIError(resp))
	}

	requestID := resp.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		c.logger.Debug("request id header missing, generated local id",
			zap.String("request_id", requestID))
	}

	c.logger.Info("agent run started",
		zap.String("agent", runReq.Agent),
		zap.Int64("thread_id", runReq.ThreadID),
		zap.Int64("parent_message_id", runReq.ParentMessageID),
		zap.String("request_id", requestID))

	dest := runReq.RawCapture
	if dest == nil {
		dest = io.Discard
	}

	return &RunStream{
		RequestID: requestID,
		reader:    sse.NewTeeReader(resp.Body, dest),
		body:      resp.Body,
	}, nil
}
