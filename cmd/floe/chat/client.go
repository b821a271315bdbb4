package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/render"
	"github.com/frostpeakco/floe/pkg/thread"
)

// renderOp is one server-sent render operation from a streaming turn.
// It mirrors the wire form the floe server emits.
type renderOp struct {
	Op        string              `json:"op"`
	Key       *render.ContentKey  `json:"key,omitempty"`
	Keys      []render.ContentKey `json:"keys,omitempty"`
	Text      string              `json:"text,omitempty"`
	Name      string              `json:"name,omitempty"`
	Status    string              `json:"status,omitempty"`
	SQL       string              `json:"sql,omitempty"`
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
	Table     *thread.Table       `json:"table,omitempty"`
	Chart     map[string]any      `json:"chart,omitempty"`
	Citations []thread.Citation   `json:"citations,omitempty"`
}

// serverClient talks to a running floe server's REST API.
type serverClient struct {
	target string
	http   *http.Client
	logger *zap.Logger
}

func newServerClient(target string, logger *zap.Logger) *serverClient {
	return &serverClient{
		target: strings.TrimRight(target, "/"),
		// Turns stream for as long as the orchestration takes; no
		// overall timeout.
		http:   &http.Client{},
		logger: logger,
	}
}

// createThread creates a new conversation thread through the server.
func (c *serverClient) createThread() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+"/api/threads", nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reaching floe server at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("creating thread: %s", readServerError(resp))
	}

	var body struct {
		ThreadID int64 `json:"thread_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding thread response: %w", err)
	}

	return body.ThreadID, nil
}

// runTurn sends a message and feeds the streamed render operations to
// the renderer until the turn completes.
func (c *serverClient) runTurn(threadID int64, message, agent, model string, renderer *turnRenderer) error {
	payload, err := json.Marshal(map[string]string{
		"message": message,
		"agent":   agent,
		"model":   model,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/threads/%d/messages", c.target, threadID)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending turn request",
		zap.String("target", c.target),
		zap.Int64("thread_id", threadID),
		zap.String("agent", agent),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reaching floe server at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("starting turn: %s", readServerError(resp))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var op renderOp
		if err := json.Unmarshal([]byte(line[len("data: "):]), &op); err != nil {
			c.logger.Debug("failed to parse render op",
				zap.Error(err),
				zap.String("line", line),
			)
			continue
		}

		renderer.apply(op)
	}

	if err := scanner.Err(); err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("reading turn stream: %w", err)
	}

	renderer.finish()
	return nil
}

// readServerError extracts the error message from a failed API response.
func readServerError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Sprintf("%s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Sprintf("server returned status %d", resp.StatusCode)
}
