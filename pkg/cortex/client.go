// Package cortex implements a REST client for the Snowflake Cortex Agents
// API: agent discovery, conversation threads, and streaming agent runs.
package cortex

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/auth"
	"github.com/frostpeakco/floe/pkg/config"
)

const (
	// userAgent identifies this client on API calls.
	userAgent = "floe/1.0"

	// tokenTypeHeader carries the credential type alongside the bearer token.
	tokenTypeHeader = "X-Snowflake-Authorization-Token-Type"

	// requestIDHeader is the server-assigned request identifier returned on
	// agent runs.
	requestIDHeader = "X-Snowflake-Request-Id"
)

// Client talks to the Cortex Agents REST API for one Snowflake account.
type Client struct {
	baseURL    string
	tokens     auth.TokenSource
	httpClient *http.Client

	// streamClient has no overall timeout; agent runs stream for as long
	// as the orchestration takes.
	streamClient *http.Client

	logger *zap.Logger
}

// ClientConfig holds configuration for a Client.
type ClientConfig struct {
	// Account is the Snowflake account identifier (e.g. myorg-myacct).
	// Ignored when BaseURL is set.
	Account string

	// BaseURL overrides the account-derived API root. Used in tests.
	BaseURL string

	// Tokens resolves the bearer token for each request.
	Tokens auth.TokenSource

	// SSLVerify toggles TLS certificate verification. Defaults to true.
	SSLVerify *bool

	// Timeout applies to non-streaming requests. Defaults to 30s.
	Timeout time.Duration

	Logger *zap.Logger
}

// NewClient creates a Cortex API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Account == "" {
			return nil, fmt.Errorf("account is required")
		}
		baseURL = fmt.Sprintf("https://%s.snowflakecomputing.com/api/v2", cfg.Account)
	}

	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if cfg.SSLVerify != nil && !*cfg.SSLVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL: baseURL,
		tokens:  cfg.Tokens,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
		logger: logger,
	}, nil
}

// NewClientFromConfig builds a Client from the loaded floe configuration.
func NewClientFromConfig(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	return NewClient(ClientConfig{
		Account:   cfg.Snowflake.Account,
		Tokens:    auth.FromConfig(cfg),
		SSLVerify: cfg.Snowflake.SSLVerify,
		Logger:    logger,
	})
}

// newRequest builds an authenticated request with the standard headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+tok.Value)
	req.Header.Set(tokenTypeHeader, tok.Type)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return req, nil
}

// doJSON executes a request and decodes the JSON response into out.
// Pass a nil out to discard the body.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return newAPIError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// APIError is a non-2xx response from the Cortex API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cortex api: status %d: %s", e.StatusCode, e.Body)
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
}
