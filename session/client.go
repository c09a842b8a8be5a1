package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jarz-ai/a2ui-go/history"
	"github.com/jarz-ai/a2ui-go/telemetry"
)

type (
	// Client calls the backend's buffered chat endpoint: one request, one
	// JSON response carrying the final text and every control message the
	// turn produced. It serves callers that do not need token streaming;
	// the returned payloads fold into a snapshot through the replay package.
	Client struct {
		endpoint string
		doer     Doer
		log      telemetry.Logger
	}

	// ClientOptions configures a Client.
	ClientOptions struct {
		// Endpoint is the buffered chat URL, e.g. https://host/api/chat.
		// Required.
		Endpoint string
		// Doer is the HTTP transport. Defaults to http.DefaultClient.
		Doer Doer
		// Logger defaults to a no-op logger.
		Logger telemetry.Logger
	}

	// QueryResult is one buffered exchange's outcome.
	QueryResult struct {
		// Response is the assistant's final text.
		Response string
		// A2UI holds the turn's raw control payloads in production order.
		A2UI []json.RawMessage
		// SessionID is the server session identifier when the backend
		// assigns one.
		SessionID string
	}
)

// NewClient constructs a buffered chat client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	doer := opts.Doer
	if doer == nil {
		doer = http.DefaultClient
	}
	log := opts.Logger
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Client{endpoint: opts.Endpoint, doer: doer, log: log}, nil
}

// Query sends one buffered exchange. turns is the prior conversation
// history, current turn excluded; sessionID may be empty on the first
// exchange.
func (c *Client) Query(ctx context.Context, message string, turns []history.Turn, sessionID string) (*QueryResult, error) {
	if message == "" {
		return nil, errors.New("message is required")
	}
	payload, err := json.Marshal(requestBody{
		Message:   message,
		History:   requestHistory(turns),
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("issue chat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("chat request returned status %d", resp.StatusCode)
	}

	var body struct {
		Success   bool              `json:"success"`
		Response  string            `json:"response"`
		A2UI      []json.RawMessage `json:"a2ui_messages"`
		SessionID string            `json:"session_id,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if !body.Success {
		return nil, errors.New("chat request unsuccessful")
	}
	c.log.Debug(ctx, "buffered exchange done", "a2ui_messages", len(body.A2UI))
	return &QueryResult{
		Response:  body.Response,
		A2UI:      body.A2UI,
		SessionID: body.SessionID,
	}, nil
}
