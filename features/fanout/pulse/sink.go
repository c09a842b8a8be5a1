// Package pulse mirrors live A2UI session events onto goa.design/pulse
// streams so sibling processes — dashboards, recorders, secondary renderers —
// can observe an exchange as it happens. It follows the layering used by
// Pulse deployments: callers build a Redis client, pass it to the Pulse
// client, and hand the resulting sink to the session via the Hooks adapter.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jarz-ai/a2ui-go/features/fanout/pulse/clients/pulse"
)

// EventType identifies one fan-out event kind.
type EventType string

// Fan-out event types. They mirror the wire events a consumer would have
// seen on the stream itself, plus a terminal marker.
const (
	EventText      EventType = "text"
	EventToolStart EventType = "tool_start"
	EventToolEnd   EventType = "tool_end"
	EventA2UI      EventType = "a2ui"
	EventTerminal  EventType = "terminal"
)

type (
	// Event is one session occurrence to publish.
	Event struct {
		// Type is the event kind.
		Type EventType
		// SessionID names the conversation; it selects the target stream.
		SessionID string
		// ExchangeID distinguishes exchanges within the session.
		ExchangeID string
		// Payload is the event body, marshaled as the envelope's payload.
		Payload any
	}

	// Envelope is the wire form published to Pulse. Subscribers decode it
	// back; a2ui payloads hold the raw control message, refoldable through
	// the state reducer.
	Envelope struct {
		Type       string          `json:"type"`
		SessionID  string          `json:"session_id"`
		ExchangeID string          `json:"exchange_id,omitempty"`
		Timestamp  time.Time       `json:"ts"`
		Payload    json.RawMessage `json:"payload,omitempty"`
	}

	// Options configures the sink.
	Options struct {
		// Client is the Pulse client used to publish events. Required.
		Client pulse.Client
		// StreamID derives the target Pulse stream from an event. Defaults
		// to "a2ui/<SessionID>".
		StreamID func(Event) (string, error)
	}

	// Sink publishes session events into Pulse streams. Safe for concurrent
	// Send calls.
	Sink struct {
		client   pulse.Client
		streamID func(Event) (string, error)
	}
)

// NewSink constructs a Pulse-backed session sink.
func NewSink(opts Options) (*Sink, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	streamID := opts.StreamID
	if streamID == nil {
		streamID = defaultStreamID
	}
	return &Sink{client: opts.Client, streamID: streamID}, nil
}

// Send publishes one event to the session's stream.
func (s *Sink) Send(ctx context.Context, event Event) error {
	streamID, err := s.streamID(event)
	if err != nil {
		return err
	}
	handle, err := s.client.Stream(streamID)
	if err != nil {
		return err
	}
	var raw json.RawMessage
	if event.Payload != nil {
		if raw, err = json.Marshal(event.Payload); err != nil {
			return fmt.Errorf("marshal fanout payload: %w", err)
		}
	}
	env := Envelope{
		Type:       string(event.Type),
		SessionID:  event.SessionID,
		ExchangeID: event.ExchangeID,
		Timestamp:  time.Now().UTC(),
		Payload:    raw,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal fanout envelope: %w", err)
	}
	if _, err := handle.Add(ctx, env.Type, payload); err != nil {
		return err
	}
	return nil
}

// Close releases resources owned by the sink's client. The Redis connection
// lifecycle belongs to the caller.
func (s *Sink) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func defaultStreamID(event Event) (string, error) {
	if event.SessionID == "" {
		return "", errors.New("fanout event missing session id")
	}
	return fmt.Sprintf("a2ui/%s", event.SessionID), nil
}
