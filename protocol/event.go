// Package protocol defines the typed model of the A2UI event stream: the
// auxiliary stream events (text tokens, tool activity, status, errors,
// completion, the out-of-band context switch) and the three control messages
// that build the surface (surfaceUpdate, dataModelUpdate, beginRendering),
// together with the component catalog and bound-value descriptors their
// payloads carry. Shapes follow A2UI v0.8 as produced by the JARZ backend.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EventName tags one server-sent frame.
type EventName string

// Stream event names recognized on the wire.
const (
	// EventText carries one incremental assistant text token.
	EventText EventName = "text"
	// EventToolStart announces a tool invocation.
	EventToolStart EventName = "tool_start"
	// EventToolEnd reports a finished tool invocation.
	EventToolEnd EventName = "tool_end"
	// EventA2UI carries one control message.
	EventA2UI EventName = "a2ui"
	// EventError carries a user-visible error message from the backend.
	EventError EventName = "error"
	// EventComplete terminates the exchange.
	EventComplete EventName = "complete"
	// EventStatus carries advisory agent progress.
	EventStatus EventName = "status"
	// EventSwitchContext asks the consumer to change UI context out of
	// band. It never contributes to the surface snapshot.
	EventSwitchContext EventName = "switch_context"
)

type (
	// Event is one decoded stream event. Name is always set; exactly one
	// payload field is non-nil for recognized names, none for unrecognized
	// ones.
	Event struct {
		Name          EventName
		Text          *TextPayload
		ToolStart     *ToolStartPayload
		ToolEnd       *ToolEndPayload
		A2UI          *Message
		Error         *ErrorPayload
		Complete      *CompletePayload
		Status        *StatusPayload
		ContextSwitch *ContextSwitchPayload
	}

	// TextPayload is one streamed text token.
	TextPayload struct {
		Content string `json:"content"`
	}

	// ToolStartPayload names the tool that began executing.
	ToolStartPayload struct {
		Tool      string         `json:"tool"`
		Arguments map[string]any `json:"arguments,omitempty"`
	}

	// ToolEndPayload reports the tool that finished. Success is a pointer
	// because older backends omit it.
	ToolEndPayload struct {
		Tool    string `json:"tool"`
		Success *bool  `json:"success,omitempty"`
	}

	// ErrorPayload carries a human-readable backend error.
	ErrorPayload struct {
		Error string `json:"error"`
	}

	// CompletePayload terminates an exchange. SessionID, when present, is
	// echoed on the next request so server-side context persists.
	CompletePayload struct {
		Status    string `json:"status"`
		SessionID string `json:"sessionId,omitempty"`
	}

	// StatusPayload is advisory agent-graph progress.
	StatusPayload struct {
		Node   string `json:"node,omitempty"`
		Status string `json:"status,omitempty"`
	}

	// ContextSwitchPayload hints where the UI should navigate. Both fields
	// are optional.
	ContextSwitchPayload struct {
		District string `json:"district,omitempty"`
		Postcode string `json:"postcode,omitempty"`
	}
)

// ParseEvent decodes one frame's payload according to its event name. An
// unrecognized name yields an Event with only Name set and no error; a
// recognized name with malformed payload returns an error and the frame
// should be dropped.
func ParseEvent(name string, data []byte) (Event, error) {
	ev := Event{Name: EventName(name)}
	var err error
	switch ev.Name {
	case EventText:
		ev.Text, err = parsePayload[TextPayload](data)
	case EventToolStart:
		ev.ToolStart, err = parsePayload[ToolStartPayload](data)
	case EventToolEnd:
		ev.ToolEnd, err = parsePayload[ToolEndPayload](data)
	case EventA2UI:
		ev.A2UI, err = parsePayload[Message](data)
	case EventError:
		ev.Error, err = parsePayload[ErrorPayload](data)
	case EventComplete:
		ev.Complete, err = parsePayload[CompletePayload](data)
	case EventStatus:
		ev.Status, err = parsePayload[StatusPayload](data)
	case EventSwitchContext:
		ev.ContextSwitch, err = parsePayload[ContextSwitchPayload](data)
	}
	if err != nil {
		return Event{Name: ev.Name}, fmt.Errorf("parse %s event: %w", name, err)
	}
	return ev, nil
}

func parsePayload[T any](data []byte) (*T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
