// Package history exposes conversation storage contracts and helpers for
// persisting and retrieving chat turns. History stores record the
// chronological sequence of user, assistant and tool turns of a session,
// together with the A2UI control messages each assistant turn streamed, so
// surfaces can be rebuilt after a reload and prior turns can be echoed to
// the server on the next exchange.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type (
	// Store persists session history. Implementations must be thread-safe
	// and handle concurrent reads and writes to the same session. Production
	// deployments typically use a durable backend; see features/history for
	// MongoDB and Redis implementations.
	Store interface {
		// Append appends turns to the session's history in order. Returns an
		// error only for storage failures; appending zero turns is a no-op.
		Append(ctx context.Context, sessionID string, turns ...Turn) error

		// List retrieves the session's turns ordered by CreatedAt ascending.
		// Returns an empty slice (not an error) if the session is unknown,
		// allowing callers to treat absence as empty history.
		List(ctx context.Context, sessionID string) ([]Turn, error)

		// Clear removes all turns of the session. Clearing an unknown
		// session is a no-op.
		Clear(ctx context.Context, sessionID string) error
	}

	// Turn is one persisted conversation entry. Assistant turns carry the
	// raw A2UI control messages streamed while the turn was produced; tool
	// turns carry the call linkage fields the server needs to match results
	// to requests.
	Turn struct {
		// ID uniquely identifies the turn.
		ID string `json:"id"`
		// Role is who produced the turn: user, assistant, tool or system.
		Role Role `json:"role"`
		// Content is the turn's text. May be empty for assistant turns that
		// only invoked tools.
		Content string `json:"content"`
		// CreatedAt marks when the turn was recorded, used for ordering.
		CreatedAt time.Time `json:"created_at"`
		// A2UI holds the raw control messages streamed during this turn, in
		// arrival order. Replay folds these to rebuild the surface.
		A2UI []json.RawMessage `json:"a2ui,omitempty"`
		// ToolCalls carries the tool invocations an assistant turn
		// requested, echoed back to the server on later exchanges.
		ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		// ToolCallID links a tool turn to the invocation it answers.
		ToolCallID string `json:"tool_call_id,omitempty"`
		// Name is the tool name on tool turns.
		Name string `json:"name,omitempty"`
	}

	// ToolCall is a tool invocation recorded on an assistant turn.
	ToolCall struct {
		// ID identifies the call within the conversation.
		ID string `json:"id"`
		// Type is the invocation kind, currently always "function".
		Type string `json:"type"`
		// Function names the tool and its serialized arguments.
		Function FunctionCall `json:"function"`
	}

	// FunctionCall names a tool and carries its arguments as the JSON string
	// the server produced.
	FunctionCall struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	}
)

// Role identifies who produced a turn.
type Role string

const (
	// RoleUser marks an end-user turn.
	RoleUser Role = "user"

	// RoleAssistant marks a server response turn.
	RoleAssistant Role = "assistant"

	// RoleTool marks a tool result turn.
	RoleTool Role = "tool"

	// RoleSystem marks an injected system turn.
	RoleSystem Role = "system"
)

// NewUserTurn returns a user turn with a fresh id and the current time.
func NewUserTurn(content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewAssistantTurn returns an assistant turn with a fresh id, the current
// time and the A2UI messages streamed while producing it.
func NewAssistantTurn(content string, a2ui []json.RawMessage) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		A2UI:      a2ui,
	}
}
