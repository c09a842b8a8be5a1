// Package session drives live A2UI exchanges: it issues the streaming chat
// request, reads the event stream chunk by chunk, folds control messages into
// the surface snapshot through the state reducer, and exposes the evolving
// exchange — snapshot, pending assistant text, current tool — to readers and
// hook observers. A controller owns at most one in-flight exchange; starting
// a new one cancels and supersedes the previous one before the new request is
// issued, so a stale stream can never write into fresh state.
package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jarz-ai/a2ui-go/protocol"
	"github.com/jarz-ai/a2ui-go/state"
)

// Phase is the controller's position in the exchange state machine.
type Phase string

// Exchange phases. Sending covers the time between issuing the request and
// receiving the response headers; Streaming covers the read loop. Completed,
// Failed and Aborted are terminal until the next Send.
const (
	PhaseIdle      Phase = "idle"
	PhaseSending   Phase = "sending"
	PhaseStreaming Phase = "streaming"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseAborted   Phase = "aborted"
)

// Terminal reports whether the phase ends an exchange.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseAborted
}

// Doer issues HTTP requests. *http.Client satisfies it; middleware such as
// RateLimit wraps one Doer in another.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Hooks are the controller's observer callbacks. All fields are optional.
// Hooks are invoked from the exchange's reader goroutine, one at a time, in
// stream order; a slow hook stalls the read loop, so hooks that do real work
// should hand off to their own goroutine.
type Hooks struct {
	// OnSnapshot receives the snapshot produced by each applied control
	// message. The snapshot is an immutable value and may be retained.
	OnSnapshot func(snap state.Snapshot)

	// OnMessage receives each applied control message together with its raw
	// wire payload, before OnSnapshot fires for it. Fan-out sinks forward
	// the raw form so consumers can refold it themselves.
	OnMessage func(msg protocol.Message, raw json.RawMessage)

	// OnText receives each streamed text token together with the full
	// accumulated buffer so far.
	OnText func(delta, full string)

	// OnTool reports tool activity: running is true on tool_start and false
	// on tool_end.
	OnTool func(tool string, running bool)

	// OnStatus receives advisory agent progress events.
	OnStatus func(status protocol.StatusPayload)

	// OnContextSwitch delivers the out-of-band context switch request. It is
	// the only way this event reaches the caller; it never touches the
	// snapshot.
	OnContextSwitch func(req protocol.ContextSwitchPayload)

	// OnError receives user-visible error messages sent by the backend. The
	// exchange keeps streaming; already rendered UI stays intact.
	OnError func(message string)

	// OnFinish fires exactly once per exchange with the terminal phase. err
	// is non-nil only for PhaseFailed; aborts are not errors.
	OnFinish func(phase Phase, err error)
}

// ErrTruncatedStream reports a stream that ended mid-frame: the connection
// closed before the frame's terminating blank line arrived.
var ErrTruncatedStream = errors.New("stream ended mid-frame")
