package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/jarz-ai/a2ui-go/history"
	"github.com/jarz-ai/a2ui-go/history/inmem"
	"github.com/jarz-ai/a2ui-go/protocol"
	"github.com/jarz-ai/a2ui-go/state"
	"github.com/jarz-ai/a2ui-go/telemetry"
	"github.com/jarz-ai/a2ui-go/wire"
)

// errExchangeDone signals that a complete event ended the exchange. It never
// escapes the controller.
var errExchangeDone = errors.New("exchange done")

type (
	// Controller runs streaming exchanges against one A2UI backend and owns
	// the resulting conversation state. All methods are safe for concurrent
	// use; state readers observe immutable values published under the
	// controller's mutex, and all mutation happens on the live exchange's
	// reader goroutine.
	Controller struct {
		endpoint  string
		doer      Doer
		store     history.Store
		validator *protocol.Validator
		hooks     Hooks
		log       telemetry.Logger
		metrics   telemetry.Metrics
		tracer    telemetry.Tracer

		// conversationID keys the controller's turns in the history store.
		// It is distinct from the server-assigned session id.
		conversationID string

		// sendMu serializes Send/Cancel/Reset so supersede semantics stay
		// well defined under concurrent callers.
		sendMu sync.Mutex

		mu          sync.Mutex
		phase       Phase
		snap        state.Snapshot
		pending     strings.Builder
		currentTool string
		sessionID   string
		terminalErr error
		generation  int
		cancel      context.CancelFunc
		done        chan struct{}
		userText    string
		a2uiLog     []json.RawMessage
	}

	options struct {
		doer      Doer
		store     history.Store
		validator *protocol.Validator
		hooks     Hooks
		log       telemetry.Logger
		metrics   telemetry.Metrics
		tracer    telemetry.Tracer
		sessionID string
	}

	// Option configures a Controller.
	Option func(*options)

	requestBody struct {
		Message   string        `json:"message"`
		History   []requestTurn `json:"history,omitempty"`
		SessionID string        `json:"session_id,omitempty"`
	}

	requestTurn struct {
		Role       string             `json:"role"`
		Content    string             `json:"content"`
		ToolCalls  []history.ToolCall `json:"tool_calls,omitempty"`
		ToolCallID string             `json:"tool_call_id,omitempty"`
		Name       string             `json:"name,omitempty"`
	}
)

// WithDoer sets the HTTP transport. Defaults to http.DefaultClient. Wrap it
// with RateLimit to bound exchange starts.
func WithDoer(d Doer) Option {
	return func(o *options) { o.doer = d }
}

// WithHistory sets the store that persists completed exchanges and supplies
// prior turns for the request history. Defaults to an in-memory store.
func WithHistory(s history.Store) Option {
	return func(o *options) { o.store = s }
}

// WithValidator enables strict mode: a2ui payloads failing schema validation
// are dropped and logged like decode errors.
func WithValidator(v *protocol.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithHooks sets the observer callbacks.
func WithHooks(h Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l telemetry.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the metrics sink. Defaults to no-op.
func WithMetrics(m telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer. Defaults to no-op.
func WithTracer(t telemetry.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithSessionID seeds the server session identifier, resuming a server-side
// conversation from a previous process.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// New constructs a Controller targeting the given streaming endpoint.
func New(endpoint string, opts ...Option) (*Controller, error) {
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	o := options{
		doer:    http.DefaultClient,
		log:     telemetry.NewNoopLogger(),
		metrics: telemetry.NewNoopMetrics(),
		tracer:  telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = inmem.New()
	}
	return &Controller{
		endpoint:       endpoint,
		doer:           o.doer,
		store:          o.store,
		validator:      o.validator,
		hooks:          o.hooks,
		log:            o.log,
		metrics:        o.metrics,
		tracer:         o.tracer,
		conversationID: uuid.NewString(),
		phase:          PhaseIdle,
		snap:           state.Empty(),
		sessionID:      o.sessionID,
	}, nil
}

// Send starts a new exchange with the given user message. Any in-flight
// exchange is cancelled and fully drained first, so its late frames cannot
// write into the new exchange's state. The data model is cleared while the
// component tree and readiness persist: stale UI stays visible during the
// fetch instead of flashing empty. Send returns once the exchange is issued;
// progress is observed through the hooks and the reader methods.
func (c *Controller) Send(ctx context.Context, message string) error {
	if message == "" {
		return errors.New("message is required")
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.waitInflight()

	turns, err := c.store.List(ctx, c.conversationID)
	if err != nil {
		return fmt.Errorf("load request history: %w", err)
	}

	exCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.phase = PhaseSending
	c.terminalErr = nil
	c.snap = state.ClearDataModel(c.snap)
	c.pending.Reset()
	c.currentTool = ""
	c.userText = message
	c.a2uiLog = nil
	c.cancel = cancel
	c.done = done
	body := requestBody{
		Message:   message,
		History:   requestHistory(turns),
		SessionID: c.sessionID,
	}
	c.mu.Unlock()

	go c.run(exCtx, cancel, gen, body, done)
	return nil
}

// Cancel aborts the in-flight exchange, if any, and waits for its read loop
// to exit. The exchange finishes in PhaseAborted; aborts are never surfaced
// as errors.
func (c *Controller) Cancel() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.waitInflight()
}

// Reset aborts any in-flight exchange and returns the controller to the
// empty snapshot and PhaseIdle. History already persisted is kept.
func (c *Controller) Reset() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.waitInflight()

	c.mu.Lock()
	c.generation++
	c.phase = PhaseIdle
	c.snap = state.Empty()
	c.pending.Reset()
	c.currentTool = ""
	c.terminalErr = nil
	c.a2uiLog = nil
	c.mu.Unlock()
}

// Snapshot returns the current surface snapshot. The returned value is
// immutable: later messages produce new snapshots rather than mutating it.
func (c *Controller) Snapshot() state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// PendingText returns the assistant text accumulated so far in the current
// exchange. It is live during streaming and holds the finalized text after
// completion until the next Send.
func (c *Controller) PendingText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.String()
}

// CurrentTool returns the name of the tool currently executing, or empty.
func (c *Controller) CurrentTool() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTool
}

// Phase returns the controller's position in the exchange state machine.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Err returns the terminal error of the last exchange. It is non-nil only in
// PhaseFailed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminalErr
}

// SessionID returns the server-assigned session identifier echoed on
// requests, empty until a complete event carries one.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ConversationID returns the key under which this controller's turns are
// stored in the history store.
func (c *Controller) ConversationID() string {
	return c.conversationID
}

// waitInflight cancels the in-flight exchange and blocks until its read loop
// has exited. Callers hold sendMu.
func (c *Controller) waitInflight() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// run is the exchange goroutine: it streams the response and classifies the
// terminal condition. Cancellation ends in PhaseAborted, a complete event or
// clean end of stream in PhaseCompleted, anything else in PhaseFailed.
func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, gen int, body requestBody, done chan struct{}) {
	defer close(done)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "a2ui.exchange")
	defer span.End()
	start := time.Now()

	err := c.stream(ctx, gen, body)
	c.metrics.RecordTimer("a2ui.exchange.duration", time.Since(start))

	switch {
	case err == nil, errors.Is(err, errExchangeDone):
		span.SetStatus(codes.Ok, "completed")
		c.finish(ctx, gen, PhaseCompleted, nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		c.finish(ctx, gen, PhaseAborted, nil)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.finish(ctx, gen, PhaseFailed, err)
	}
}

// stream issues the request and drives the read loop. Cancellation is
// checked at the top of each iteration, never mid-frame, so every frame's
// merge is atomic with respect to supersede.
func (c *Controller) stream(ctx context.Context, gen int, body requestBody) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("issue stream request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused, then fail.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("stream request returned status %d", resp.StatusCode)
	}

	c.transition(gen, PhaseStreaming)

	dec := wire.NewDecoder()
	defer func() {
		if n := dec.Comments(); n > 0 {
			c.metrics.IncCounter("a2ui.keepalives", float64(n))
		}
	}()
	buf := make([]byte, 8<<10)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, frame := range dec.Write(buf[:n]) {
				if c.processFrame(ctx, gen, frame) {
					return errExchangeDone
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if _, leftover := dec.Flush(); leftover {
					return ErrTruncatedStream
				}
				return nil
			}
			return fmt.Errorf("read stream: %w", readErr)
		}
	}
}

// processFrame classifies one decoded frame and applies its effect. It
// reports true when the frame terminates the exchange. Frames from a
// superseded exchange are dropped before any state mutation.
func (c *Controller) processFrame(ctx context.Context, gen int, frame wire.Frame) bool {
	if frame.Event == "" {
		c.log.Debug(ctx, "ignoring frame without event name")
		return false
	}
	if c.validator != nil && frame.Event == string(protocol.EventA2UI) {
		if err := c.validator.Validate(frame.Data); err != nil {
			c.log.Warn(ctx, "dropping a2ui frame failing schema validation", "err", err)
			c.metrics.IncCounter("a2ui.frames.dropped", 1, "reason", "schema")
			return false
		}
	}
	ev, err := protocol.ParseEvent(frame.Event, frame.Data)
	if err != nil {
		c.log.Warn(ctx, "dropping undecodable frame", "event", frame.Event, "err", err)
		c.metrics.IncCounter("a2ui.frames.dropped", 1, "reason", "decode")
		return false
	}
	c.metrics.IncCounter("a2ui.frames.decoded", 1, "event", frame.Event)

	switch {
	case ev.Text != nil:
		var full string
		if !c.withLive(gen, func() {
			c.pending.WriteString(ev.Text.Content)
			full = c.pending.String()
		}) {
			return false
		}
		if c.hooks.OnText != nil {
			c.hooks.OnText(ev.Text.Content, full)
		}
	case ev.ToolStart != nil:
		if !c.withLive(gen, func() { c.currentTool = ev.ToolStart.Tool }) {
			return false
		}
		if c.hooks.OnTool != nil {
			c.hooks.OnTool(ev.ToolStart.Tool, true)
		}
	case ev.ToolEnd != nil:
		if !c.withLive(gen, func() { c.currentTool = "" }) {
			return false
		}
		if c.hooks.OnTool != nil {
			c.hooks.OnTool(ev.ToolEnd.Tool, false)
		}
	case ev.A2UI != nil:
		raw := append(json.RawMessage(nil), frame.Data...)
		var snap state.Snapshot
		if !c.withLive(gen, func() {
			c.snap = state.Apply(c.snap, *ev.A2UI)
			c.a2uiLog = append(c.a2uiLog, raw)
			snap = c.snap
		}) {
			return false
		}
		c.metrics.IncCounter("a2ui.messages.applied", 1, "kind", string(ev.A2UI.Kind()))
		if c.hooks.OnMessage != nil {
			c.hooks.OnMessage(*ev.A2UI, raw)
		}
		if c.hooks.OnSnapshot != nil {
			c.hooks.OnSnapshot(snap)
		}
	case ev.Error != nil:
		if !c.withLive(gen, func() {}) {
			return false
		}
		c.log.Info(ctx, "backend reported error", "message", ev.Error.Error)
		if c.hooks.OnError != nil {
			c.hooks.OnError(ev.Error.Error)
		}
	case ev.Complete != nil:
		if !c.withLive(gen, func() {
			if ev.Complete.SessionID != "" {
				c.sessionID = ev.Complete.SessionID
			}
		}) {
			return false
		}
		return true
	case ev.Status != nil:
		if c.hooks.OnStatus != nil && c.isLive(gen) {
			c.hooks.OnStatus(*ev.Status)
		}
	case ev.ContextSwitch != nil:
		if c.hooks.OnContextSwitch != nil && c.isLive(gen) {
			c.hooks.OnContextSwitch(*ev.ContextSwitch)
		}
	default:
		c.log.Debug(ctx, "ignoring unrecognized event", "event", frame.Event)
	}
	return false
}

// finish records the terminal phase, commits the exchange to history on
// completion, and fires the terminal hook. A superseded exchange's finish is
// a no-op.
func (c *Controller) finish(ctx context.Context, gen int, phase Phase, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.phase = phase
	c.terminalErr = err
	c.currentTool = ""
	var user, assistant history.Turn
	commit := false
	if phase == PhaseCompleted {
		user = history.NewUserTurn(c.userText)
		assistant = history.NewAssistantTurn(c.pending.String(), c.a2uiLog)
		c.a2uiLog = nil
		commit = true
	}
	c.mu.Unlock()

	if commit {
		// The exchange context may already be done; persistence must not be
		// lost to it.
		if aerr := c.store.Append(context.WithoutCancel(ctx), c.conversationID, user, assistant); aerr != nil {
			c.log.Error(ctx, "persist exchange turns", "err", aerr)
		}
	}
	if err != nil {
		c.log.Error(ctx, "exchange failed", "err", err)
	}
	if c.hooks.OnFinish != nil {
		c.hooks.OnFinish(phase, err)
	}
}

// transition moves the live exchange to the given phase.
func (c *Controller) transition(gen int, phase Phase) {
	c.withLive(gen, func() { c.phase = phase })
}

// withLive runs fn under the state mutex when gen is still the live
// exchange, reporting whether it ran. Every mutation goes through it so a
// superseded stream's frames are dropped wholesale.
func (c *Controller) withLive(gen int, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	fn()
	return true
}

// isLive reports whether gen is still the live exchange.
func (c *Controller) isLive(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

// requestHistory converts stored turns to the wire history shape. The
// current turn is excluded by construction: it is committed only after its
// exchange completes.
func requestHistory(turns []history.Turn) []requestTurn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]requestTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, requestTurn{
			Role:       string(t.Role),
			Content:    t.Content,
			ToolCalls:  t.ToolCalls,
			ToolCallID: t.ToolCallID,
			Name:       t.Name,
		})
	}
	return out
}
