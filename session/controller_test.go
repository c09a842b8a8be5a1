package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jarz-ai/a2ui-go/history"
	"github.com/jarz-ai/a2ui-go/history/inmem"
	"github.com/jarz-ai/a2ui-go/protocol"
	"github.com/jarz-ai/a2ui-go/state"
	"github.com/jarz-ai/a2ui-go/wire"
)

// sseServer streams the given frames and closes the response.
func sseServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, f := range frames {
			_, _ = io.WriteString(w, f)
			fl.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// finishRecorder collects terminal hook invocations and signals each one.
type finishRecorder struct {
	mu     sync.Mutex
	phases []Phase
	errs   []error
	ch     chan struct{}
}

func newFinishRecorder() *finishRecorder {
	return &finishRecorder{ch: make(chan struct{}, 8)}
}

func (r *finishRecorder) hook(phase Phase, err error) {
	r.mu.Lock()
	r.phases = append(r.phases, phase)
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *finishRecorder) wait(t *testing.T) (Phase, error) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("exchange did not finish")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phases[len(r.phases)-1], r.errs[len(r.errs)-1]
}

func frame(event, data string) string {
	return "event: " + event + "\ndata: " + data + "\n\n"
}

func TestSendFullExchange(t *testing.T) {
	srv := sseServer(t,
		": keepalive\n\n",
		frame("status", `{"node":"agent","status":"running"}`),
		frame("text", `{"content":"The expected rent is "}`),
		frame("tool_start", `{"tool":"get_rental_prediction"}`),
		frame("tool_end", `{"tool":"get_rental_prediction","success":true}`),
		frame("a2ui", `{"surfaceUpdate":{"components":[{"id":"root","component":{"Column":{"children":{"explicitList":["title"]}}}},{"id":"title","component":{"Text":{"text":{"path":"prediction/p50"}}}}]}}`),
		frame("a2ui", `{"dataModelUpdate":{"path":"prediction","contents":[{"key":"p50","valueNumber":1850}]}}`),
		frame("a2ui", `{"beginRendering":{"root":"root"}}`),
		frame("text", `{"content":"1850 euro."}`),
		frame("switch_context", `{"district":"centrum"}`),
		frame("complete", `{"status":"complete","sessionId":"sess-1"}`),
	)

	store := inmem.New()
	fin := newFinishRecorder()
	var (
		mu       sync.Mutex
		deltas   []string
		tools    []string
		statuses []protocol.StatusPayload
		switches []protocol.ContextSwitchPayload
		snaps    int
	)
	ctrl, err := New(srv.URL,
		WithHistory(store),
		WithHooks(Hooks{
			OnText: func(delta, full string) {
				mu.Lock()
				deltas = append(deltas, delta)
				mu.Unlock()
			},
			OnTool: func(tool string, running bool) {
				mu.Lock()
				tools = append(tools, tool)
				mu.Unlock()
			},
			OnStatus: func(s protocol.StatusPayload) {
				mu.Lock()
				statuses = append(statuses, s)
				mu.Unlock()
			},
			OnContextSwitch: func(cs protocol.ContextSwitchPayload) {
				mu.Lock()
				switches = append(switches, cs)
				mu.Unlock()
			},
			OnSnapshot: func(state.Snapshot) {
				mu.Lock()
				snaps++
				mu.Unlock()
			},
			OnFinish: fin.hook,
		}),
	)
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "what rent for centrum?"))
	phase, ferr := fin.wait(t)
	require.Equal(t, PhaseCompleted, phase)
	require.NoError(t, ferr)

	require.Equal(t, PhaseCompleted, ctrl.Phase())
	require.NoError(t, ctrl.Err())
	require.Equal(t, "The expected rent is 1850 euro.", ctrl.PendingText())
	require.Equal(t, "sess-1", ctrl.SessionID())
	require.Empty(t, ctrl.CurrentTool())

	snap := ctrl.Snapshot()
	require.True(t, snap.Ready)
	require.Equal(t, "root", snap.RootID)
	require.Len(t, snap.Components, 2)
	title, ok := snap.Component("title")
	require.True(t, ok)
	v, ok := state.Resolve(title.Component.Props.(protocol.TextProps).Text, snap.DataModel)
	require.True(t, ok)
	require.Equal(t, float64(1850), v)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"The expected rent is ", "1850 euro."}, deltas)
	require.Equal(t, []string{"get_rental_prediction", "get_rental_prediction"}, tools)
	require.Equal(t, []protocol.StatusPayload{{Node: "agent", Status: "running"}}, statuses)
	require.Equal(t, []protocol.ContextSwitchPayload{{District: "centrum"}}, switches)
	require.Equal(t, 3, snaps)

	turns, err := store.List(context.Background(), ctrl.ConversationID())
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, history.RoleUser, turns[0].Role)
	require.Equal(t, "what rent for centrum?", turns[0].Content)
	require.Equal(t, history.RoleAssistant, turns[1].Role)
	require.Equal(t, "The expected rent is 1850 euro.", turns[1].Content)
	require.Len(t, turns[1].A2UI, 3)
}

func TestSecondExchangeCarriesHistoryAndSession(t *testing.T) {
	bodies := make(chan requestBody, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body requestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, frame("text", `{"content":"ok"}`))
		_, _ = io.WriteString(w, frame("complete", `{"status":"complete","sessionId":"sess-9"}`))
	}))
	defer srv.Close()

	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "first"))
	fin.wait(t)
	require.NoError(t, ctrl.Send(context.Background(), "second"))
	fin.wait(t)

	first := <-bodies
	require.Equal(t, "first", first.Message)
	require.Empty(t, first.History)
	require.Empty(t, first.SessionID)

	second := <-bodies
	require.Equal(t, "second", second.Message)
	require.Equal(t, "sess-9", second.SessionID)
	require.Len(t, second.History, 2)
	require.Equal(t, "user", second.History[0].Role)
	require.Equal(t, "first", second.History[0].Content)
	require.Equal(t, "assistant", second.History[1].Role)
	require.Equal(t, "ok", second.History[1].Content)
}

func TestNewExchangeClearsDataModelKeepsComponents(t *testing.T) {
	var calls int
	var mu sync.Mutex
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			_, _ = io.WriteString(w, frame("a2ui", `{"surfaceUpdate":{"components":[{"id":"r","component":{"Text":{"text":{"literalString":"x"}}}}]}}`))
			_, _ = io.WriteString(w, frame("a2ui", `{"dataModelUpdate":{"contents":[{"key":"k","valueString":"v"}]}}`))
			_, _ = io.WriteString(w, frame("a2ui", `{"beginRendering":{"root":"r"}}`))
			_, _ = io.WriteString(w, frame("complete", `{"status":"complete"}`))
			return
		}
		// Hold the second exchange so its pre-stream state is observable.
		<-release
		_, _ = io.WriteString(w, frame("complete", `{"status":"complete"}`))
	}))
	defer srv.Close()

	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "build"))
	fin.wait(t)
	require.NotEmpty(t, ctrl.Snapshot().DataModel)

	// Second exchange: stale UI stays visible, bindings start clean.
	require.NoError(t, ctrl.Send(context.Background(), "again"))
	snap := ctrl.Snapshot()
	require.True(t, snap.Ready)
	require.Equal(t, "r", snap.RootID)
	require.Len(t, snap.Components, 1)
	require.Empty(t, snap.DataModel)
	close(release)
	fin.wait(t)
}

func TestNonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "hello"))
	phase, ferr := fin.wait(t)
	require.Equal(t, PhaseFailed, phase)
	require.ErrorContains(t, ferr, "status 502")
	require.Equal(t, PhaseFailed, ctrl.Phase())
	require.Error(t, ctrl.Err())
}

func TestProtocolErrorEventKeepsStreaming(t *testing.T) {
	srv := sseServer(t,
		frame("a2ui", `{"beginRendering":{"root":"r"}}`),
		frame("error", `{"error":"model unavailable"}`),
		frame("complete", `{"status":"complete"}`),
	)
	fin := newFinishRecorder()
	var errMsgs []string
	var mu sync.Mutex
	ctrl, err := New(srv.URL, WithHooks(Hooks{
		OnError: func(msg string) {
			mu.Lock()
			errMsgs = append(errMsgs, msg)
			mu.Unlock()
		},
		OnFinish: fin.hook,
	}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "hello"))
	phase, ferr := fin.wait(t)
	require.Equal(t, PhaseCompleted, phase)
	require.NoError(t, ferr)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"model unavailable"}, errMsgs)
	// Rendered UI stays intact through the backend error.
	require.True(t, ctrl.Snapshot().Ready)
}

func TestCancelAborts(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		_, _ = io.WriteString(w, frame("text", `{"content":"partial"}`))
		fl.Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "hello"))
	<-started
	ctrl.Cancel()

	phase, ferr := fin.wait(t)
	require.Equal(t, PhaseAborted, phase)
	require.NoError(t, ferr)
	require.Equal(t, PhaseAborted, ctrl.Phase())
	require.NoError(t, ctrl.Err())
}

func TestSendSupersedesInflightExchange(t *testing.T) {
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		if n == 1 {
			_, _ = io.WriteString(w, frame("text", `{"content":"from A"}`))
			fl.Flush()
			<-r.Context().Done()
			return
		}
		<-release
		_, _ = io.WriteString(w, frame("text", `{"content":"from B"}`))
		_, _ = io.WriteString(w, frame("complete", `{"status":"complete"}`))
		fl.Flush()
	}))
	defer srv.Close()

	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "exchange A"))
	require.Eventually(t, func() bool { return ctrl.PendingText() == "from A" },
		5*time.Second, 5*time.Millisecond)

	// B cancels and drains A before issuing its request.
	require.NoError(t, ctrl.Send(context.Background(), "exchange B"))
	phase, _ := fin.wait(t) // A's abort
	require.Equal(t, PhaseAborted, phase)
	require.Empty(t, ctrl.PendingText())

	close(release)
	phase, ferr := fin.wait(t)
	require.Equal(t, PhaseCompleted, phase)
	require.NoError(t, ferr)
	require.Equal(t, "from B", ctrl.PendingText())
}

func TestLateFramesFromSupersededExchangeDropped(t *testing.T) {
	ctrl, err := New("http://unused")
	require.NoError(t, err)

	ctrl.mu.Lock()
	ctrl.generation = 1
	gen := ctrl.generation
	ctrl.mu.Unlock()

	live := wire.Frame{Event: "a2ui", Data: []byte(`{"beginRendering":{"root":"r"}}`)}
	require.False(t, ctrl.processFrame(context.Background(), gen, live))
	require.True(t, ctrl.Snapshot().Ready)

	// Supersede, then replay the same frame under the stale generation.
	ctrl.mu.Lock()
	ctrl.generation++
	ctrl.snap = state.Empty()
	ctrl.mu.Unlock()

	stale := wire.Frame{Event: "a2ui", Data: []byte(`{"beginRendering":{"root":"other"}}`)}
	ctrl.processFrame(context.Background(), gen, stale)
	require.False(t, ctrl.Snapshot().Ready)
	require.Empty(t, ctrl.Snapshot().RootID)

	text := wire.Frame{Event: "text", Data: []byte(`{"content":"late"}`)}
	ctrl.processFrame(context.Background(), gen, text)
	require.Empty(t, ctrl.PendingText())
}

func TestCleanEOFWithoutCompleteCompletes(t *testing.T) {
	srv := sseServer(t,
		frame("text", `{"content":"trailing answer"}`),
	)
	store := inmem.New()
	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHistory(store), WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "hello"))
	phase, ferr := fin.wait(t)
	require.Equal(t, PhaseCompleted, phase)
	require.NoError(t, ferr)

	turns, err := store.List(context.Background(), ctrl.ConversationID())
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "trailing answer", turns[1].Content)
}

func TestTruncatedStreamFails(t *testing.T) {
	srv := sseServer(t,
		frame("text", `{"content":"so far"}`),
		"event: a2ui\ndata: {\"beginRendering\":", // closes mid-frame
	)
	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "hello"))
	phase, ferr := fin.wait(t)
	require.Equal(t, PhaseFailed, phase)
	require.ErrorIs(t, ferr, ErrTruncatedStream)
	// Partial state is retained, not rolled back.
	require.Equal(t, "so far", ctrl.PendingText())
}

func TestMalformedFrameDroppedStreamContinues(t *testing.T) {
	srv := sseServer(t,
		frame("a2ui", `{not json`),
		frame("a2ui", `{"unknownKey":{}}`),
		frame("a2ui", `{"beginRendering":{"root":"r"}}`),
		frame("complete", `{"status":"complete"}`),
	)
	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "hello"))
	phase, ferr := fin.wait(t)
	require.Equal(t, PhaseCompleted, phase)
	require.NoError(t, ferr)
	require.True(t, ctrl.Snapshot().Ready)
	require.Equal(t, "r", ctrl.Snapshot().RootID)
}

func TestResetReturnsToEmptyIdle(t *testing.T) {
	srv := sseServer(t,
		frame("a2ui", `{"beginRendering":{"root":"r"}}`),
		frame("complete", `{"status":"complete"}`),
	)
	fin := newFinishRecorder()
	ctrl, err := New(srv.URL, WithHooks(Hooks{OnFinish: fin.hook}))
	require.NoError(t, err)

	require.NoError(t, ctrl.Send(context.Background(), "hello"))
	fin.wait(t)
	require.True(t, ctrl.Snapshot().Ready)

	ctrl.Reset()
	require.Equal(t, PhaseIdle, ctrl.Phase())
	require.False(t, ctrl.Snapshot().Ready)
	require.Empty(t, ctrl.Snapshot().Components)
	require.Empty(t, ctrl.PendingText())
}

func TestSendRequiresMessage(t *testing.T) {
	ctrl, err := New("http://unused")
	require.NoError(t, err)
	require.Error(t, ctrl.Send(context.Background(), ""))
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
