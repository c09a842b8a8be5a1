package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jarz-ai/a2ui-go/history"
)

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Options{})
	require.EqualError(t, err, "redis client is required")
}

func TestAppendAndListTurns(t *testing.T) {
	fc := newFakeCommands()
	client := mustNewTestClient(fc, Options{})
	ctx := context.Background()

	err := client.AppendTurns(ctx, "sess-1", []history.Turn{
		history.NewUserTurn("what about Hackney?"),
		history.NewAssistantTurn("Hackney trends upward.", []json.RawMessage{
			json.RawMessage(`{"beginRendering":{"surfaceId":"main","root":"root"}}`),
		}),
	})
	require.NoError(t, err)

	turns, err := client.ListTurns(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, history.RoleUser, turns[0].Role)
	require.Equal(t, "what about Hackney?", turns[0].Content)
	require.JSONEq(t,
		`{"beginRendering":{"surfaceId":"main","root":"root"}}`,
		string(turns[1].A2UI[0]))
}

func TestAppendTrimsToMaxTurns(t *testing.T) {
	fc := newFakeCommands()
	client := mustNewTestClient(fc, Options{MaxTurns: 3})
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, client.AppendTurns(ctx, "sess-1", []history.Turn{
			history.NewUserTurn(content),
		}))
	}

	turns, err := client.ListTurns(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, "three", turns[0].Content)
	require.Equal(t, "five", turns[2].Content)
}

func TestAppendRefreshesTTL(t *testing.T) {
	fc := newFakeCommands()
	client := mustNewTestClient(fc, Options{TTL: time.Hour})

	require.NoError(t, client.AppendTurns(context.Background(), "sess-1", []history.Turn{
		history.NewUserTurn("hello"),
	}))
	require.Equal(t, time.Hour, fc.ttls[client.key("sess-1")])
}

func TestAppendValidates(t *testing.T) {
	fc := newFakeCommands()
	client := mustNewTestClient(fc, Options{})
	ctx := context.Background()

	err := client.AppendTurns(ctx, "", []history.Turn{history.NewUserTurn("x")})
	require.EqualError(t, err, "session id is required")

	err = client.AppendTurns(ctx, "sess-1", []history.Turn{{Role: history.RoleUser}})
	require.EqualError(t, err, "turn id is required")

	err = client.AppendTurns(ctx, "sess-1", []history.Turn{{ID: "t"}})
	require.EqualError(t, err, "turn role is required")

	require.NoError(t, client.AppendTurns(ctx, "sess-1", nil))
	require.Empty(t, fc.lists)
}

func TestListTurnsUnknownSession(t *testing.T) {
	client := mustNewTestClient(newFakeCommands(), Options{})
	turns, err := client.ListTurns(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestListTurnsCorruptEntry(t *testing.T) {
	fc := newFakeCommands()
	client := mustNewTestClient(fc, Options{})
	fc.lists[client.key("sess-1")] = []string{`{not json`}

	_, err := client.ListTurns(context.Background(), "sess-1")
	require.ErrorContains(t, err, "decode turn")
}

func TestClearTurns(t *testing.T) {
	fc := newFakeCommands()
	client := mustNewTestClient(fc, Options{})
	ctx := context.Background()

	require.NoError(t, client.AppendTurns(ctx, "sess-1", []history.Turn{history.NewUserTurn("x")}))
	require.NoError(t, client.ClearTurns(ctx, "sess-1"))

	turns, err := client.ListTurns(ctx, "sess-1")
	require.NoError(t, err)
	require.Empty(t, turns)

	err = client.ClearTurns(ctx, "")
	require.EqualError(t, err, "session id is required")
}

func TestPing(t *testing.T) {
	client := mustNewTestClient(newFakeCommands(), Options{})
	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, "history-redis", client.Name())
}

func mustNewTestClient(cmds commands, opts Options) *client {
	cl, err := newClientWithCommands(cmds, opts)
	if err != nil {
		panic(err)
	}
	return cl
}

// fakeCommands is a lightweight in-memory stand-in for the subset of Redis
// list operations the client issues.
type fakeCommands struct {
	mu    sync.Mutex
	lists map[string][]string
	ttls  map[string]time.Duration
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{
		lists: make(map[string][]string),
		ttls:  make(map[string]time.Duration),
	}
}

func (f *fakeCommands) RPush(ctx context.Context, key string, values ...any) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return goredis.NewIntResult(0, errors.New("unsupported value type"))
		}
		f.lists[key] = append(f.lists[key], s)
	}
	return goredis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeCommands) LRange(ctx context.Context, key string, start, stop int64) *goredis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.lists[key]
	n := int64(len(list))
	s, e := normalizeIndex(start, n), normalizeIndex(stop, n)
	if s < 0 {
		s = 0
	}
	if e >= n {
		e = n - 1
	}
	if n == 0 || s > e {
		return goredis.NewStringSliceResult(nil, nil)
	}
	return goredis.NewStringSliceResult(append([]string(nil), list[s:e+1]...), nil)
}

func (f *fakeCommands) LTrim(ctx context.Context, key string, start, stop int64) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.lists[key]
	n := int64(len(list))
	s, e := normalizeIndex(start, n), normalizeIndex(stop, n)
	if s < 0 {
		s = 0
	}
	if e >= n {
		e = n - 1
	}
	if n == 0 || s > e {
		delete(f.lists, key)
	} else {
		f.lists[key] = append([]string(nil), list[s:e+1]...)
	}
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Expire(ctx context.Context, key string, ttl time.Duration) *goredis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.lists[key]; ok {
			delete(f.lists, key)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func (f *fakeCommands) Ping(ctx context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func normalizeIndex(i, n int64) int64 {
	if i < 0 {
		return n + i
	}
	return i
}
