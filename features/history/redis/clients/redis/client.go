// Package redis implements the low-level Redis client used by the history
// store. Each session maps to one Redis list of JSON-encoded turns; the list
// is trimmed to a configurable length and refreshed with a TTL on every
// append, so memory stays bounded without an external reaper.
package redis

//go:generate cmg gen .

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"goa.design/clue/health"

	"github.com/jarz-ai/a2ui-go/history"
)

const (
	defaultKeyPrefix = "a2ui:history:"
	defaultTTL       = 24 * time.Hour
	defaultMaxTurns  = 200
	defaultTimeout   = 5 * time.Second
	clientName       = "history-redis"
)

// Client exposes Redis-backed operations for session history.
type Client interface {
	health.Pinger

	AppendTurns(ctx context.Context, sessionID string, turns []history.Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]history.Turn, error)
	ClearTurns(ctx context.Context, sessionID string) error
}

// Options configures the Redis client implementation.
type Options struct {
	// Client is the Redis connection. Required.
	Client *goredis.Client
	// KeyPrefix namespaces the session lists. Defaults to "a2ui:history:".
	KeyPrefix string
	// TTL is the expiry refreshed on every append. Zero uses the default;
	// negative disables expiry.
	TTL time.Duration
	// MaxTurns bounds the retained turns per session. Zero uses the default;
	// negative disables trimming.
	MaxTurns int64
	// Timeout bounds individual operations. Zero uses the default.
	Timeout time.Duration
}

type client struct {
	redis    commands
	prefix   string
	ttl      time.Duration
	maxTurns int64
	timeout  time.Duration
}

// New returns a Client backed by the provided Redis connection.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	return newClientWithCommands(opts.Client, opts)
}

func (c *client) Name() string {
	return clientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.redis.Ping(ctx).Err()
}

func (c *client) AppendTurns(ctx context.Context, sessionID string, turns []history.Turn) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	if len(turns) == 0 {
		return nil
	}
	now := time.Now().UTC()
	payloads := make([]any, len(turns))
	for i, turn := range turns {
		if turn.ID == "" {
			return errors.New("turn id is required")
		}
		if turn.Role == "" {
			return errors.New("turn role is required")
		}
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = now
		}
		b, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		payloads[i] = string(b)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	key := c.key(sessionID)
	if err := c.redis.RPush(ctx, key, payloads...).Err(); err != nil {
		return err
	}
	if c.maxTurns > 0 {
		if err := c.redis.LTrim(ctx, key, -c.maxTurns, -1).Err(); err != nil {
			return err
		}
	}
	if c.ttl > 0 {
		if err := c.redis.Expire(ctx, key, c.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) ListTurns(ctx context.Context, sessionID string) ([]history.Turn, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	raws, err := c.redis.LRange(ctx, c.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	var out []history.Turn
	for _, raw := range raws {
		var turn history.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		out = append(out, turn)
	}
	return out, nil
}

func (c *client) ClearTurns(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.redis.Del(ctx, c.key(sessionID)).Err()
}

func (c *client) key(sessionID string) string {
	return c.prefix + sessionID
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func newClientWithCommands(cmds commands, opts Options) (*client, error) {
	if cmds == nil {
		return nil, errors.New("redis commands are required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	maxTurns := opts.MaxTurns
	if maxTurns == 0 {
		maxTurns = defaultMaxTurns
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{
		redis:    cmds,
		prefix:   prefix,
		ttl:      ttl,
		maxTurns: maxTurns,
		timeout:  timeout,
	}, nil
}

// commands is the subset of Redis operations the client issues, satisfied by
// *goredis.Client.
type commands interface {
	RPush(ctx context.Context, key string, values ...any) *goredis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *goredis.StringSliceCmd
	LTrim(ctx context.Context, key string, start, stop int64) *goredis.StatusCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Ping(ctx context.Context) *goredis.StatusCmd
}
