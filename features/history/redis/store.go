package redis

import (
	"context"
	"errors"

	clientsredis "github.com/jarz-ai/a2ui-go/features/history/redis/clients/redis"
	"github.com/jarz-ai/a2ui-go/history"
)

// Options configures the Store wrapper.
type Options struct {
	Client clientsredis.Client
}

// Store implements history.Store by delegating to the Redis client.
type Store struct {
	client clientsredis.Client
}

// NewStore builds a Redis-backed history store using the provided client.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: opts.Client}, nil
}

// NewStoreFromRedis is a helper that instantiates the underlying client using
// the given options.
func NewStoreFromRedis(opts clientsredis.Options) (*Store, error) {
	client, err := clientsredis.New(opts)
	if err != nil {
		return nil, err
	}
	return NewStore(Options{Client: client})
}

// Append appends the provided turns to the session history.
func (s *Store) Append(ctx context.Context, sessionID string, turns ...history.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	return s.client.AppendTurns(ctx, sessionID, turns)
}

// List retrieves the session's retained turns, oldest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]history.Turn, error) {
	return s.client.ListTurns(ctx, sessionID)
}

// Clear removes all retained turns of the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.client.ClearTurns(ctx, sessionID)
}
