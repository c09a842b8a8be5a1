package mongo

import (
	"context"
	"errors"

	clientsmongo "github.com/jarz-ai/a2ui-go/features/history/mongo/clients/mongo"
	"github.com/jarz-ai/a2ui-go/history"
)

// Options configures the Store wrapper.
type Options struct {
	Client clientsmongo.Client
}

// Store implements history.Store by delegating to the Mongo client.
type Store struct {
	client clientsmongo.Client
}

// NewStore builds a Mongo-backed history store using the provided client.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: opts.Client}, nil
}

// NewStoreFromMongo is a helper that instantiates the underlying client using
// the given options.
func NewStoreFromMongo(opts clientsmongo.Options) (*Store, error) {
	client, err := clientsmongo.New(opts)
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

// List retrieves the session's turns ordered by creation time.
func (s *Store) List(ctx context.Context, sessionID string) ([]history.Turn, error) {
	return s.client.ListTurns(ctx, sessionID)
}

// Clear removes all turns of the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.client.ClearTurns(ctx, sessionID)
}
