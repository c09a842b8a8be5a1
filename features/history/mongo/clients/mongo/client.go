// Package mongo implements the low-level MongoDB client used by the history
// store. Each chat turn is persisted as its own document so sessions can grow
// without hitting document size limits.
package mongo

//go:generate cmg gen .

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"github.com/jarz-ai/a2ui-go/history"
)

const (
	defaultCollection = "a2ui_turns"
	defaultTimeout    = 5 * time.Second
	clientName        = "history-mongo"
)

// Client exposes Mongo-backed operations for session history.
type Client interface {
	health.Pinger

	AppendTurns(ctx context.Context, sessionID string, turns []history.Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]history.Turn, error)
	ClearTurns(ctx context.Context, sessionID string) error
}

// Options configures the Mongo client implementation.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

type client struct {
	mongo   *mongodriver.Client
	coll    collection
	timeout time.Duration
}

// New returns a Client backed by the provided MongoDB client.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	mcoll := opts.Client.Database(opts.Database).Collection(collName)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	wrapper := mongoCollection{coll: mcoll}
	if err := ensureIndexes(ctx, wrapper); err != nil {
		return nil, err
	}
	return newClientWithCollection(opts.Client, wrapper, timeout)
}

func (c *client) Name() string {
	return clientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) AppendTurns(ctx context.Context, sessionID string, turns []history.Turn) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	if len(turns) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]turnDocument, len(turns))
	for i, turn := range turns {
		if turn.ID == "" {
			return errors.New("turn id is required")
		}
		if turn.Role == "" {
			return errors.New("turn role is required")
		}
		docs[i] = fromTurn(sessionID, turn, now)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.coll.InsertMany(ctx, docs)
	return err
}

func (c *client) ListTurns(ctx context.Context, sessionID string) ([]history.Turn, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"session_id": sessionID}
	sort := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := c.coll.Find(ctx, filter, sort)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()
	var out []history.Turn
	for cur.Next(ctx) {
		var doc turnDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toTurn())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) ClearTurns(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.coll.DeleteMany(ctx, bson.M{"session_id": sessionID})
	return err
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

type turnDocument struct {
	TurnID     string             `bson:"turn_id"`
	SessionID  string             `bson:"session_id"`
	Role       history.Role       `bson:"role"`
	Content    string             `bson:"content,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
	A2UI       []string           `bson:"a2ui,omitempty"`
	ToolCalls  []toolCallDocument `bson:"tool_calls,omitempty"`
	ToolCallID string             `bson:"tool_call_id,omitempty"`
	ToolName   string             `bson:"tool_name,omitempty"`
}

type toolCallDocument struct {
	CallID    string `bson:"call_id"`
	Type      string `bson:"type"`
	Name      string `bson:"name"`
	Arguments string `bson:"arguments,omitempty"`
}

// fromTurn converts a turn into its document form. The A2UI messages are
// stored as JSON strings so they round-trip byte for byte regardless of BSON
// type mapping.
func fromTurn(sessionID string, turn history.Turn, fallback time.Time) turnDocument {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = fallback
	}
	var a2ui []string
	if len(turn.A2UI) > 0 {
		a2ui = make([]string, len(turn.A2UI))
		for i, raw := range turn.A2UI {
			a2ui[i] = string(raw)
		}
	}
	var calls []toolCallDocument
	if len(turn.ToolCalls) > 0 {
		calls = make([]toolCallDocument, len(turn.ToolCalls))
		for i, call := range turn.ToolCalls {
			calls[i] = toolCallDocument{
				CallID:    call.ID,
				Type:      call.Type,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			}
		}
	}
	return turnDocument{
		TurnID:     turn.ID,
		SessionID:  sessionID,
		Role:       turn.Role,
		Content:    turn.Content,
		CreatedAt:  createdAt.UTC(),
		A2UI:       a2ui,
		ToolCalls:  calls,
		ToolCallID: turn.ToolCallID,
		ToolName:   turn.Name,
	}
}

func (doc turnDocument) toTurn() history.Turn {
	var a2ui []json.RawMessage
	if len(doc.A2UI) > 0 {
		a2ui = make([]json.RawMessage, len(doc.A2UI))
		for i, raw := range doc.A2UI {
			a2ui[i] = json.RawMessage(raw)
		}
	}
	var calls []history.ToolCall
	if len(doc.ToolCalls) > 0 {
		calls = make([]history.ToolCall, len(doc.ToolCalls))
		for i, call := range doc.ToolCalls {
			calls[i] = history.ToolCall{
				ID:   call.CallID,
				Type: call.Type,
				Function: history.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			}
		}
	}
	return history.Turn{
		ID:         doc.TurnID,
		Role:       doc.Role,
		Content:    doc.Content,
		CreatedAt:  doc.CreatedAt,
		A2UI:       a2ui,
		ToolCalls:  calls,
		ToolCallID: doc.ToolCallID,
		Name:       doc.ToolName,
	}
}

func ensureIndexes(ctx context.Context, coll collection) error {
	turnIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "turn_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, turnIndex); err != nil {
		return err
	}
	sessionIndex := mongodriver.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}},
	}
	_, err := coll.Indexes().CreateOne(ctx, sessionIndex)
	return err
}

func newClientWithCollection(mongoClient *mongodriver.Client, coll collection, timeout time.Duration) (*client, error) {
	if coll == nil {
		return nil, errors.New("collection is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{
		mongo:   mongoClient,
		coll:    coll,
		timeout: timeout,
	}, nil
}

type collection interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error)
	InsertMany(ctx context.Context, documents any, opts ...options.Lister[options.InsertManyOptions]) (*mongodriver.InsertManyResult, error)
	DeleteMany(ctx context.Context, filter any, opts ...options.Lister[options.DeleteManyOptions]) (*mongodriver.DeleteResult, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel,
		opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type cursor interface {
	Close(ctx context.Context) error
	Decode(val any) error
	Err() error
	Next(ctx context.Context) bool
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return mongoCursor{cur: cur}, nil
}

func (c mongoCollection) InsertMany(ctx context.Context, documents any,
	opts ...options.Lister[options.InsertManyOptions]) (*mongodriver.InsertManyResult, error) {
	return c.coll.InsertMany(ctx, documents, opts...)
}

func (c mongoCollection) DeleteMany(ctx context.Context, filter any,
	opts ...options.Lister[options.DeleteManyOptions]) (*mongodriver.DeleteResult, error) {
	return c.coll.DeleteMany(ctx, filter, opts...)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoCursor struct {
	cur *mongodriver.Cursor
}

func (c mongoCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

func (c mongoCursor) Decode(val any) error {
	return c.cur.Decode(val)
}

func (c mongoCursor) Err() error {
	return c.cur.Err()
}

func (c mongoCursor) Next(ctx context.Context) bool {
	return c.cur.Next(ctx)
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel,
	opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
