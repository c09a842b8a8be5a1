// Package replay rebuilds surface snapshots from persisted history. It folds
// the A2UI messages recorded on each turn through the same reducer the live
// stream uses, so a surface restored after a reload is deep-equal to the one
// the user last saw.
package replay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jarz-ai/a2ui-go/history"
	"github.com/jarz-ai/a2ui-go/protocol"
	"github.com/jarz-ai/a2ui-go/state"
	"github.com/jarz-ai/a2ui-go/telemetry"
)

type options struct {
	log telemetry.Logger
}

// Option configures a fold.
type Option func(*options)

// WithLogger sets the logger used to report skipped messages. Defaults to a
// no-op logger.
func WithLogger(log telemetry.Logger) Option {
	return func(o *options) { o.log = log }
}

// Fold replays the A2UI messages of the given turns, in order, from an empty
// snapshot. Messages that no longer decode are skipped with a warning rather
// than aborting the fold; one corrupt record should not cost the whole
// surface. Turns with no recorded messages contribute nothing.
func Fold(ctx context.Context, turns []history.Turn, opts ...Option) state.Snapshot {
	o := options{log: telemetry.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	snap := state.Empty()
	for _, turn := range turns {
		for i, raw := range turn.A2UI {
			var msg protocol.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				o.log.Warn(ctx, "skipping undecodable a2ui message",
					"turn_id", turn.ID, "index", i, "err", err)
				continue
			}
			snap = state.Apply(snap, msg)
		}
	}
	return snap
}

// FoldSession loads the session's history from the store and folds it.
func FoldSession(ctx context.Context, store history.Store, sessionID string, opts ...Option) (state.Snapshot, error) {
	turns, err := store.List(ctx, sessionID)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("load session history: %w", err)
	}
	return Fold(ctx, turns, opts...), nil
}
