// Package state folds decoded A2UI control messages into surface snapshots
// and resolves component property bindings against the data model. The fold
// is a pure function over immutable snapshot values so that live streaming
// and offline replay share one implementation, and so that published
// snapshots stay valid after later messages arrive.
package state

import (
	"github.com/jarz-ai/a2ui-go/protocol"
)

type (
	// Snapshot is the state of one surface after folding every control
	// message seen so far. Snapshots are values: Apply never mutates its
	// input, and holders may read a snapshot concurrently with later
	// applies. The maps inside a snapshot must not be written by callers.
	Snapshot struct {
		// Components indexes every known component by id. A component's
		// children are ids referenced from its property bag; ids with no
		// incoming reference are simply unreachable.
		Components map[string]protocol.Component
		// DataModel is the path-addressable binding target, a nested
		// string-keyed tree of strings, numbers, booleans, arrays and maps.
		DataModel map[string]any
		// RootID is the tree entry point named by the most recent
		// beginRendering, empty before the first one.
		RootID string
		// Ready reports whether a beginRendering message has been observed
		// since the last reset.
		Ready bool
	}
)

// Empty returns the snapshot a session starts from: no components, an empty
// data model, no root, not ready.
func Empty() Snapshot {
	return Snapshot{
		Components: map[string]protocol.Component{},
		DataModel:  map[string]any{},
	}
}

// ClearDataModel returns snap with an empty data model while keeping the
// component tree, root and readiness. This is the new-exchange reset: stale
// UI stays visible while the next response streams in, but bindings start
// from a clean model.
func ClearDataModel(snap Snapshot) Snapshot {
	snap.DataModel = map[string]any{}
	return snap
}

// Component returns the component with the given id.
func (s Snapshot) Component(id string) (protocol.Component, bool) {
	c, ok := s.Components[id]
	return c, ok
}

// Root returns the root component when the snapshot is ready and the root id
// resolves.
func (s Snapshot) Root() (protocol.Component, bool) {
	if !s.Ready {
		return protocol.Component{}, false
	}
	return s.Component(s.RootID)
}
