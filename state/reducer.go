package state

import (
	"maps"

	"github.com/jarz-ai/a2ui-go/protocol"
)

// Apply folds a single control message into snap and returns the resulting
// snapshot. It is pure: snap and msg are never mutated, and the returned
// snapshot shares unchanged subtrees with its input. Messages with no
// control payload leave the snapshot unchanged.
func Apply(snap Snapshot, msg protocol.Message) Snapshot {
	switch {
	case msg.SurfaceUpdate != nil:
		return applySurfaceUpdate(snap, msg.SurfaceUpdate)
	case msg.DataModelUpdate != nil:
		return applyDataModelUpdate(snap, msg.DataModelUpdate)
	case msg.BeginRendering != nil:
		snap.RootID = msg.BeginRendering.Root
		snap.Ready = true
		return snap
	}
	return snap
}

// applySurfaceUpdate upserts each component by id, last write wins at
// component granularity. A re-sent component replaces the previous
// definition wholesale; there is no per-property merge.
func applySurfaceUpdate(snap Snapshot, su *protocol.SurfaceUpdate) Snapshot {
	comps := maps.Clone(snap.Components)
	if comps == nil {
		comps = make(map[string]protocol.Component, len(su.Components))
	}
	for _, c := range su.Components {
		comps[c.ID] = c
	}
	snap.Components = comps
	return snap
}

// applyDataModelUpdate merges the update's entries into the model at the
// node addressed by its path. Maps along the path are cloned so siblings in
// the input snapshot are preserved untouched; the entries themselves land at
// the leaf, replacing only the keys they name. A non-map value found where
// the path needs to descend is replaced by a fresh map.
func applyDataModelUpdate(snap Snapshot, du *protocol.DataModelUpdate) Snapshot {
	node := maps.Clone(snap.DataModel)
	if node == nil {
		node = map[string]any{}
	}
	snap.DataModel = node
	for _, seg := range splitPath(du.Path) {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
		} else {
			child = maps.Clone(child)
		}
		node[seg] = child
		node = child
	}
	for _, e := range du.Contents {
		if v, ok := e.Value(); ok {
			node[e.Key] = v
		}
	}
	return snap
}
