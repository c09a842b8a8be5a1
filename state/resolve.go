package state

import (
	"strings"

	"github.com/jarz-ai/a2ui-go/protocol"
)

// Resolve evaluates a bound value against a data model. Literal fields win
// over a path, checked in a fixed order: string, then number, then boolean.
// A path is split on "/" with empty segments discarded, so "/rental/city"
// and "rental/city" address the same node. A path that cannot be walked to
// the end resolves to not-ok rather than an error; servers routinely send
// component trees before the data that backs them.
func Resolve(bv protocol.BoundValue, model map[string]any) (any, bool) {
	switch {
	case bv.LiteralString != nil:
		return *bv.LiteralString, true
	case bv.LiteralNumber != nil:
		return *bv.LiteralNumber, true
	case bv.LiteralBoolean != nil:
		return *bv.LiteralBoolean, true
	}
	if bv.Path == "" {
		return nil, false
	}
	var node any = model
	for _, seg := range splitPath(bv.Path) {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return node, true
}

// splitPath splits a data model path on "/" and discards empty segments, so
// leading or doubled separators do not produce phantom nodes.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}
