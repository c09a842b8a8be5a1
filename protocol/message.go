package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageKind identifies which control message a Message carries.
type MessageKind string

// Control message kinds, matching the wire discriminant keys.
const (
	KindSurfaceUpdate   MessageKind = "surfaceUpdate"
	KindDataModelUpdate MessageKind = "dataModelUpdate"
	KindBeginRendering  MessageKind = "beginRendering"
)

type (
	// Message is one A2UI control message. Exactly one of the three fields
	// is non-nil; the wire form is a single-key JSON object keyed by the
	// message kind.
	Message struct {
		SurfaceUpdate   *SurfaceUpdate   `json:"surfaceUpdate,omitempty"`
		DataModelUpdate *DataModelUpdate `json:"dataModelUpdate,omitempty"`
		BeginRendering  *BeginRendering  `json:"beginRendering,omitempty"`
	}

	// SurfaceUpdate upserts components into the surface, replacing any
	// existing component with the same id wholesale.
	SurfaceUpdate struct {
		// SurfaceID names the target surface. Carried verbatim; this client
		// operates on the single implicit surface.
		SurfaceID string `json:"surfaceId,omitempty"`
		// Components to insert or replace, applied in order.
		Components []Component `json:"components"`
	}

	// DataModelUpdate merges entries into the data model at an optional
	// path. Intermediate nodes along the path are created as needed; keys
	// not listed in Contents are left untouched.
	DataModelUpdate struct {
		SurfaceID string `json:"surfaceId,omitempty"`
		// Path locates the mapping node receiving the entries, slash
		// delimited with an optional leading slash. Empty means the model
		// root.
		Path string `json:"path,omitempty"`
		// Contents are the key/value pairs to set under the path node.
		Contents []DataEntry `json:"contents"`
	}

	// BeginRendering names the component tree root and signals that the
	// surface is ready to render. It may arrive several times in one
	// exchange; each occurrence re-points the root.
	BeginRendering struct {
		SurfaceID string `json:"surfaceId,omitempty"`
		// Root is the id of the tree's entry component.
		Root string `json:"root"`
		// CatalogID optionally names the component catalog the surface was
		// built against. Carried verbatim.
		CatalogID string `json:"catalogId,omitempty"`
	}

	// DataEntry is one key/value pair of a DataModelUpdate. The value is
	// the first present alternative checked in fixed order: string, number,
	// boolean, array, map. Scalar alternatives are pointers so that 0,
	// false and "" count as present; array and map count as present when
	// non-nil.
	DataEntry struct {
		Key          string         `json:"key"`
		ValueString  *string        `json:"valueString,omitempty"`
		ValueNumber  *float64       `json:"valueNumber,omitempty"`
		ValueBoolean *bool          `json:"valueBoolean,omitempty"`
		ValueArray   []any          `json:"valueArray,omitempty"`
		ValueMap     map[string]any `json:"valueMap,omitempty"`
	}
)

// ErrNoDiscriminant reports an a2ui payload that carries none of the three
// control message keys.
var ErrNoDiscriminant = errors.New("a2ui message has no control message key")

// Kind returns the discriminant of the control message, or the empty kind
// for a zero Message.
func (m Message) Kind() MessageKind {
	switch {
	case m.SurfaceUpdate != nil:
		return KindSurfaceUpdate
	case m.DataModelUpdate != nil:
		return KindDataModelUpdate
	case m.BeginRendering != nil:
		return KindBeginRendering
	}
	return ""
}

// UnmarshalJSON decodes the single-key wire object and enforces that exactly
// one control message key is present. Unrecognized sibling keys are ignored
// for forward compatibility.
func (m *Message) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode a2ui message: %w", err)
	}
	*m = Message{}
	found := 0
	if raw, ok := obj["surfaceUpdate"]; ok {
		var su SurfaceUpdate
		if err := json.Unmarshal(raw, &su); err != nil {
			return fmt.Errorf("decode surfaceUpdate: %w", err)
		}
		for i, c := range su.Components {
			if c.ID == "" {
				return fmt.Errorf("surfaceUpdate components[%d] requires id", i)
			}
			if c.Component.Type == "" {
				return fmt.Errorf("surfaceUpdate components[%d] requires a component wrapper", i)
			}
		}
		m.SurfaceUpdate = &su
		found++
	}
	if raw, ok := obj["dataModelUpdate"]; ok {
		var du DataModelUpdate
		if err := json.Unmarshal(raw, &du); err != nil {
			return fmt.Errorf("decode dataModelUpdate: %w", err)
		}
		for i, e := range du.Contents {
			if e.Key == "" {
				return fmt.Errorf("dataModelUpdate contents[%d] requires key", i)
			}
		}
		m.DataModelUpdate = &du
		found++
	}
	if raw, ok := obj["beginRendering"]; ok {
		var br BeginRendering
		if err := json.Unmarshal(raw, &br); err != nil {
			return fmt.Errorf("decode beginRendering: %w", err)
		}
		if br.Root == "" {
			return errors.New("beginRendering requires root")
		}
		m.BeginRendering = &br
		found++
	}
	switch found {
	case 0:
		return ErrNoDiscriminant
	case 1:
		return nil
	default:
		return fmt.Errorf("a2ui message has %d control message keys, want 1", found)
	}
}

// Value returns the entry's value, selecting the first present alternative
// in the order string, number, boolean, array, map. ok is false when no
// alternative is present.
func (e DataEntry) Value() (v any, ok bool) {
	switch {
	case e.ValueString != nil:
		return *e.ValueString, true
	case e.ValueNumber != nil:
		return *e.ValueNumber, true
	case e.ValueBoolean != nil:
		return *e.ValueBoolean, true
	case e.ValueArray != nil:
		return e.ValueArray, true
	case e.ValueMap != nil:
		return e.ValueMap, true
	}
	return nil, false
}
