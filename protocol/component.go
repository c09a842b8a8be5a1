package protocol

import (
	"encoding/json"
	"fmt"
)

// Component type names known to this client. Any other name decodes to
// UnknownProps carrying the raw property bag.
const (
	TypeText                          = "Text"
	TypeColumn                        = "Column"
	TypeRow                           = "Row"
	TypeSummaryCard                   = "SummaryCard"
	TypeRentForecastChart             = "RentForecastChart"
	TypeNeighbourHeatmapMap           = "NeighbourHeatmapMap"
	TypeDriversBar                    = "DriversBar"
	TypeWhatIfControls                = "WhatIfControls"
	TypeLocationComparisonSummaryCard = "LocationComparisonSummaryCard"
	TypeLocationComparisonRanges      = "LocationComparisonRanges"
	TypeLocationComparisonListings    = "LocationComparisonListings"
	TypeCarbonCard                    = "CarbonCard"
)

type (
	// Component is one addressable node of the surface. The wrapper maps a
	// single component-type tag to its property bag; a later update for the
	// same id replaces the bag wholesale.
	Component struct {
		// ID is the component's stable identity within the surface.
		ID string `json:"id"`
		// Component holds the type tag and its decoded property bag.
		Component Spec `json:"component"`
	}

	// Spec is the decoded single-key component wrapper: the type tag plus
	// its property bag. The original wire bytes are retained so components
	// re-encode losslessly, which replay persistence relies on.
	Spec struct {
		// Type is the component type tag, e.g. "Text" or "SummaryCard".
		Type string
		// Props is the typed property bag; UnknownProps for unrecognized
		// tags. Renderers switch over the concrete types.
		Props Props

		raw json.RawMessage
	}

	// Props is implemented by every component property bag.
	Props interface {
		isProps()
	}

	// Children references child components by id. Ownership of the tree is
	// reference based: an id with no incoming reference is unreachable, not
	// freed.
	Children struct {
		// ExplicitList names the children in render order.
		ExplicitList []string `json:"explicitList,omitempty"`
	}

	// TextProps renders a run of text.
	TextProps struct {
		// Text is the content, literal or data bound.
		Text BoundValue `json:"text"`
		// UsageHint suggests presentation intent, e.g. "title" or "body".
		UsageHint string `json:"usageHint,omitempty"`
	}

	// ColumnProps lays out children vertically.
	ColumnProps struct {
		Children Children `json:"children"`
	}

	// RowProps lays out children horizontally.
	RowProps struct {
		Alignment string   `json:"alignment,omitempty"`
		Children  Children `json:"children"`
	}

	// UnknownProps carries the raw property bag of a component type this
	// client does not model. Renderers decode the bag themselves.
	UnknownProps struct {
		Bag map[string]json.RawMessage
	}
)

// NewSpec constructs a Spec from a type tag and property bag, for building
// components programmatically (tests, fixtures).
func NewSpec(typeName string, props Props) Spec {
	return Spec{Type: typeName, Props: props}
}

// UnmarshalJSON decodes the single-key component wrapper, selecting the
// typed property bag for known tags and UnknownProps otherwise.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode component wrapper: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("component wrapper has %d type keys, want 1", len(obj))
	}
	for name, raw := range obj {
		props, err := decodeProps(name, raw)
		if err != nil {
			return fmt.Errorf("decode %s props: %w", name, err)
		}
		*s = Spec{Type: name, Props: props, raw: append(json.RawMessage(nil), data...)}
	}
	return nil
}

// MarshalJSON re-encodes the wrapper. Specs decoded from the wire round-trip
// byte for byte; constructed specs marshal their typed bag.
func (s Spec) MarshalJSON() ([]byte, error) {
	if s.raw != nil {
		return s.raw, nil
	}
	return json.Marshal(map[string]Props{s.Type: s.Props})
}

func decodeProps(name string, raw json.RawMessage) (Props, error) {
	switch name {
	case TypeText:
		return decodeBag[TextProps](raw)
	case TypeColumn:
		return decodeBag[ColumnProps](raw)
	case TypeRow:
		return decodeBag[RowProps](raw)
	case TypeSummaryCard:
		return decodeBag[SummaryCardProps](raw)
	case TypeRentForecastChart:
		return decodeBag[RentForecastChartProps](raw)
	case TypeNeighbourHeatmapMap:
		return decodeBag[NeighbourHeatmapMapProps](raw)
	case TypeDriversBar:
		return decodeBag[DriversBarProps](raw)
	case TypeWhatIfControls:
		return decodeBag[WhatIfControlsProps](raw)
	case TypeLocationComparisonSummaryCard:
		return decodeBag[LocationComparisonSummaryCardProps](raw)
	case TypeLocationComparisonRanges:
		return decodeBag[LocationComparisonRangesProps](raw)
	case TypeLocationComparisonListings:
		return decodeBag[LocationComparisonListingsProps](raw)
	case TypeCarbonCard:
		return decodeBag[CarbonCardProps](raw)
	default:
		var bag map[string]json.RawMessage
		if err := json.Unmarshal(raw, &bag); err != nil {
			return nil, err
		}
		return UnknownProps{Bag: bag}, nil
	}
}

func decodeBag[T Props](raw json.RawMessage) (Props, error) {
	var bag T
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil, err
	}
	return bag, nil
}

// MarshalJSON emits the raw bag unchanged.
func (u UnknownProps) MarshalJSON() ([]byte, error) {
	if u.Bag == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(u.Bag)
}

// UnmarshalJSON captures the bag without interpreting it.
func (u *UnknownProps) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &u.Bag)
}

func (TextProps) isProps()    {}
func (ColumnProps) isProps()  {}
func (RowProps) isProps()     {}
func (UnknownProps) isProps() {}
