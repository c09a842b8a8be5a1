package protocol

type (
	// BoundValue describes a component property value: either a literal
	// (string, number or boolean) or a reference into the data model by
	// slash-delimited path. Literal fields are pointers so that zero values
	// (empty string, 0, false) remain distinguishable from absent fields.
	BoundValue struct {
		// LiteralString is an inline string value.
		LiteralString *string `json:"literalString,omitempty"`
		// LiteralNumber is an inline numeric value.
		LiteralNumber *float64 `json:"literalNumber,omitempty"`
		// LiteralBoolean is an inline boolean value.
		LiteralBoolean *bool `json:"literalBoolean,omitempty"`
		// Path references a data model location, e.g. "prediction/p50".
		// A leading slash is tolerated.
		Path string `json:"path,omitempty"`
	}
)

// String constructs a literal string bound value.
func String(v string) BoundValue {
	return BoundValue{LiteralString: &v}
}

// Number constructs a literal number bound value.
func Number(v float64) BoundValue {
	return BoundValue{LiteralNumber: &v}
}

// Boolean constructs a literal boolean bound value.
func Boolean(v bool) BoundValue {
	return BoundValue{LiteralBoolean: &v}
}

// PathRef constructs a data-bound value referencing the given model path.
func PathRef(path string) BoundValue {
	return BoundValue{Path: path}
}
