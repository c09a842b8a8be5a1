package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var messageSchema []byte

// Validator checks raw a2ui payloads against the control message JSON
// Schema before they are decoded. It is optional: sessions run without one
// by default and enable it for strict deployments.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded control message schema.
func NewValidator() (*Validator, error) {
	var doc any
	if err := json.Unmarshal(messageSchema, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("a2ui-message.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("a2ui-message.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate reports whether payload conforms to the control message schema.
func (v *Validator) Validate(payload []byte) error {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("a2ui payload invalid: %w", err)
	}
	return nil
}
