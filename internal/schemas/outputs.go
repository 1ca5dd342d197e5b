package schemas

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/application-assistant/internal/types"
)

// legacyWrapperKey is the key an older orchestrator nested the whole
// package outcome under when persisting outputs.
const legacyWrapperKey = "outputs"

// DecodeOutputs decodes a persisted outputs document into the canonical shape.
// Documents of the legacy form {"outputs": {...}, "errors": ...} are unwrapped
// one level first; legacy reports whether that happened. The result is then
// validated against outputs.schema.json.
func DecodeOutputs(raw []byte) (outputs types.Outputs, legacy bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return types.Outputs{}, false, nil
	}

	normalized, legacy, err := unwrapLegacy(raw)
	if err != nil {
		return nil, false, err
	}
	if err := Validate(OutputsSchema, normalized); err != nil {
		return nil, legacy, err
	}

	if err := json.Unmarshal(normalized, &outputs); err != nil {
		return nil, legacy, fmt.Errorf("failed to decode outputs: %w", err)
	}
	if outputs == nil {
		outputs = types.Outputs{}
	}
	return outputs, legacy, nil
}

// EncodeOutputs validates and serializes outputs in the canonical shape.
func EncodeOutputs(outputs types.Outputs) ([]byte, error) {
	if outputs == nil {
		outputs = types.Outputs{}
	}
	data, err := json.Marshal(outputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outputs: %w", err)
	}
	if err := Validate(OutputsSchema, data); err != nil {
		return nil, err
	}
	return data, nil
}

// unwrapLegacy returns the inner object when raw is {"outputs": {...}}.
func unwrapLegacy(raw []byte) ([]byte, bool, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, false, &ValidationError{
			Schema: OutputsSchema,
			Errors: []FieldError{{Field: "(root)", Message: "outputs must be a JSON object"}},
		}
	}

	inner, ok := top[legacyWrapperKey]
	if !ok {
		return raw, false, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(inner, &probe); err != nil || probe == nil {
		return raw, false, nil
	}
	return inner, true, nil
}
