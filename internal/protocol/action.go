package protocol

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// Action kinds the CAD host accepts. All linear quantities are centimeters.
const (
	ActionCreateSketch       = "create_sketch"
	ActionAddRectangle       = "add_rectangle"
	ActionAddCircle          = "add_circle"
	ActionExtrudeLastProfile = "extrude_last_profile"
	ActionAddText            = "add_text"
)

// Action is one vetted CAD operation request: a kind tag plus a parameter
// document whose shape depends on the kind.
type Action struct {
	Name   string         `json:"action"`
	Params map[string]any `json:"params"`
}

const createSketchSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "plane": { "type": "string", "enum": ["XY", "YZ", "XZ"] }
  },
  "required": ["plane"]
}`

const addRectangleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "sketch_id": { "type": "string" },
    "x1": { "type": "number" },
    "y1": { "type": "number" },
    "x2": { "type": "number" },
    "y2": { "type": "number" }
  },
  "required": ["sketch_id", "x1", "y1", "x2", "y2"]
}`

const addCircleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "sketch_id": { "type": "string" },
    "cx": { "type": "number" },
    "cy": { "type": "number" },
    "r": { "type": "number" }
  },
  "required": ["sketch_id", "cx", "cy", "r"]
}`

const extrudeLastProfileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "distance": { "type": "number" },
    "operation": { "type": "string", "enum": ["NewBody", "Cut", "Join"] }
  },
  "required": ["distance", "operation"]
}`

const addTextSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "plane": { "type": "string", "enum": ["XY", "YZ", "XZ"] },
    "text": { "type": "string" },
    "height": { "type": "number" },
    "x": { "type": "number" },
    "y": { "type": "number" }
  },
  "required": ["plane", "text", "height", "x", "y"]
}`

var actionParamSchemas = map[string]string{
	ActionCreateSketch:       createSketchSchema,
	ActionAddRectangle:       addRectangleSchema,
	ActionAddCircle:          addCircleSchema,
	ActionExtrudeLastProfile: extrudeLastProfileSchema,
	ActionAddText:            addTextSchema,
}

// ValidateAction reports whether the candidate is a well-formed action: a
// known kind tag with a params document matching that kind's schema.
func ValidateAction(a Action) bool {
	schemaJSON, ok := actionParamSchemas[a.Name]
	if !ok {
		return false
	}
	if a.Params == nil {
		return false
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(a.Params),
	)
	if err != nil {
		return false
	}
	return result.Valid()
}

// FilterActions returns the well-formed subset of candidates in original
// order. Malformed entries are dropped, never partially admitted. This is the
// single gate between model output and anything that could be executed.
func FilterActions(candidates []Action) []Action {
	out := make([]Action, 0, len(candidates))
	for _, a := range candidates {
		if ValidateAction(a) {
			out = append(out, a)
		}
	}
	return out
}

// DecodeActions reconstructs validated actions from a raw JSON document, as
// persisted in a session's last_actions record. Invalid entries are dropped.
func DecodeActions(raw []byte) []Action {
	if len(raw) == 0 {
		return nil
	}
	var candidates []Action
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil
	}
	return FilterActions(candidates)
}
