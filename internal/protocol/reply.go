package protocol

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Reply is the structured response returned for one processed event. It is
// the contract the shell renders and the host consumes to decide whether to
// execute Actions.
type Reply struct {
	Status               Status   `json:"status"`
	AssistantMessage     string   `json:"assistant_message"`
	Questions            []string `json:"questions"`
	Plan                 []string `json:"plan"`
	Actions              []Action `json:"actions"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
}

const replySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "status": {
      "type": "string",
      "enum": ["need_clarification", "planned", "ready_to_execute", "executing", "done"]
    },
    "assistant_message": { "type": "string" },
    "questions": { "type": "array", "items": { "type": "string" } },
    "plan": { "type": "array", "items": { "type": "string" } },
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "action": { "type": "string" },
          "params": { "type": "object" }
        },
        "required": ["action", "params"]
      }
    },
    "requires_confirmation": { "type": "boolean" }
  },
  "required": ["status", "assistant_message", "questions", "plan", "actions", "requires_confirmation"]
}`

// ValidateReply checks a normalized reply document against the strict reply
// schema. The normalizer fills defaults first; anything still out of shape
// here is a hard validation failure that feeds the retry loop.
func ValidateReply(doc map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(replySchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate reply schema: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msg := "reply schema validation failed"
	for _, schemaErr := range result.Errors() {
		msg += ": " + schemaErr.String()
	}
	return fmt.Errorf("%s", msg)
}
