package agent

import (
	"fmt"

	"github.com/MannPATIRA/pascal-ai/internal/agent/openaiapi"
	"github.com/MannPATIRA/pascal-ai/internal/protocol"
	"github.com/MannPATIRA/pascal-ai/internal/session"
)

const systemPrompt = `You are PASCAL Agent, a CAD modeling assistant.

WORKFLOW:
1. CLARIFY: if the request is ambiguous, ask specific questions.
   - status: "need_clarification"
   - questions: array of specific questions
   - assistant_message: brief summary
2. PLAN & ACTIONS: once the request is clear, produce numbered steps AND executable actions.
   - status: "ready_to_execute"
   - plan: numbered steps, one line of rationale each
   - actions: executable CAD actions (REQUIRED)
   - requires_confirmation: true
   - assistant_message: plan summary
3. EXECUTE: wait for user confirmation before anything runs.
   - status: "done" only after an execution result has been reported

CRITICAL: you MUST generate actions[] when the request is clear. Do not stop at planning.

ALLOWED ACTIONS:
- create_sketch(plane: 'XY'|'YZ'|'XZ')
- add_rectangle(sketch_id: string, x1: number, y1: number, x2: number, y2: number)
- add_circle(sketch_id: string, cx: number, cy: number, r: number)
- extrude_last_profile(distance: number, operation: 'NewBody'|'Cut'|'Join')
- add_text(plane: 'XY'|'YZ'|'XZ', text: string, height: number, x: number, y: number)

UNITS & CONVENTIONS:
- All distances are centimeters. Convert millimeters by dividing by 10.
- Sketch ids are "sk_0", "sk_1", ... in creation order.
- Default position is the origin (0,0) when not specified.
- A square with "20 mm sides" is x1=-1, y1=-1, x2=1, y2=1 (a 2 cm square).
- Extrude distance must be positive, in centimeters. Use operation "NewBody"
  unless the user asks to cut or join.

OUTPUT FORMAT:
Return ONLY one JSON object with keys:
status, assistant_message, questions, plan, actions, requires_confirmation.

EXAMPLE for "20 mm sides on the XY plane":
{
  "status": "ready_to_execute",
  "assistant_message": "I will create a 2 cm square centered at the origin on the XY plane.",
  "plan": ["1. Create a sketch on the XY plane", "2. Add a 2 cm square centered at the origin"],
  "actions": [
    {"action": "create_sketch", "params": {"plane": "XY"}},
    {"action": "add_rectangle", "params": {"sketch_id": "sk_0", "x1": -1, "y1": -1, "x2": 1, "y2": 1}}
  ],
  "requires_confirmation": true
}`

// Fixed per-event user-role content. The mapping is part of the protocol and
// must stay stable across releases.
const (
	confirmExecuteContent = "User confirms: proceed with execution"
	executionResultPrefix = "Execution result: "
	forceActionsContent   = "Convert the plan into actions now. Return JSON with status='ready_to_execute'."

	planApprovedContent = "User approves the plan. Convert the plan into actions now."

	forceDefaultsContent = "Convert the plan into actions now. Use defaults where unspecified: " +
		"plane=XY, position=(0,0), units=cm (convert mm by dividing by 10). " +
		"Return JSON with status='ready_to_execute', actions[], requires_confirmation=true."

	planConfirmQuestion = "Are you happy with this plan? Reply 'yes' to proceed, or describe changes."
)

// buildMessages assembles the model call: the protocol system prompt, the
// bounded replay window of prior turns, then the current event's content.
func buildMessages(turns []session.Turn, event protocol.Event, userText string, window int) []openaiapi.Message {
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	messages := make([]openaiapi.Message, 0, len(turns)+2)
	messages = append(messages, openaiapi.Message{Role: openaiapi.RoleSystem, Content: systemPrompt})
	for _, turn := range turns {
		role := openaiapi.RoleUser
		if turn.Role == session.RoleAssistant {
			role = openaiapi.RoleAssistant
		}
		messages = append(messages, openaiapi.Message{Role: role, Content: turn.Content})
	}

	var content string
	switch event {
	case protocol.EventConfirmExecute:
		content = confirmExecuteContent
	case protocol.EventExecutionResult:
		content = executionResultPrefix + userText
	case protocol.EventForceActions:
		content = forceActionsContent
	default:
		content = userText
	}
	return append(messages, openaiapi.Message{Role: openaiapi.RoleUser, Content: content})
}

func correctiveMessage(previousRaw string, callErr error) openaiapi.Message {
	return openaiapi.Message{
		Role: openaiapi.RoleSystem,
		Content: fmt.Sprintf("Your previous response was invalid: %v\nPrevious response:\n%s\n"+
			"Return ONLY one valid JSON object matching the schema: "+
			"status, assistant_message, questions, plan, actions, requires_confirmation.",
			callErr, previousRaw),
	}
}
