// Package protocol defines the wire contract between the conversation core,
// the add-in shell, and the CAD host: events in, replies out, and the closed
// set of actions the host is allowed to execute.
package protocol

// Status is the protocol-lifecycle tag on a Reply.
type Status string

const (
	StatusNeedClarification Status = "need_clarification"
	StatusPlanned           Status = "planned"
	StatusReadyToExecute    Status = "ready_to_execute"
	StatusExecuting         Status = "executing"
	StatusDone              Status = "done"
)

// IsValid reports whether the status is a recognized lifecycle value.
func (s Status) IsValid() bool {
	switch s {
	case StatusNeedClarification, StatusPlanned, StatusReadyToExecute, StatusExecuting, StatusDone:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the turn's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

func (s Status) String() string {
	return string(s)
}

// Event names an inbound occurrence the orchestrator reacts to.
type Event string

const (
	EventUserMessage     Event = "user_message"
	EventConfirmExecute  Event = "confirm_execute"
	EventExecutionResult Event = "execution_result"
	EventForceActions    Event = "force_actions"
)

// IsValid reports whether the event is one the orchestrator handles.
func (e Event) IsValid() bool {
	switch e {
	case EventUserMessage, EventConfirmExecute, EventExecutionResult, EventForceActions:
		return true
	default:
		return false
	}
}

func (e Event) String() string {
	return string(e)
}
