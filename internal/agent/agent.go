// Package agent owns the conversation-to-action state machine: it drives the
// model through a clarify, plan, confirm, execute, report lifecycle and gates
// every transition the model claims against what the protocol allows.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MannPATIRA/pascal-ai/internal/agent/openaiapi"
	"github.com/MannPATIRA/pascal-ai/internal/logging"
	"github.com/MannPATIRA/pascal-ai/internal/protocol"
	"github.com/MannPATIRA/pascal-ai/internal/session"
)

// Store is the persistence port the orchestrator writes session state
// through. Satisfied by *session.Store.
type Store interface {
	Load(ctx context.Context, id string) (session.Session, error)
	Commit(ctx context.Context, sess session.Session, userTurn, assistantTurn session.Turn) error
}

// Agent processes inbound events for sessions. It holds no per-session state
// itself; everything is reconstructed from the store on every event.
type Agent struct {
	store  Store
	caller *Caller
	window int
}

// New constructs the orchestrator. window bounds how many prior turns are
// replayed into each model call.
func New(store Store, caller *Caller, window int) *Agent {
	if window < 1 {
		window = 8
	}
	return &Agent{store: store, caller: caller, window: window}
}

// ProcessEvent runs one turn of the conversation protocol: load state, call
// the model, repair and gate the reply, persist, return. The returned error
// covers persistence failures only; model failures degrade inside the reply.
func (a *Agent) ProcessEvent(ctx context.Context, sessionID string, event protocol.Event, userText string) (protocol.Reply, error) {
	logger := logging.ForSession(sessionID)

	sess, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("load session: %w", err)
	}

	if !event.IsValid() {
		reply := unsupportedEventReply(event)
		if err := a.persist(ctx, sess, userText, reply); err != nil {
			return protocol.Reply{}, err
		}
		return reply, nil
	}

	messages := buildMessages(sess.Turns, event, userText, a.window)

	// Plan approval is detected here, not left for the model to infer.
	planConfirm := sess.LastStatus == protocol.StatusPlanned &&
		(event == protocol.EventConfirmExecute ||
			(event == protocol.EventUserMessage && isConfirmation(userText)))
	if planConfirm {
		messages = append(messages, openaiapi.Message{Role: openaiapi.RoleUser, Content: planApprovedContent})
	}

	reply := a.caller.Call(ctx, messages)

	if planConfirm && !readyWithActions(reply) {
		logger.Debug().Str("status", reply.Status.String()).Msg("plan approved but no actions, forcing conversion")
		forced := a.caller.Call(ctx, append(messages,
			openaiapi.Message{Role: openaiapi.RoleUser, Content: forceDefaultsContent}))
		if len(forced.Actions) > 0 {
			reply = forced
		}
	}

	if event == protocol.EventConfirmExecute && len(reply.Actions) == 0 {
		logger.Debug().Msg("confirmed execution carries no actions, recovering from last persisted list")
		reply = recoverConfirmActions(reply, sess)
	}

	reply = gate(event, reply)

	if err := a.persist(ctx, sess, userText, reply); err != nil {
		return protocol.Reply{}, err
	}

	logger.Info().
		Str("event", event.String()).
		Str("status", reply.Status.String()).
		Int("actions", len(reply.Actions)).
		Msg("event processed")
	return reply, nil
}

// recoverConfirmActions handles a confirmed execution that arrived with no
// actions: fall back to the session's last persisted action list, and if that
// is empty too, halt with a clarification so the caller never executes an
// empty list.
func recoverConfirmActions(reply protocol.Reply, sess session.Session) protocol.Reply {
	if len(sess.LastActions) > 0 {
		reply.Actions = protocol.FilterActions(sess.LastActions)
		if len(reply.Actions) > 0 {
			reply.Status = protocol.StatusReadyToExecute
			reply.RequiresConfirmation = true
			return reply
		}
	}
	reply.Status = protocol.StatusNeedClarification
	reply.RequiresConfirmation = false
	reply.Actions = []protocol.Action{}
	reply.Questions = []string{
		"What exact sizes do you want (with units)?",
		"Which plane (XY, YZ, XZ)?",
		"Where should it be positioned?",
	}
	if reply.AssistantMessage == "" {
		reply.AssistantMessage = "I do not have a concrete action list to execute yet. Please provide the missing specifics."
	}
	return reply
}

// gate enforces the transition rules regardless of what the model asserted.
func gate(event protocol.Event, reply protocol.Reply) protocol.Reply {
	// done is only reachable through a reported execution.
	if event != protocol.EventExecutionResult &&
		(reply.Status == protocol.StatusDone || reply.Status == protocol.StatusExecuting) {
		if len(reply.Actions) > 0 {
			reply.Status = protocol.StatusReadyToExecute
		} else {
			reply.Status = protocol.StatusPlanned
		}
	}
	// executing is caller bookkeeping, never a terminal reply from this core.
	if event == protocol.EventExecutionResult && reply.Status == protocol.StatusExecuting {
		reply.Status = protocol.StatusDone
	}

	if reply.Status == protocol.StatusReadyToExecute && len(reply.Actions) == 0 {
		if actions := planToActions(reply.Plan); len(actions) > 0 {
			reply.Actions = actions
		} else {
			reply.Status = protocol.StatusPlanned
		}
	}

	if reply.Status == protocol.StatusReadyToExecute {
		reply.RequiresConfirmation = true
	}

	if reply.Status == protocol.StatusPlanned && !hasPlanConfirmQuestion(reply.Questions) {
		reply.Questions = append(reply.Questions, planConfirmQuestion)
	}

	if reply.Status == protocol.StatusNeedClarification && len(reply.Questions) == 0 {
		reply.Questions = []string{synthesizeQuestion(reply.AssistantMessage)}
	}

	if reply.Questions == nil {
		reply.Questions = []string{}
	}
	if reply.Plan == nil {
		reply.Plan = []string{}
	}
	if reply.Actions == nil {
		reply.Actions = []protocol.Action{}
	}
	return reply
}

func (a *Agent) persist(ctx context.Context, sess session.Session, userText string, reply protocol.Reply) error {
	sess.LastStatus = reply.Status
	if len(reply.Actions) > 0 {
		sess.LastActions = reply.Actions
	}

	replyJSON, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	userTurn := session.Turn{Role: session.RoleUser, Content: userText}
	assistantTurn := session.Turn{Role: session.RoleAssistant, Content: string(replyJSON)}
	if err := a.store.Commit(ctx, sess, userTurn, assistantTurn); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func readyWithActions(reply protocol.Reply) bool {
	return reply.Status == protocol.StatusReadyToExecute && len(reply.Actions) > 0
}

func hasPlanConfirmQuestion(questions []string) bool {
	for _, q := range questions {
		lower := strings.ToLower(q)
		if strings.Contains(lower, "happy with this plan") || strings.Contains(lower, "reply 'yes'") {
			return true
		}
	}
	return false
}

// synthesizeQuestion guarantees a clarification reply always gives the user
// something actionable to answer.
func synthesizeQuestion(assistantMessage string) string {
	msg := strings.TrimSpace(assistantMessage)
	if strings.HasSuffix(msg, "?") {
		return msg
	}
	return "What size, plane, and position do you want?"
}

func unsupportedEventReply(event protocol.Event) protocol.Reply {
	return protocol.Reply{
		Status:           protocol.StatusNeedClarification,
		AssistantMessage: fmt.Sprintf("Unsupported event %q.", event),
		Questions:        []string{"Did you mean user_message, confirm_execute, execution_result, or force_actions?"},
		Plan:             []string{},
		Actions:          []protocol.Action{},
	}
}
