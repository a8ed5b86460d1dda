package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MannPATIRA/pascal-ai/internal/agent/openaiapi"
	"github.com/MannPATIRA/pascal-ai/internal/protocol"
	"github.com/MannPATIRA/pascal-ai/internal/session"
)

type fakeCompleter struct {
	responses []string
	calls     [][]openaiapi.Message
}

func (f *fakeCompleter) Complete(_ context.Context, req openaiapi.CompletionRequest) (openaiapi.CompletionResponse, error) {
	f.calls = append(f.calls, req.Messages)
	if len(f.responses) == 0 {
		return openaiapi.CompletionResponse{}, fmt.Errorf("no scripted response left")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return openaiapi.CompletionResponse{OutputText: next}, nil
}

type memStore struct {
	sessions map[string]session.Session
	commits  int
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]session.Session{}}
}

func (m *memStore) Load(_ context.Context, id string) (session.Session, error) {
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	return session.Session{ID: id}, nil
}

func (m *memStore) Commit(_ context.Context, sess session.Session, userTurn, assistantTurn session.Turn) error {
	prev := m.sessions[sess.ID]
	sess.Turns = append(prev.Turns, userTurn, assistantTurn)
	m.sessions[sess.ID] = sess
	m.commits++
	return nil
}

func newTestAgent(completer Completer, store Store) *Agent {
	return New(store, NewCaller(completer, 3, 0), 8)
}

func TestProcessEvent_ClearRequestYieldsExecutableActions(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{
		"status": "ready_to_execute",
		"assistant_message": "I will create a 2 cm square on XY and extrude it 1 cm.",
		"plan": ["1. Sketch on XY", "2. Add square", "3. Extrude"],
		"actions": [
			{"action": "create_sketch", "params": {"plane": "XY"}},
			{"action": "add_rectangle", "params": {"sketch_id": "sk_0", "x1": -1, "y1": -1, "x2": 1, "y2": 1}},
			{"action": "extrude_last_profile", "params": {"distance": 1, "operation": "NewBody"}}
		],
		"requires_confirmation": true
	}`}}
	store := newMemStore()
	a := newTestAgent(completer, store)

	reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventUserMessage,
		"make a 2 cm square on XY and extrude 1 cm")
	require.NoError(t, err)

	assert.Equal(t, protocol.StatusReadyToExecute, reply.Status)
	assert.True(t, reply.RequiresConfirmation)
	require.Len(t, reply.Actions, 3)
	assert.Equal(t, protocol.ActionCreateSketch, reply.Actions[0].Name)
	assert.Equal(t, "XY", reply.Actions[0].Params["plane"])
	assert.Equal(t, protocol.ActionAddRectangle, reply.Actions[1].Name)
	assert.Equal(t, protocol.ActionExtrudeLastProfile, reply.Actions[2].Name)

	// One user turn and one assistant turn recorded.
	sess := store.sessions["s1"]
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, session.RoleUser, sess.Turns[0].Role)
	assert.Equal(t, session.RoleAssistant, sess.Turns[1].Role)
	assert.Equal(t, protocol.StatusReadyToExecute, sess.LastStatus)
	assert.Len(t, sess.LastActions, 3)
}

func TestProcessEvent_ConfirmWithNoActionsAnywhereHalts(t *testing.T) {
	// Model yields no actions on the initial call and on the forced pass.
	noActions := `{"status":"planned","assistant_message":"still planning","plan":["1. think"]}`
	completer := &fakeCompleter{responses: []string{noActions, noActions}}
	store := newMemStore()
	store.sessions["s1"] = session.Session{ID: "s1", LastStatus: protocol.StatusPlanned}
	a := newTestAgent(completer, store)

	reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventConfirmExecute, "")
	require.NoError(t, err)

	assert.Equal(t, protocol.StatusNeedClarification, reply.Status)
	assert.NotEmpty(t, reply.Questions)
	assert.Empty(t, reply.Actions)
	// Initial call plus one forced conversion pass.
	assert.Len(t, completer.calls, 2)
}

func TestProcessEvent_ConfirmRecoversPersistedActions(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"status":"planned","assistant_message":"ok","plan":[]}`,
	}}
	store := newMemStore()
	store.sessions["s1"] = session.Session{
		ID:         "s1",
		LastStatus: protocol.StatusReadyToExecute,
		LastActions: []protocol.Action{
			{Name: protocol.ActionAddCircle, Params: map[string]any{
				"sketch_id": "sk_0", "cx": 0.0, "cy": 0.0, "r": 1.0,
			}},
		},
	}
	a := newTestAgent(completer, store)

	reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventConfirmExecute, "")
	require.NoError(t, err)

	assert.Equal(t, protocol.StatusReadyToExecute, reply.Status)
	assert.True(t, reply.RequiresConfirmation)
	require.Len(t, reply.Actions, 1)
	assert.Equal(t, protocol.ActionAddCircle, reply.Actions[0].Name)
}

func TestProcessEvent_DoneClaimIsDowngraded(t *testing.T) {
	t.Run("with actions becomes ready", func(t *testing.T) {
		completer := &fakeCompleter{responses: []string{"```json\n" + `{
			"status": "done",
			"assistant_message": "all done",
			"actions": [{"action": "create_sketch", "params": {"plane": "XY"}}]
		}` + "\n```"}}
		a := newTestAgent(completer, newMemStore())

		reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventUserMessage, "square please")
		require.NoError(t, err)
		assert.Equal(t, protocol.StatusReadyToExecute, reply.Status)
		assert.True(t, reply.RequiresConfirmation)
	})

	t.Run("without actions becomes planned", func(t *testing.T) {
		completer := &fakeCompleter{responses: []string{
			`{"status":"done","assistant_message":"all done","plan":["1. something"]}`,
		}}
		a := newTestAgent(completer, newMemStore())

		reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventUserMessage, "square please")
		require.NoError(t, err)
		assert.Equal(t, protocol.StatusPlanned, reply.Status)
	})
}

func TestProcessEvent_PlanApprovalInjectsConversionDirective(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{
		"status": "ready_to_execute",
		"assistant_message": "converting",
		"actions": [{"action": "create_sketch", "params": {"plane": "XY"}}],
		"requires_confirmation": true
	}`}}
	store := newMemStore()
	store.sessions["s1"] = session.Session{ID: "s1", LastStatus: protocol.StatusPlanned}
	a := newTestAgent(completer, store)

	_, err := a.ProcessEvent(context.Background(), "s1", protocol.EventUserMessage, "yes")
	require.NoError(t, err)

	require.Len(t, completer.calls, 1)
	messages := completer.calls[0]
	last := messages[len(messages)-1]
	assert.Equal(t, openaiapi.RoleUser, last.Role)
	assert.Equal(t, planApprovedContent, last.Content)
}

func TestProcessEvent_ExecutionResultMayComplete(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"status":"done","assistant_message":"Created the square and extruded it."}`,
	}}
	a := newTestAgent(completer, newMemStore())

	reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventExecutionResult,
		`{"ok": true, "detail": "3 actions applied"}`)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusDone, reply.Status)
}

func TestProcessEvent_PlannedAlwaysOffersConfirmationPath(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"status":"planned","assistant_message":"here is the plan","plan":["1. sketch"]}`,
	}}
	a := newTestAgent(completer, newMemStore())

	reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventUserMessage, "a box maybe")
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusPlanned, reply.Status)
	require.NotEmpty(t, reply.Questions)
	assert.Contains(t, strings.ToLower(strings.Join(reply.Questions, " ")), "happy with this plan")
}

func TestProcessEvent_ClarificationNeverLeavesUserStranded(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"status":"need_clarification","assistant_message":"Which plane should the sketch go on?"}`,
	}}
	a := newTestAgent(completer, newMemStore())

	reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventUserMessage, "make something")
	require.NoError(t, err)
	require.Len(t, reply.Questions, 1)
	assert.Equal(t, "Which plane should the sketch go on?", reply.Questions[0])
}

func TestProcessEvent_UnsupportedEvent(t *testing.T) {
	completer := &fakeCompleter{}
	store := newMemStore()
	a := newTestAgent(completer, store)

	reply, err := a.ProcessEvent(context.Background(), "s1", protocol.Event("teleport"), "")
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusNeedClarification, reply.Status)
	assert.Contains(t, reply.AssistantMessage, "teleport")
	assert.Empty(t, completer.calls)
	// Turn bookkeeping still happens.
	assert.Equal(t, 1, store.commits)
}

func TestProcessEvent_EmptyActionsKeepPreviousPersistedList(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"status":"need_clarification","assistant_message":"what size?","questions":["What size?"]}`,
	}}
	store := newMemStore()
	existing := []protocol.Action{
		{Name: protocol.ActionCreateSketch, Params: map[string]any{"plane": "XY"}},
	}
	store.sessions["s1"] = session.Session{ID: "s1", LastStatus: protocol.StatusReadyToExecute, LastActions: existing}
	a := newTestAgent(completer, store)

	_, err := a.ProcessEvent(context.Background(), "s1", protocol.EventUserMessage, "hmm actually")
	require.NoError(t, err)

	sess := store.sessions["s1"]
	require.Len(t, sess.LastActions, 1)
	assert.Equal(t, protocol.ActionCreateSketch, sess.LastActions[0].Name)
}

func TestProcessEvent_AssistantTurnIsSerializedReply(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"status":"planned","assistant_message":"plan ready","plan":["1. sketch"]}`,
	}}
	store := newMemStore()
	a := newTestAgent(completer, store)

	reply, err := a.ProcessEvent(context.Background(), "s1", protocol.EventUserMessage, "a box")
	require.NoError(t, err)

	sess := store.sessions["s1"]
	require.Len(t, sess.Turns, 2)
	var recorded protocol.Reply
	require.NoError(t, json.Unmarshal([]byte(sess.Turns[1].Content), &recorded))
	assert.Equal(t, reply.Status, recorded.Status)
	assert.Equal(t, reply.AssistantMessage, recorded.AssistantMessage)
}

func TestIsConfirmation(t *testing.T) {
	confirmed := []string{
		"yes", "Y", "ok", "OKAY", "sure", "proceed", "confirm",
		"go ahead", "looks good", "sounds good", "do it", "Yes please", "ok then",
	}
	for _, text := range confirmed {
		assert.True(t, isConfirmation(text), "expected %q to confirm", text)
	}

	denied := []string{"no", "make it bigger", "cancel", "hold on", "not yet", ""}
	for _, text := range denied {
		assert.False(t, isConfirmation(text), "expected %q not to confirm", text)
	}
}

func TestPlanToActions(t *testing.T) {
	plan := []string{
		"1. Create a sketch on the XY plane",
		"2. Add a square centered at the origin",
		"3. Extrude the profile",
	}
	actions := planToActions(plan)
	require.Len(t, actions, 3)
	assert.Equal(t, protocol.ActionCreateSketch, actions[0].Name)
	assert.Equal(t, protocol.ActionAddRectangle, actions[1].Name)
	assert.Equal(t, protocol.ActionExtrudeLastProfile, actions[2].Name)

	assert.Empty(t, planToActions([]string{"1. Think about life"}))
}
