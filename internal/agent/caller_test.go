package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MannPATIRA/pascal-ai/internal/agent/openaiapi"
	"github.com/MannPATIRA/pascal-ai/internal/protocol"
)

func TestCallerRetriesWithCorrectiveFeedback(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		"I'd be happy to help! Let me think about that...",
		`{"status":"planned","assistant_message":"plan","plan":["1. sketch"]}`,
	}}
	caller := NewCaller(completer, 3, 0)

	reply := caller.Call(context.Background(), []openaiapi.Message{
		{Role: openaiapi.RoleSystem, Content: "protocol"},
		{Role: openaiapi.RoleUser, Content: "a box"},
	})

	assert.Equal(t, protocol.StatusPlanned, reply.Status)
	require.Len(t, completer.calls, 2)

	// The second attempt carries the previous raw output and the concrete error.
	second := completer.calls[1]
	corrective := second[len(second)-1]
	assert.Equal(t, openaiapi.RoleSystem, corrective.Role)
	assert.Contains(t, corrective.Content, "invalid JSON")
	assert.Contains(t, corrective.Content, "I'd be happy to help!")
}

func TestCallerDegradesToClarificationAfterExhaustion(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"garbage", "more garbage", "still garbage"}}
	caller := NewCaller(completer, 3, 0)

	reply := caller.Call(context.Background(), []openaiapi.Message{
		{Role: openaiapi.RoleUser, Content: "a box"},
	})

	assert.Equal(t, protocol.StatusNeedClarification, reply.Status)
	assert.NotEmpty(t, reply.Questions)
	assert.Empty(t, reply.Actions)
	assert.Len(t, completer.calls, 3)
}

func TestCallerSurvivesTransportErrors(t *testing.T) {
	completer := &erroringCompleter{
		failures: 1,
		then:     `{"status":"planned","assistant_message":"plan","plan":["1. sketch"]}`,
	}
	caller := NewCaller(completer, 3, 0)

	reply := caller.Call(context.Background(), []openaiapi.Message{
		{Role: openaiapi.RoleUser, Content: "a box"},
	})
	assert.Equal(t, protocol.StatusPlanned, reply.Status)
	assert.Equal(t, 2, completer.calls)
}

type erroringCompleter struct {
	failures int
	then     string
	calls    int
}

func (e *erroringCompleter) Complete(_ context.Context, _ openaiapi.CompletionRequest) (openaiapi.CompletionResponse, error) {
	e.calls++
	if e.calls <= e.failures {
		return openaiapi.CompletionResponse{}, fmt.Errorf("connection reset")
	}
	return openaiapi.CompletionResponse{OutputText: e.then}, nil
}
