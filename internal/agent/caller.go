package agent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MannPATIRA/pascal-ai/internal/agent/openaiapi"
	"github.com/MannPATIRA/pascal-ai/internal/normalize"
	"github.com/MannPATIRA/pascal-ai/internal/protocol"
)

// Completer is the model backend surface the caller depends on.
type Completer interface {
	Complete(ctx context.Context, req openaiapi.CompletionRequest) (openaiapi.CompletionResponse, error)
}

// Caller drives the model through bounded retries. It never returns an error:
// every failure mode degrades to a safe clarification reply, because
// execution-relevant output must not be synthesized from a failed call.
type Caller struct {
	completer Completer
	maxTries  int
	backoff   time.Duration
}

// NewCaller wraps a model backend with the retry policy.
func NewCaller(completer Completer, maxTries int, backoff time.Duration) *Caller {
	if maxTries < 1 {
		maxTries = 1
	}
	return &Caller{completer: completer, maxTries: maxTries, backoff: backoff}
}

// Call executes the message sequence against the model. On a parse or
// validation failure the next attempt carries the previous raw output and the
// concrete error, so the model corrects against its own mistake rather than a
// generic reminder.
func (c *Caller) Call(ctx context.Context, messages []openaiapi.Message) protocol.Reply {
	var lastRaw string
	var lastErr error

	for attempt := 1; attempt <= c.maxTries; attempt++ {
		if attempt > 1 {
			messages = append(messages, correctiveMessage(lastRaw, lastErr))
			time.Sleep(c.backoff)
		}

		resp, err := c.completer.Complete(ctx, openaiapi.CompletionRequest{Messages: messages})
		if err != nil {
			lastRaw, lastErr = "", err
			log.Warn().Err(err).Int("attempt", attempt).Msg("model call failed")
			continue
		}

		reply, err := normalize.DecodeReply(resp.OutputText)
		if err != nil {
			lastRaw, lastErr = resp.OutputText, err
			log.Warn().Err(err).Int("attempt", attempt).Msg("model output rejected")
			continue
		}
		return reply
	}

	log.Error().Err(lastErr).Int("tries", c.maxTries).Msg("model retries exhausted, degrading to clarification")
	return fallbackReply()
}

func fallbackReply() protocol.Reply {
	return protocol.Reply{
		Status:           protocol.StatusNeedClarification,
		AssistantMessage: "I had trouble processing your request. Please restate it with specific details.",
		Questions: []string{
			"What exact sizes do you want (with units)?",
			"Which plane (XY, YZ, XZ)?",
			"Where should it be positioned?",
		},
		Plan:    []string{},
		Actions: []protocol.Action{},
	}
}
