package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MannPATIRA/pascal-ai/internal/protocol"
	"github.com/MannPATIRA/pascal-ai/internal/session"
)

type eventPayload struct {
	Event       string `json:"event"`
	UserMessage string `json:"user_message"`
}

func eventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "event <session-id> <payload|->",
		Short:        "Process one conversation event and print the reply as JSON",
		Long:         "Process one conversation event. The payload is a JSON object {event, user_message}, given inline, as '-' for stdin, or as a path to a .json file.",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]

			payload, err := readPayload(args[1])
			if err != nil {
				// The shell consumes stdout; even a bad payload gets a
				// well-formed reply there.
				printReply(malformedPayloadReply(err))
				printErr(err)
				os.Exit(3)
			}

			event := protocol.Event(payload.Event)
			if payload.Event == "" {
				event = protocol.EventUserMessage
			}
			userText := strings.TrimSpace(payload.UserMessage)

			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}
			storeDB, closeFn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			store := session.NewStore(storeDB)
			a, err := buildAgent(cfg, store)
			if err != nil {
				return err
			}

			reply, err := a.ProcessEvent(cmd.Context(), sessionID, event, userText)
			if err != nil {
				// Even a storage failure must leave the shell holding a
				// well-formed reply on stdout, never a bare error.
				printReply(agentErrorReply(err))
				printErr(err)
				os.Exit(1)
			}
			printReply(reply)
			return nil
		},
	}
	return cmd
}

func readPayload(arg string) (eventPayload, error) {
	var raw []byte
	switch {
	case arg == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return eventPayload{}, fmt.Errorf("read stdin: %w", err)
		}
		raw = data
	case strings.HasSuffix(arg, ".json"):
		data, err := os.ReadFile(arg)
		if err != nil {
			return eventPayload{}, fmt.Errorf("read payload file: %w", err)
		}
		raw = data
	default:
		raw = []byte(arg)
	}

	var payload eventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return eventPayload{}, fmt.Errorf("parse payload: %w", err)
	}
	return payload, nil
}

func printReply(reply protocol.Reply) {
	out, err := json.Marshal(reply)
	if err != nil {
		printErr(err)
		return
	}
	fmt.Println(string(out))
}

func agentErrorReply(err error) protocol.Reply {
	return protocol.Reply{
		Status:           protocol.StatusNeedClarification,
		AssistantMessage: fmt.Sprintf("Agent error: %v", err),
		Questions:        []string{"Please try again, or restate your request with specific details."},
		Plan:             []string{},
		Actions:          []protocol.Action{},
	}
}

func malformedPayloadReply(err error) protocol.Reply {
	return protocol.Reply{
		Status:           protocol.StatusNeedClarification,
		AssistantMessage: fmt.Sprintf("Could not parse payload: %v", err),
		Questions:        []string{"Please resend the event as JSON with fields event and user_message."},
		Plan:             []string{},
		Actions:          []protocol.Action{},
	}
}
