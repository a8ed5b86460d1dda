// Package normalize turns noisy model output into a schema-admissible reply
// document: it strips code fences, slices out the first balanced JSON object,
// repairs near-JSON when strict parsing fails, and coerces malformed fields
// to safe defaults before strict validation.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"

	"github.com/MannPATIRA/pascal-ai/internal/protocol"
)

var fenceRe = regexp.MustCompile("(?is)^```(?:json)?\\s*|\\s*```$")

// ExtractJSON slices the first balanced JSON object out of text that may be
// wrapped in code fences or surrounded by prose. When no balanced object is
// found the stripped text is returned unchanged and ok is false, so the
// subsequent parse fails explicitly rather than silently.
func ExtractJSON(text string) (string, bool) {
	stripped := fenceRe.ReplaceAllString(strings.TrimSpace(text), "")

	start := strings.IndexByte(stripped, '{')
	if start < 0 {
		return stripped, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(stripped); i++ {
		c := stripped[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return stripped[start : i+1], true
			}
		}
	}
	return stripped, false
}

// DecodeReply parses raw model output into a fully defaulted, schema-valid
// reply. A parse failure is returned to the caller so the retry loop can
// decide to retry with corrective feedback.
func DecodeReply(raw string) (protocol.Reply, error) {
	text, _ := ExtractJSON(raw)

	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return protocol.Reply{}, fmt.Errorf("invalid JSON: %w", err)
		}
		if err2 := json.Unmarshal([]byte(repaired), &doc); err2 != nil {
			return protocol.Reply{}, fmt.Errorf("invalid JSON: %w", err)
		}
		log.Debug().Msg("model output required JSON repair")
	}

	normalized := applyDefaults(doc)
	if err := protocol.ValidateReply(normalized); err != nil {
		return protocol.Reply{}, err
	}

	return buildReply(normalized), nil
}

// applyDefaults coerces a decoded document to the reply shape: missing status
// becomes need_clarification, string-typed lists are split on newlines,
// string-typed actions are attempted as embedded JSON, and anything failing
// action validation is dropped.
func applyDefaults(doc map[string]any) map[string]any {
	status, _ := doc["status"].(string)
	if !protocol.Status(status).IsValid() {
		status = string(protocol.StatusNeedClarification)
	}

	message, _ := doc["assistant_message"].(string)
	requires, _ := doc["requires_confirmation"].(bool)

	actions := coerceActions(doc["actions"])
	admitted := protocol.FilterActions(actions)

	out := map[string]any{
		"status":                status,
		"assistant_message":     message,
		"questions":             coerceStringList(doc["questions"]),
		"plan":                  coerceStringList(doc["plan"]),
		"actions":               actionDocs(admitted),
		"requires_confirmation": requires,
	}
	return out
}

func coerceStringList(v any) []string {
	switch val := v.(type) {
	case string:
		var out []string
		for _, line := range strings.FieldsFunc(val, func(r rune) bool { return r == '\n' || r == '\r' }) {
			if s := strings.TrimSpace(line); s != "" {
				out = append(out, s)
			}
		}
		if out == nil {
			out = []string{}
		}
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s := strings.TrimSpace(fmt.Sprint(item))
			if s != "" && item != nil {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

func coerceActions(v any) []protocol.Action {
	switch val := v.(type) {
	case []any:
		out := make([]protocol.Action, 0, len(val))
		for _, item := range val {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["action"].(string)
			if name == "" {
				continue
			}
			params, _ := m["params"].(map[string]any)
			out = append(out, protocol.Action{Name: name, Params: params})
		}
		return out
	case string:
		// Some models serialize the actions array as an embedded JSON string.
		var candidates []protocol.Action
		if err := json.Unmarshal([]byte(val), &candidates); err != nil {
			return nil
		}
		return candidates
	default:
		return nil
	}
}

func actionDocs(actions []protocol.Action) []map[string]any {
	out := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		out = append(out, map[string]any{"action": a.Name, "params": a.Params})
	}
	return out
}

func buildReply(doc map[string]any) protocol.Reply {
	reply := protocol.Reply{
		Status:               protocol.Status(doc["status"].(string)),
		AssistantMessage:     doc["assistant_message"].(string),
		Questions:            doc["questions"].([]string),
		Plan:                 doc["plan"].([]string),
		RequiresConfirmation: doc["requires_confirmation"].(bool),
	}
	for _, m := range doc["actions"].([]map[string]any) {
		reply.Actions = append(reply.Actions, protocol.Action{
			Name:   m["action"].(string),
			Params: m["params"].(map[string]any),
		})
	}
	if reply.Actions == nil {
		reply.Actions = []protocol.Action{}
	}
	return reply
}
