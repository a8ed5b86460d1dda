package agent

import "strings"

// confirmVocabulary is the closed set of user phrases treated as plan
// approval. Matching is case-insensitive.
var confirmVocabulary = map[string]bool{
	"yes":         true,
	"y":           true,
	"ok":          true,
	"okay":        true,
	"sure":        true,
	"proceed":     true,
	"confirm":     true,
	"go ahead":    true,
	"looks good":  true,
	"sounds good": true,
	"do it":       true,
}

// isConfirmation reports whether user text is an affirmative confirmation.
func isConfirmation(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if confirmVocabulary[text] {
		return true
	}
	return strings.HasPrefix(text, "yes") || strings.HasPrefix(text, "ok")
}
