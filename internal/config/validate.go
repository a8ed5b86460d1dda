package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

// ValidateSettings checks raw settings, as read from the config file, against
// the embedded schema before they are unmarshaled into Config. Unknown keys
// are rejected so a typo like "modle" fails loudly instead of silently
// falling back to defaults.
func ValidateSettings(settings map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(settings),
	)
	if err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		problems = append(problems, resultErr.String())
	}
	sort.Strings(problems) // deterministic error text

	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}
