package agent

import (
	"strings"

	"github.com/MannPATIRA/pascal-ai/internal/protocol"
)

// planToActions is a last-resort keyword guess over plan wording, used only
// when a reply insists it is ready but carries no actions and no forced model
// pass produced any. It emits default-sized geometry and makes no attempt to
// read dimensions out of the text.
func planToActions(plan []string) []protocol.Action {
	var actions []protocol.Action
	for _, step := range plan {
		lower := strings.ToLower(step)
		switch {
		case strings.Contains(lower, "sketch") && strings.Contains(lower, "xy"):
			actions = append(actions, protocol.Action{
				Name:   protocol.ActionCreateSketch,
				Params: map[string]any{"plane": "XY"},
			})
		case strings.Contains(lower, "rectangle") || strings.Contains(lower, "square"):
			actions = append(actions, protocol.Action{
				Name:   protocol.ActionAddRectangle,
				Params: map[string]any{"sketch_id": "sk_0", "x1": -1.0, "y1": -1.0, "x2": 1.0, "y2": 1.0},
			})
		case strings.Contains(lower, "circle"):
			actions = append(actions, protocol.Action{
				Name:   protocol.ActionAddCircle,
				Params: map[string]any{"sketch_id": "sk_0", "cx": 0.0, "cy": 0.0, "r": 1.0},
			})
		case strings.Contains(lower, "extrude"):
			actions = append(actions, protocol.Action{
				Name:   protocol.ActionExtrudeLastProfile,
				Params: map[string]any{"distance": 1.0, "operation": "NewBody"},
			})
		}
	}
	return protocol.FilterActions(actions)
}
