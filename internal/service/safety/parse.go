package safety

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object in classifier output")

// extractJSONObject pulls the outermost JSON object out of raw model output,
// tolerating prose or code fences around it.
func extractJSONObject(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, errNoJSONObject
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, errNoJSONObject
	}
	return parsed, nil
}
