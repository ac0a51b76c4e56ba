package oracle

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var errNoJSON = errors.New("no JSON object in response")

// parseSelection extracts a Selection from raw model output. Models
// asked for strict JSON still wrap it in markdown fences or prose
// often enough that we carve out the outermost object first, then fall
// back to repairing it when plain unmarshalling fails.
func parseSelection(raw string) (*Selection, error) {
	carved, err := carveObject(raw)
	if err != nil {
		return nil, err
	}

	var sel Selection
	if json.Unmarshal([]byte(carved), &sel) == nil && sel.FilePath != "" {
		return &sel, nil
	}

	repaired, err := jsonrepair.JSONRepair(carved)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(repaired), &sel); err != nil {
		return nil, err
	}
	if sel.FilePath == "" {
		return nil, errors.New("selection missing file_path")
	}
	return &sel, nil
}

// carveObject strips markdown fences and surrounding prose, returning
// the text between the first '{' and the last '}'.
func carveObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}
