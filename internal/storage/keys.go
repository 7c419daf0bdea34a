package storage

import (
	"encoding/json"
	"fmt"
)

// extractKeys pulls the indexed fields out of a JSON document. Missing and
// null fields produce no keys.
func extractKeys(doc []byte, indexed []string) (map[string][]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}

	keys := make(map[string][]string, len(indexed))
	for _, name := range indexed {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			keys[name] = []string{single}
			continue
		}
		var many []string
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, fmt.Errorf("indexed field %q must be a string or a list of strings", name)
		}
		keys[name] = many
	}
	return keys, nil
}

func containsAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
