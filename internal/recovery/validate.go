package recovery

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Valid reports whether text is exactly one well-formed JSON object.
// Leading and trailing whitespace is allowed; anything else after the object is not.
func Valid(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// decodeObject parses text that already passed Valid. Numbers are kept as json.Number
// so scores never go through a binary float.
func decodeObject(text string) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(text))))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
