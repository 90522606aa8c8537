package recovery

import "strings"

// Locate splits text at its first '{'. The trimmed prose before it is the summary,
// the rest is the candidate object. ok is false when text has no '{' at all.
func Locate(text string) (summary, candidate string, ok bool) {
	idx := strings.IndexByte(text, '{')
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(text[:idx]), text[idx:], true
}

// Balanced cuts candidate right after the brace that closes its first top-level
// object, dropping trailing commentary or a closing code fence.
// Braces inside string values are ignored.
func Balanced(candidate string) (string, bool) {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
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
				return candidate[:i+1], true
			}
			if depth < 0 {
				return "", false
			}
		}
	}
	return "", false
}
