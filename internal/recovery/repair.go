package recovery

import (
	"strings"
	"unicode"

	"github.com/kaptinlin/jsonrepair"
)

// RepairState is the working copy handed to each repair rule.
type RepairState struct {
	Text  string
	Open  int
	Close int
}

func newRepairState(text string) RepairState {
	return RepairState{
		Text:  text,
		Open:  strings.Count(text, "{"),
		Close: strings.Count(text, "}"),
	}
}

// Missing returns how many closing braces the text lacks.
func (s RepairState) Missing() int {
	if s.Open > s.Close {
		return s.Open - s.Close
	}
	return 0
}

func (s RepairState) trimmed() string {
	return strings.TrimRightFunc(s.Text, unicode.IsSpace)
}

type repairRule struct {
	name  string
	apply func(RepairState) (string, bool)
}

// Rules run in order; the first candidate that passes Valid wins.
var repairRules = []repairRule{
	{name: "quote-cut", apply: quoteCut},
	{name: "append-braces", apply: appendBraces},
	{name: "quote-before-brace", apply: quoteBeforeBrace},
	{name: "quote-brace", apply: quoteBrace},
	{name: "close-structures", apply: closeStructures},
	{name: "jsonrepair", apply: libraryRepair},
}

// Repair returns text completed into a valid object when one of the repair rules
// manages it, and text unchanged otherwise. Valid input is returned as is.
func Repair(text string) string {
	out, _ := RepairRule(text)
	return out
}

// RepairRule is Repair that also names the rule that produced the result.
// The rule is empty when text was already valid or could not be repaired.
func RepairRule(text string) (out string, rule string) {
	if Valid(text) {
		return text, ""
	}
	defer func() {
		if r := recover(); r != nil {
			out, rule = text, ""
		}
	}()

	state := newRepairState(text)
	for _, r := range repairRules {
		candidate, ok := r.apply(state)
		if ok && Valid(candidate) {
			return candidate, r.name
		}
	}
	return text, ""
}

// quoteCut handles a string value cut right after its opening quote.
func quoteCut(s RepairState) (string, bool) {
	n := s.Missing()
	text := s.trimmed()
	if n == 0 || !strings.HasSuffix(text, `"`) {
		return "", false
	}
	return text + ".\"\n" + strings.Repeat("}", n), true
}

func appendBraces(s RepairState) (string, bool) {
	n := s.Missing()
	if n == 0 {
		return "", false
	}
	return s.Text + strings.Repeat("}", n), true
}

// quoteBeforeBrace handles a string value cut mid-sentence: the closing quote
// goes in front of the final brace.
func quoteBeforeBrace(s RepairState) (string, bool) {
	text := s.trimmed() + strings.Repeat("}", s.Missing())
	if !strings.HasSuffix(text, "}") {
		return "", false
	}
	return text[:len(text)-1] + `"}`, true
}

func quoteBrace(s RepairState) (string, bool) {
	n := s.Missing()
	if n == 0 {
		n = 1
	}
	return s.trimmed() + `"` + strings.Repeat("}", n), true
}

// closeStructures closes whatever is still open at the end of the text: a string,
// a dangling key or value separator, then every array and object in nesting order.
func closeStructures(s RepairState) (string, bool) {
	text := s.trimmed()
	var (
		stack       []byte
		inString    bool
		escaped     bool
		keyPos      bool
		stringIsKey bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
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
			stringIsKey = keyPos && len(stack) > 0 && stack[len(stack)-1] == '}'
			keyPos = false
		case '{':
			stack = append(stack, '}')
			keyPos = true
		case '[':
			stack = append(stack, ']')
			keyPos = false
		case ',':
			keyPos = len(stack) > 0 && stack[len(stack)-1] == '}'
		case ':':
			keyPos = false
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", false
			}
			stack = stack[:len(stack)-1]
			keyPos = false
		}
	}
	if len(stack) == 0 {
		return "", false
	}

	out := text
	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out += `"`
		if stringIsKey {
			out += ": null"
		}
	} else {
		switch {
		case strings.HasSuffix(out, ","):
			out = strings.TrimRightFunc(strings.TrimSuffix(out, ","), unicode.IsSpace)
		case strings.HasSuffix(out, ":"):
			out += " null"
		}
	}

	var b strings.Builder
	b.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String(), true
}

func libraryRepair(s RepairState) (string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(s.Text), "{") {
		return "", false
	}
	out, err := jsonrepair.JSONRepair(s.Text)
	if err != nil {
		return "", false
	}
	return out, true
}
