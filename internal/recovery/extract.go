package recovery

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Extract maps a parsed analysis object onto a Record. It never fails: a field that
// is missing or has the wrong type gets that field's default.
// The returned record has no summary and reports PathStrict.
func Extract(obj map[string]any) Record {
	rec := defaultRecord(PathStrict)
	rec.ComplianceScore = scoreValue(obj["compliance_score"])
	rec.Violations = stringList(obj["violations"])
	rec.Recommendations = stringList(obj["recommendations"])
	if v, ok := obj["detailed_analysis"].(string); ok {
		rec.DetailedAnalysis = v
	}
	if v, ok := obj["customer_emotion"].(string); ok {
		rec.CustomerEmotion = ParseEmotion(v)
	}
	if v, ok := obj["emotion_details"].(string); ok {
		rec.EmotionDetails = v
	}
	return rec
}

func scoreValue(v any) decimal.Decimal {
	var raw string
	switch n := v.(type) {
	case json.Number:
		raw = n.String()
	case string:
		raw = strings.TrimSpace(n)
	case float64:
		raw = strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return clampScore(decimal.NewFromInt(int64(n)))
	default:
		return decimal.Zero
	}
	score, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return clampScore(score)
}

func stringList(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		var s string
		switch t := item.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
