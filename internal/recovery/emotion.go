package recovery

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Labels are compared after foldLabel, so "Tích cực", "TICH CUC" and "tich cuc" match.
var emotionLabels = map[string]Emotion{
	"positive":   EmotionPositive,
	"tich cuc":   EmotionPositive,
	"neutral":    EmotionNeutral,
	"trung tinh": EmotionNeutral,
	"negative":   EmotionNegative,
	"tieu cuc":   EmotionNegative,
}

// ParseEmotion maps an English or Vietnamese sentiment label onto an Emotion.
// Unknown labels are neutral.
func ParseEmotion(label string) Emotion {
	if e, ok := emotionLabels[foldLabel(label)]; ok {
		return e
	}
	return EmotionNeutral
}

var dStroke = strings.NewReplacer("đ", "d", "Đ", "d")

func foldLabel(s string) string {
	s = dStroke.Replace(strings.ToLower(s))
	// transform chains keep state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(folded), " ")
}
