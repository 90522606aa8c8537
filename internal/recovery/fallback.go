package recovery

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Section labels are fixed: Vietnamese first, English second.
var (
	scorePattern           = regexp.MustCompile(`(?i)(?:điểm|score).*?(\d+(?:\.\d+)?)`)
	violationsPattern      = sectionPattern(`vi phạm`, `violations`)
	recommendationsPattern = sectionPattern(`đề xuất`, `recommendations`)
	analysisPattern        = sectionPattern(`phân tích chi tiết`, `detailed analysis`)
)

// A section runs from its label to the first blank line or the end of the text.
func sectionPattern(labels ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)(?:` + strings.Join(labels, "|") + `):(.*?)(?:\n[ \t]*\n|$)`)
}

// Fallback recovers what it can from text that holds no parseable object, using
// labeled sections and bullet lists. It never fails; with nothing to find it returns
// the default record.
func Fallback(text string) Record {
	rec := defaultRecord(PathFallback)
	rec.ComplianceScore = fallbackScore(text)
	rec.Violations = bulletSection(violationsPattern, text)
	rec.Recommendations = bulletSection(recommendationsPattern, text)
	if m := analysisPattern.FindStringSubmatch(text); m != nil {
		rec.DetailedAnalysis = strings.TrimSpace(m[1])
	}
	return rec
}

func fallbackScore(text string) decimal.Decimal {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	score, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero
	}
	return clampScore(score)
}

func bulletSection(pattern *regexp.Regexp, text string) []string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return []string{}
	}
	return splitBullets(m[1])
}

func isBullet(r rune) bool {
	return r == '-' || r == '•'
}

// splitBullets returns one item per bullet marker. An item ends at the next marker or
// at the end of its line. Markers count only at the start of the section or after
// whitespace, so hyphenated words stay whole.
func splitBullets(section string) []string {
	items := []string{}
	var (
		cur    []rune
		inItem bool
		prev   rune = '\n'
	)
	flush := func() {
		if inItem {
			if s := strings.TrimSpace(string(cur)); s != "" {
				items = append(items, s)
			}
		}
		cur = cur[:0]
	}
	for _, r := range section {
		switch {
		case isBullet(r) && unicode.IsSpace(prev):
			flush()
			inItem = true
		case r == '\n':
			flush()
			inItem = false
		case inItem:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return items
}
