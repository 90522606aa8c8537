package recovery

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// NoDetailedAnalysis is stored when the model output carries no analysis text.
const NoDetailedAnalysis = "no detailed analysis"

// Path records which stage produced a Record.
type Path string

const (
	PathStrict   Path = "strict"
	PathRepaired Path = "repaired"
	PathEmbedded Path = "embedded"
	PathFallback Path = "fallback"
)

// Emotion is the customer sentiment reported by the model.
type Emotion string

const (
	EmotionPositive Emotion = "positive"
	EmotionNeutral  Emotion = "neutral"
	EmotionNegative Emotion = "negative"
)

var (
	minScore = decimal.Zero
	maxScore = decimal.NewFromInt(10)
)

// Record is the structured compliance analysis recovered from a model response.
type Record struct {
	Summary          string          `json:"summary"`
	ComplianceScore  decimal.Decimal `json:"compliance_score"`
	Violations       []string        `json:"violations"`
	Recommendations  []string        `json:"recommendations"`
	DetailedAnalysis string          `json:"detailed_analysis"`
	CustomerEmotion  Emotion         `json:"customer_emotion"`
	EmotionDetails   string          `json:"emotion_details"`
	RecoveryPath     Path            `json:"recovery_path"`
}

func defaultRecord(path Path) Record {
	return Record{
		ComplianceScore:  decimal.Zero,
		Violations:       []string{},
		Recommendations:  []string{},
		DetailedAnalysis: NoDetailedAnalysis,
		CustomerEmotion:  EmotionNeutral,
		RecoveryPath:     path,
	}
}

// minScoreMagnitude is the decimal order below which a score reads as zero.
const minScoreMagnitude = -20

// clampScore bounds score to [0, 10]. Magnitude checks run first on the digit count
// and exponent only, since comparing against a value with a huge exponent rescales
// it to a big integer of that many digits.
func clampScore(score decimal.Decimal) decimal.Decimal {
	if score.Sign() <= 0 {
		return minScore
	}
	// The score lies in [10^(order-1), 10^order).
	order := int64(score.NumDigits()) + int64(score.Exponent())
	if order > 2 {
		return maxScore
	}
	if order <= minScoreMagnitude {
		return minScore
	}
	if score.Exponent() < minScoreMagnitude {
		score = score.Truncate(-minScoreMagnitude)
	}
	if score.LessThan(minScore) {
		return minScore
	}
	if score.GreaterThan(maxScore) {
		return maxScore
	}
	return score
}

// MarshalJSON writes the score as a JSON number carrying its exact decimal digits.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		ComplianceScore json.Number `json:"compliance_score"`
	}{
		plain:           plain(r),
		ComplianceScore: json.Number(r.ComplianceScore.String()),
	})
}

// UnmarshalJSON accepts the score as a JSON number or a numeric string.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		ComplianceScore json.RawMessage `json:"compliance_score"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	r.ComplianceScore = decimal.Zero
	if len(aux.ComplianceScore) > 0 && string(aux.ComplianceScore) != "null" {
		if err := r.ComplianceScore.UnmarshalJSON(aux.ComplianceScore); err != nil {
			return err
		}
	}
	return nil
}
