package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxConversationRunes bounds the transcript embedded in a prompt.
const MaxConversationRunes = 4000

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// CleanConversation collapses runs of spaces and tabs and squeezes three or more
// newlines down to one blank line.
func CleanConversation(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Truncate cuts text to max runes and marks the cut with "...".
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}

// ComplianceRules lists the customer communication rules calls are scored against.
const ComplianceRules = `Quy định giao tiếp với khách hàng ngân hàng:
1. Chào hỏi và xưng danh
   - Chào đúng thời điểm + xưng tên/vị trí
   - Thái độ lịch sự, tôn trọng
2. Thái độ phục vụ
   - Giọng nói thân thiện, kiên nhẫn
   - Lắng nghe, không cáu gắt
3. Quy trình xử lý
   - Xác thực khách hàng
   - Tuân thủ quy trình bảo mật
   - Không yêu cầu thông tin nhạy cảm
4. Giải quyết vấn đề
   - Nắm bắt nhu cầu chính xác
   - Đưa giải pháp phù hợp
   - Cam kết thời gian xử lý
5. Kết thúc cuộc gọi
   - Tóm tắt nội dung chính
   - Hỏi nhu cầu hỗ trợ thêm
   - Cảm ơn và chào tạm biệt
6. Bảo mật thông tin
   - Không tiết lộ thông tin nội bộ
   - Bảo vệ thông tin khách hàng`

const analysisTemplate = `Analyze the following conversation based on these banking customer service guidelines:

%RULES%

Conversation:
%CONVERSATION%

Provide analysis in the following JSON format ONLY:
{
    "compliance_score": <score from 1-10>,
    "violations": [<list of specific violations>],
    "recommendations": [<list of specific improvements>],
    "detailed_analysis": "<brief analysis>",
    "customer_emotion": "<Tích cực/Trung tính/Tiêu cực>",
    "emotion_details": "<brief emotion analysis>"
}

Requirements:
- compliance_score must be a number between 1 and 10
- All fields must be present
- Response must be a single valid JSON object with balanced braces
- Keep analysis concise and specific
- Focus on compliance with banking regulations`

// BuildAnalysisPrompt renders the analysis prompt for a transcript. The transcript is
// cleaned and truncated first.
func BuildAnalysisPrompt(transcript string) string {
	conversation := Truncate(CleanConversation(transcript), MaxConversationRunes)
	r := strings.NewReplacer("%RULES%", ComplianceRules, "%CONVERSATION%", conversation)
	return r.Replace(analysisTemplate)
}
