package quiz

import "fmt"

// Summary is the terminal report of a completed session.
type Summary struct {
	SessionID        string     `json:"sessionId"`
	Language         string     `json:"language"`
	Difficulty       Difficulty `json:"difficulty"`
	TotalQuestions   int        `json:"totalQuestions"`
	CorrectAnswers   int        `json:"correctAnswers"`
	Score            int        `json:"score"` // percentage
	Performance      string     `json:"performance"`
	Message          string     `json:"message"`
	CompletionTimeMs int64      `json:"completionTimeMs"`
}

// Performance tiers.
const (
	TierExcellent        = "Excellent"
	TierGood             = "Good"
	TierFair             = "Fair"
	TierNeedsImprovement = "Needs Improvement"
)

// BuildSummary computes the summary of s. Completion time spans startTime
// to the last recorded activity at millisecond precision.
func BuildSummary(s *Session) Summary {
	pct := s.Score * 100 / TotalQuestions
	tier, msg := performance(pct, DisplayName(s.Language))

	return Summary{
		SessionID:        s.SessionID,
		Language:         s.Language,
		Difficulty:       s.Difficulty,
		TotalQuestions:   TotalQuestions,
		CorrectAnswers:   s.Score,
		Score:            pct,
		Performance:      tier,
		Message:          msg,
		CompletionTimeMs: s.LastActivity.Sub(s.StartTime).Milliseconds(),
	}
}

func performance(pct int, language string) (string, string) {
	switch {
	case pct >= 80:
		return TierExcellent, fmt.Sprintf("Outstanding! You have a strong grasp of %s concepts!", language)
	case pct >= 60:
		return TierGood, fmt.Sprintf("Well done! You're making good progress with %s!", language)
	case pct >= 40:
		return TierFair, "Keep practicing! You're on the right track!"
	default:
		return TierNeedsImprovement, fmt.Sprintf("Don't give up! Practice makes perfect in %s!", language)
	}
}
