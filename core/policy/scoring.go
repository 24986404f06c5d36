package policy

import "strings"

// Score classifies how promising a lead is.
type Score string

const (
	// ScoreHot means both budget and timeline look strong.
	ScoreHot Score = "HOT"
	// ScoreWarm means exactly one of budget and timeline looks strong.
	ScoreWarm Score = "WARM"
	// ScoreCold means neither looks strong.
	ScoreCold Score = "COLD"
)

// Lead holds the answers lead scoring looks at.
type Lead struct {
	Budget   string
	Timeline string
}

// HighBudgetKeywords mark a budget answer as high.
var HighBudgetKeywords = []string{"high", "enterprise", "premium", "10k", "large", "مرتفع", "كبيرة"}

// UrgentKeywords mark a timeline answer as urgent.
var UrgentKeywords = []string{"asap", "urgent", "immediately", "this week", "today", "عاجل", "فورا", "هذا الأسبوع"}

// ScoreLead returns HOT, WARM or COLD using case-insensitive substring matches.
func ScoreLead(l Lead) Score {
	high := containsAny(l.Budget, HighBudgetKeywords)
	urgent := containsAny(l.Timeline, UrgentKeywords)
	switch {
	case high && urgent:
		return ScoreHot
	case high || urgent:
		return ScoreWarm
	default:
		return ScoreCold
	}
}

// containsAny reports whether any keyword occurs in text, ignoring case.
func containsAny(text string, keywords []string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
