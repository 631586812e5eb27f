// Package scoring implements the deterministic lead scoring engine. Scoring
// is a pure computation: no I/O, no mutation of its input, identical output
// for identical input.
package scoring

// Classification routes follow-up urgency for a scored lead.
type Classification string

const (
	ClassificationHot     Classification = "hot"
	ClassificationWarm    Classification = "warm"
	ClassificationCold    Classification = "cold"
	ClassificationNurture Classification = "nurture"
)

// Classification thresholds. Exhaustive and non-overlapping over [0,100].
const (
	hotThreshold  = 80
	warmThreshold = 60
	coldThreshold = 40
)

// Classify maps a total score to its bucket.
func Classify(totalScore int) Classification {
	switch {
	case totalScore >= hotThreshold:
		return ClassificationHot
	case totalScore >= warmThreshold:
		return ClassificationWarm
	case totalScore >= coldThreshold:
		return ClassificationCold
	default:
		return ClassificationNurture
	}
}

// Factor explains one component's contribution to the total.
type Factor struct {
	Component string  `json:"component"`
	Score     int     `json:"score"`
	Weight    float64 `json:"weight"`
}

// LeadScore is the immutable result of scoring a completed submission.
type LeadScore struct {
	TotalScore     int            `json:"totalScore"`
	Classification Classification `json:"classification"`
	Confidence     int            `json:"confidence"`

	CompanyScore           int `json:"companyScore"`
	BudgetScore            int `json:"budgetScore"`
	TimelineScore          int `json:"timelineScore"`
	PainPointScore         int `json:"painPointScore"`
	TechCompatibilityScore int `json:"techCompatibilityScore"`
	EngagementScore        int `json:"engagementScore"`

	Factors []Factor `json:"factors"`
	Version string   `json:"version"`
}

// SessionMeta carries optional session context into engagement scoring.
// The zero value is valid; missing metadata falls back to neutral defaults.
type SessionMeta struct {
	TimeSpentSeconds int
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
