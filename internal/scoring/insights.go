package scoring

// Insight thresholds are deliberately simple: each rule inspects one
// component score and emits one advisory string.
const (
	strongComponentThreshold = 80
	weakComponentThreshold   = 30
)

// Insights derives advisory strings from a computed score using fixed
// threshold rules. Deterministic: same score, same insights, same order.
func Insights(score LeadScore) []string {
	insights := make([]string, 0, 8)

	if score.BudgetScore >= strongComponentThreshold {
		insights = append(insights, "Strong Budget Alignment")
	}
	if score.TimelineScore >= strongComponentThreshold {
		insights = append(insights, "Urgent Timeline: Fast-Track Recommended")
	}
	if score.CompanyScore >= strongComponentThreshold {
		insights = append(insights, "Enterprise-Grade Opportunity")
	}
	if score.PainPointScore >= strongComponentThreshold {
		insights = append(insights, "Acute Pain Points Identified")
	}
	if score.TechCompatibilityScore >= strongComponentThreshold {
		insights = append(insights, "High Technical Compatibility")
	}
	if score.TechCompatibilityScore <= weakComponentThreshold {
		insights = append(insights, "Legacy Stack: Migration Opportunity")
	}
	if score.EngagementScore >= strongComponentThreshold {
		insights = append(insights, "Highly Engaged Prospect")
	}
	if score.Confidence <= weakComponentThreshold {
		insights = append(insights, "Sparse Detail: Qualify Before Outreach")
	}

	switch score.Classification {
	case ClassificationHot:
		insights = append(insights, "Priority Follow-Up Within 24 Hours")
	case ClassificationWarm:
		insights = append(insights, "Schedule Discovery Call This Week")
	case ClassificationCold:
		insights = append(insights, "Add to Standard Outreach Sequence")
	case ClassificationNurture:
		insights = append(insights, "Route to Nurture Campaign")
	}

	return insights
}
