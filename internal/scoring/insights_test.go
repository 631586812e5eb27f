package scoring

import (
	"reflect"
	"testing"
)

func TestInsightsDeterministic(t *testing.T) {
	score := LeadScore{
		TotalScore:             85,
		Classification:         ClassificationHot,
		Confidence:             90,
		BudgetScore:            100,
		TimelineScore:          100,
		CompanyScore:           90,
		PainPointScore:         85,
		TechCompatibilityScore: 74,
		EngagementScore:        90,
	}

	first := Insights(score)
	second := Insights(score)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("insights for identical score diverged:\nfirst:  %v\nsecond: %v", first, second)
	}
	if len(first) == 0 {
		t.Fatal("expected at least one insight for a hot lead")
	}
}

func TestInsightsThresholdRules(t *testing.T) {
	cases := []struct {
		name    string
		score   LeadScore
		want    string
		wantNot string
	}{
		{
			name:  "strong budget",
			score: LeadScore{BudgetScore: 90, Classification: ClassificationWarm},
			want:  "Strong Budget Alignment",
		},
		{
			name:    "budget just below threshold",
			score:   LeadScore{BudgetScore: 79, Classification: ClassificationWarm},
			wantNot: "Strong Budget Alignment",
		},
		{
			name:  "legacy stack",
			score: LeadScore{TechCompatibilityScore: 20, Classification: ClassificationCold},
			want:  "Legacy Stack: Migration Opportunity",
		},
		{
			name:  "sparse detail",
			score: LeadScore{Confidence: 15, Classification: ClassificationNurture},
			want:  "Sparse Detail: Qualify Before Outreach",
		},
		{
			name:  "hot follow-up",
			score: LeadScore{Classification: ClassificationHot},
			want:  "Priority Follow-Up Within 24 Hours",
		},
		{
			name:  "nurture routing",
			score: LeadScore{Classification: ClassificationNurture},
			want:  "Route to Nurture Campaign",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Insights(tc.score)
			if tc.want != "" && !contains(got, tc.want) {
				t.Fatalf("expected insight %q, got %v", tc.want, got)
			}
			if tc.wantNot != "" && contains(got, tc.wantNot) {
				t.Fatalf("did not expect insight %q, got %v", tc.wantNot, got)
			}
		})
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
