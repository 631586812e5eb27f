package scoring

import (
	"math"
	"strings"

	"leadfunnel_backend/internal/funnel/domain"
)

// Engine computes lead scores from a fixed configuration. Construct one with
// NewEngine and inject it wherever scoring is needed; it holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	cfg        Config
	compatible map[string]bool
	legacy     map[string]bool
}

// NewEngine creates an engine from the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		compatible: normalizeSet(cfg.CompatibleTech),
		legacy:     normalizeSet(cfg.LegacyTech),
	}
}

// Version returns the scoring algorithm version tag.
func (e *Engine) Version() string {
	return e.cfg.Version
}

// Score computes the six component scores and the weighted total for a
// structurally valid submission. It never fails: callers guarantee structural
// validity through the wizard's validation gate, and degenerate values
// (empty maps, missing metadata) degrade to defended defaults.
func (e *Engine) Score(data domain.LeadFormData, meta SessionMeta) LeadScore {
	budget := budgetScore(data.Budget)
	timeline := timelineScore(data.Timeline)
	company := companyScore(data.CompanySize, data.MarketType)
	pain := painPointScore(data.PainPoints, data.PainPointSeverity)
	tech := e.techCompatibilityScore(data.CurrentTech)
	engagement := engagementScore(data, meta)

	w := e.cfg.Weights
	total := clampScore(int(math.Round(
		w.Budget*float64(budget) +
			w.Timeline*float64(timeline) +
			w.Company*float64(company) +
			w.PainPoints*float64(pain) +
			w.Tech*float64(tech) +
			w.Engagement*float64(engagement),
	)))

	return LeadScore{
		TotalScore:             total,
		Classification:         Classify(total),
		Confidence:             confidence(data),
		CompanyScore:           company,
		BudgetScore:            budget,
		TimelineScore:          timeline,
		PainPointScore:         pain,
		TechCompatibilityScore: tech,
		EngagementScore:        engagement,
		Factors: []Factor{
			{Component: "budget", Score: budget, Weight: w.Budget},
			{Component: "timeline", Score: timeline, Weight: w.Timeline},
			{Component: "company", Score: company, Weight: w.Company},
			{Component: "pain_points", Score: pain, Weight: w.PainPoints},
			{Component: "tech_compatibility", Score: tech, Weight: w.Tech},
			{Component: "engagement", Score: engagement, Weight: w.Engagement},
		},
		Version: e.cfg.Version,
	}
}

// budgetScore is monotonically non-decreasing in budget band.
func budgetScore(band domain.BudgetBand) int {
	rank := band.Rank()
	if rank < 0 {
		return 0
	}
	return 20 + rank*20
}

// timelineScore is monotonically non-decreasing in urgency band.
func timelineScore(band domain.TimelineBand) int {
	rank := band.Rank()
	if rank < 0 {
		return 0
	}
	return 25 + rank*25
}

var companySizeScores = map[domain.CompanySize]int{
	domain.SizeStartup:    25,
	domain.SizeSmall:      50,
	domain.SizeMedium:     75,
	domain.SizeEnterprise: 100,
}

var marketTypeScores = map[domain.MarketType]int{
	domain.MarketLocal:         40,
	domain.MarketNational:      70,
	domain.MarketInternational: 100,
}

// companyScore combines size and market reach. Larger size and broader reach
// never decrease the score, all else equal.
func companyScore(size domain.CompanySize, market domain.MarketType) int {
	return clampScore(int(math.Round(
		0.7*float64(companySizeScores[size]) + 0.3*float64(marketTypeScores[market]),
	)))
}

// Without any declared pain points a lead cannot score above this ceiling.
// Pain points are required input; this defends against a degenerate empty set.
const emptyPainPointCeiling = 10

const defaultSeverity = 3

// painPointScore grows with the number of pain points and their average
// severity. Severity entries missing from the map default to the midpoint.
func painPointScore(painPoints []string, severity map[string]int) int {
	if len(painPoints) == 0 {
		return emptyPainPointCeiling
	}

	base := len(painPoints) * 15
	if base > 60 {
		base = 60
	}

	total := 0
	for _, p := range painPoints {
		s, ok := severity[p]
		if !ok || s < 1 || s > 5 {
			s = defaultSeverity
		}
		total += s
	}
	avg := float64(total) / float64(len(painPoints))

	return clampScore(base + int(math.Round(avg*8)))
}

// An empty stack is unknown, not hostile: score it neutrally.
const neutralTechScore = 50

// techCompatibilityScore rewards overlap with the configured compatibility
// list and penalizes legacy stacks.
func (e *Engine) techCompatibilityScore(currentTech []string) int {
	if len(currentTech) == 0 {
		return neutralTechScore
	}

	score := neutralTechScore
	for _, raw := range currentTech {
		tech := normalizeTech(raw)
		switch {
		case e.compatible[tech]:
			score += 12
		case e.legacy[tech]:
			score -= 10
		}
	}
	return clampScore(score)
}

const neutralEngagement = 50

var experienceScores = map[domain.Experience]int{
	domain.ExperienceNone:      40,
	domain.ExperienceSome:      60,
	domain.ExperienceExtensive: 80,
}

// engagementScore blends session dwell time, declared urgency, and previous
// experience. Every input is optional; missing values score neutrally rather
// than failing.
func engagementScore(data domain.LeadFormData, meta SessionMeta) int {
	expScore := neutralEngagement
	if s, ok := experienceScores[data.PreviousExperience]; ok {
		expScore = s
	}

	timeScore := neutralEngagement
	if meta.TimeSpentSeconds > 0 {
		switch {
		case meta.TimeSpentSeconds < 60:
			timeScore = 40 // rushed through; weak signal
		case meta.TimeSpentSeconds < 300:
			timeScore = 70
		default:
			timeScore = 90
		}
	}

	urgencyScore := neutralEngagement
	if data.Urgency >= 1 && data.Urgency <= 5 {
		urgencyScore = data.Urgency * 20
	}

	return clampScore(int(math.Round(float64(expScore+timeScore+urgencyScore) / 3)))
}

// confidence reflects how much optional detail the lead supplied: 100 when
// everything is populated, degrading gracefully toward 0, never out of range.
func confidence(data domain.LeadFormData) int {
	signals := []bool{
		strings.TrimSpace(data.Industry) != "",
		strings.TrimSpace(data.Location) != "",
		len(data.CurrentTech) > 0,
		len(data.ExpectedOutcomes) > 0,
		len(strings.TrimSpace(data.ProjectDescription)) >= 10,
		severityComplete(data.PainPoints, data.PainPointSeverity),
	}

	populated := 0
	for _, present := range signals {
		if present {
			populated++
		}
	}

	return clampScore(int(math.Round(float64(populated) / float64(len(signals)) * 100)))
}

func severityComplete(painPoints []string, severity map[string]int) bool {
	if len(painPoints) == 0 {
		return false
	}
	for _, p := range painPoints {
		if _, ok := severity[p]; !ok {
			return false
		}
	}
	return true
}

func normalizeSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[normalizeTech(v)] = true
	}
	return set
}

func normalizeTech(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
