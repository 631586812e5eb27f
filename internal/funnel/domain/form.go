// Package domain holds the funnel's core types: the lead form record, its
// enumerations, and the multi-step wizard state machine.
package domain

import (
	"strings"

	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/phone"
)

// Division identifies the business unit a lead is interested in.
type Division string

const (
	DivisionWebDevelopment   Division = "web-development"
	DivisionMobileApps       Division = "mobile-apps"
	DivisionCloudSolutions   Division = "cloud-solutions"
	DivisionDataAnalytics    Division = "data-analytics"
	DivisionDigitalMarketing Division = "digital-marketing"
)

// Divisions lists every valid division.
var Divisions = []Division{
	DivisionWebDevelopment,
	DivisionMobileApps,
	DivisionCloudSolutions,
	DivisionDataAnalytics,
	DivisionDigitalMarketing,
}

// divisionServices maps each division to the services it offers. A submission
// may only select services belonging to its chosen division.
var divisionServices = map[Division][]string{
	DivisionWebDevelopment:   {"corporate-website", "ecommerce", "web-application", "cms-platform", "api-development"},
	DivisionMobileApps:       {"ios-app", "android-app", "cross-platform", "app-modernization"},
	DivisionCloudSolutions:   {"cloud-migration", "devops-automation", "managed-hosting", "architecture-review"},
	DivisionDataAnalytics:    {"dashboarding", "data-pipeline", "predictive-modeling", "data-warehouse"},
	DivisionDigitalMarketing: {"seo", "paid-media", "marketing-automation", "conversion-optimization"},
}

// ServicesFor returns the service catalog for a division.
func ServicesFor(d Division) []string {
	return divisionServices[d]
}

// ValidDivision reports whether d is one of the five business units.
func ValidDivision(d Division) bool {
	_, ok := divisionServices[d]
	return ok
}

// CompanySize buckets a lead's organization.
type CompanySize string

const (
	SizeStartup    CompanySize = "startup"
	SizeSmall      CompanySize = "small"
	SizeMedium     CompanySize = "medium"
	SizeEnterprise CompanySize = "enterprise"
)

// MarketType describes the lead's market reach.
type MarketType string

const (
	MarketLocal         MarketType = "local"
	MarketNational      MarketType = "national"
	MarketInternational MarketType = "international"
)

// BudgetBand is an ordered enumeration of project budget ranges.
type BudgetBand string

const (
	BudgetUnder10K  BudgetBand = "under-10k"
	Budget10To50K   BudgetBand = "10k-50k"
	Budget50To100K  BudgetBand = "50k-100k"
	Budget100To500K BudgetBand = "100k-500k"
	BudgetOver500K  BudgetBand = "500k+"
)

// budgetRanks orders budget bands from lowest to highest.
var budgetRanks = map[BudgetBand]int{
	BudgetUnder10K:  0,
	Budget10To50K:   1,
	Budget50To100K:  2,
	Budget100To500K: 3,
	BudgetOver500K:  4,
}

// Rank returns the band's position in the ordering, or -1 for unknown bands.
func (b BudgetBand) Rank() int {
	if rank, ok := budgetRanks[b]; ok {
		return rank
	}
	return -1
}

// TimelineBand is an ordered enumeration of project urgency ranges.
type TimelineBand string

const (
	TimelineImmediate  TimelineBand = "immediate"
	TimelineShortTerm  TimelineBand = "1-3-months"
	TimelineMediumTerm TimelineBand = "3-6-months"
	TimelineWithinYear TimelineBand = "within-year"
)

// timelineRanks orders timeline bands from most to least urgent.
var timelineRanks = map[TimelineBand]int{
	TimelineImmediate:  3,
	TimelineShortTerm:  2,
	TimelineMediumTerm: 1,
	TimelineWithinYear: 0,
}

// Rank returns the band's urgency position (higher is more urgent), or -1.
func (t TimelineBand) Rank() int {
	if rank, ok := timelineRanks[t]; ok {
		return rank
	}
	return -1
}

// Experience describes prior experience with similar projects.
type Experience string

const (
	ExperienceNone      Experience = "none"
	ExperienceSome      Experience = "some"
	ExperienceExtensive Experience = "extensive"
)

// LeadFormData is the canonical submission record, filled incrementally across
// the wizard's five steps and frozen once scored.
type LeadFormData struct {
	// Step 0: basic info
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Position  string `json:"position"`

	// Step 1: services & division
	Division Division `json:"division"`
	Services []string `json:"services"`

	// Step 2: company details
	CompanySize CompanySize `json:"companySize"`
	Industry    string      `json:"industry"`
	Location    string      `json:"location"`
	MarketType  MarketType  `json:"marketType"`

	// Step 3: project information
	Budget             BudgetBand   `json:"budget"`
	Timeline           TimelineBand `json:"timeline"`
	Urgency            int          `json:"urgency"`
	ProjectDescription string       `json:"projectDescription"`

	// Step 4: technical assessment
	CurrentTech        []string       `json:"currentTech"`
	PainPoints         []string       `json:"painPoints"`
	PainPointSeverity  map[string]int `json:"painPointSeverity"`
	ExpectedOutcomes   []string       `json:"expectedOutcomes"`
	PreviousExperience Experience     `json:"previousExperience"`
}

// ValidateComplete checks the full submission for structural validity.
// Per-step validation happens at the transport boundary; this is the
// defense-in-depth gate run once more before scoring.
func (d *LeadFormData) ValidateComplete() error {
	fields := map[string]string{
		"firstName": d.FirstName,
		"lastName":  d.LastName,
		"email":     d.Email,
		"phone":     d.Phone,
		"company":   d.Company,
		"position":  d.Position,
	}
	missing := make([]string, 0)
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required contact fields").WithDetails(missing)
	}
	if !phone.IsPlausible(d.Phone) {
		return apperr.Validation("phone number is not plausible")
	}

	if !ValidDivision(d.Division) {
		return apperr.Validation("unknown division")
	}
	if len(d.Services) == 0 {
		return apperr.Validation("select at least one service")
	}
	catalog := make(map[string]bool, len(divisionServices[d.Division]))
	for _, svc := range divisionServices[d.Division] {
		catalog[svc] = true
	}
	for _, svc := range d.Services {
		if !catalog[svc] {
			return apperr.Validation("service does not belong to the selected division").WithDetails(svc)
		}
	}

	if d.Budget.Rank() < 0 {
		return apperr.Validation("unknown budget band")
	}
	if d.Timeline.Rank() < 0 {
		return apperr.Validation("unknown timeline band")
	}
	if d.Urgency < 1 || d.Urgency > 5 {
		return apperr.Validation("urgency must be between 1 and 5")
	}
	if len(strings.TrimSpace(d.ProjectDescription)) < 10 {
		return apperr.Validation("project description must be at least 10 characters")
	}

	if len(d.PainPoints) == 0 {
		return apperr.Validation("select at least one pain point")
	}
	declared := make(map[string]bool, len(d.PainPoints))
	for _, p := range d.PainPoints {
		declared[p] = true
	}
	for key, severity := range d.PainPointSeverity {
		if !declared[key] {
			return apperr.Validation("severity declared for an unselected pain point").WithDetails(key)
		}
		if severity < 1 || severity > 5 {
			return apperr.Validation("pain point severity must be between 1 and 5").WithDetails(key)
		}
	}

	return nil
}
