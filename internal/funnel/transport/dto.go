// Package transport defines the funnel's wire types. Each wizard step has its
// own request DTO; the handler decodes the body against the DTO matching the
// session's current step, so later-step fields can never sneak in early.
package transport

import (
	"encoding/json"
	"time"

	"leadfunnel_backend/internal/funnel/domain"
	"leadfunnel_backend/platform/apperr"
	"leadfunnel_backend/platform/sanitize"
	"leadfunnel_backend/platform/validator"
)

// StepPayload is a decoded, validated step submission that knows how to merge
// itself into the session's accumulated form data.
type StepPayload interface {
	Apply(d *domain.LeadFormData)
}

type BasicInfoRequest struct {
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,min=5,max=20"`
	Company   string `json:"company" validate:"required,min=1,max=200"`
	Position  string `json:"position" validate:"required,min=1,max=100"`
}

func (r BasicInfoRequest) Apply(d *domain.LeadFormData) {
	d.FirstName = sanitize.Text(r.FirstName)
	d.LastName = sanitize.Text(r.LastName)
	d.Email = sanitize.Text(r.Email)
	d.Phone = sanitize.Text(r.Phone)
	d.Company = sanitize.Text(r.Company)
	d.Position = sanitize.Text(r.Position)
}

type ServicesRequest struct {
	Division domain.Division `json:"division" validate:"required,oneof=web-development mobile-apps cloud-solutions data-analytics digital-marketing"`
	Services []string        `json:"services" validate:"required,min=1,dive,min=1,max=100"`
}

func (r ServicesRequest) Apply(d *domain.LeadFormData) {
	// Switching division invalidates previously selected services.
	if d.Division != r.Division {
		d.Services = nil
	}
	d.Division = r.Division
	d.Services = sanitize.Slice(r.Services)
}

type CompanyDetailsRequest struct {
	CompanySize domain.CompanySize `json:"companySize" validate:"required,oneof=startup small medium enterprise"`
	Industry    string             `json:"industry" validate:"omitempty,max=100"`
	Location    string             `json:"location" validate:"omitempty,max=200"`
	MarketType  domain.MarketType  `json:"marketType" validate:"required,oneof=local national international"`
}

func (r CompanyDetailsRequest) Apply(d *domain.LeadFormData) {
	d.CompanySize = r.CompanySize
	d.Industry = sanitize.Text(r.Industry)
	d.Location = sanitize.Text(r.Location)
	d.MarketType = r.MarketType
}

type ProjectInfoRequest struct {
	Budget             domain.BudgetBand   `json:"budget" validate:"required,oneof=under-10k 10k-50k 50k-100k 100k-500k 500k+"`
	Timeline           domain.TimelineBand `json:"timeline" validate:"required,oneof=immediate 1-3-months 3-6-months within-year"`
	Urgency            int                 `json:"urgency" validate:"required,min=1,max=5"`
	ProjectDescription string              `json:"projectDescription" validate:"required,min=10,max=5000"`
}

func (r ProjectInfoRequest) Apply(d *domain.LeadFormData) {
	d.Budget = r.Budget
	d.Timeline = r.Timeline
	d.Urgency = r.Urgency
	d.ProjectDescription = sanitize.Text(r.ProjectDescription)
}

type TechnicalAssessmentRequest struct {
	CurrentTech        []string          `json:"currentTech" validate:"omitempty,dive,min=1,max=100"`
	PainPoints         []string          `json:"painPoints" validate:"required,min=1,dive,min=1,max=100"`
	PainPointSeverity  map[string]int    `json:"painPointSeverity" validate:"omitempty,dive,min=1,max=5"`
	ExpectedOutcomes   []string          `json:"expectedOutcomes" validate:"omitempty,dive,min=1,max=200"`
	PreviousExperience domain.Experience `json:"previousExperience" validate:"omitempty,oneof=none some extensive"`
}

func (r TechnicalAssessmentRequest) Apply(d *domain.LeadFormData) {
	d.CurrentTech = sanitize.Slice(r.CurrentTech)
	d.PainPoints = sanitize.Slice(r.PainPoints)
	d.PainPointSeverity = r.PainPointSeverity
	d.ExpectedOutcomes = sanitize.Slice(r.ExpectedOutcomes)
	d.PreviousExperience = r.PreviousExperience
}

// DecodeStep unmarshals and validates raw JSON against the DTO for the given
// wizard step. Unknown steps and malformed bodies map to validation errors so
// the session state is never touched.
func DecodeStep(val *validator.Validator, step int, raw []byte) (StepPayload, error) {
	var payload StepPayload
	var err error

	switch step {
	case domain.StepBasicInfo:
		var req BasicInfoRequest
		err = json.Unmarshal(raw, &req)
		payload = req
	case domain.StepServices:
		var req ServicesRequest
		err = json.Unmarshal(raw, &req)
		payload = req
	case domain.StepCompanyDetails:
		var req CompanyDetailsRequest
		err = json.Unmarshal(raw, &req)
		payload = req
	case domain.StepProjectInfo:
		var req ProjectInfoRequest
		err = json.Unmarshal(raw, &req)
		payload = req
	case domain.StepTechnicalAssessment:
		var req TechnicalAssessmentRequest
		err = json.Unmarshal(raw, &req)
		payload = req
	default:
		return nil, apperr.BadRequest("unknown wizard step")
	}

	if err != nil {
		return nil, apperr.BadRequest("malformed step payload")
	}
	if verr := val.Struct(payload); verr != nil {
		return nil, apperr.Validation("step validation failed").WithDetails(validator.FieldErrors(verr))
	}
	return payload, nil
}

// AutosaveRequest carries a partial form snapshot. Every field is optional and
// nothing is validated beyond shape: drafts persist whatever the user typed.
type AutosaveRequest struct {
	FirstName          *string              `json:"firstName,omitempty"`
	LastName           *string              `json:"lastName,omitempty"`
	Email              *string              `json:"email,omitempty"`
	Phone              *string              `json:"phone,omitempty"`
	Company            *string              `json:"company,omitempty"`
	Position           *string              `json:"position,omitempty"`
	Division           *domain.Division     `json:"division,omitempty"`
	Services           []string             `json:"services,omitempty"`
	CompanySize        *domain.CompanySize  `json:"companySize,omitempty"`
	Industry           *string              `json:"industry,omitempty"`
	Location           *string              `json:"location,omitempty"`
	MarketType         *domain.MarketType   `json:"marketType,omitempty"`
	Budget             *domain.BudgetBand   `json:"budget,omitempty"`
	Timeline           *domain.TimelineBand `json:"timeline,omitempty"`
	Urgency            *int                 `json:"urgency,omitempty"`
	ProjectDescription *string              `json:"projectDescription,omitempty"`
	CurrentTech        []string             `json:"currentTech,omitempty"`
	PainPoints         []string             `json:"painPoints,omitempty"`
	PainPointSeverity  map[string]int       `json:"painPointSeverity,omitempty"`
	ExpectedOutcomes   []string             `json:"expectedOutcomes,omitempty"`
	PreviousExperience *domain.Experience   `json:"previousExperience,omitempty"`
	TimeSpentSeconds   *int                 `json:"timeSpentSeconds,omitempty"`
}

// Apply merges the non-nil fields into the form data and returns the carried
// time-spent value, if any.
func (r AutosaveRequest) Apply(d *domain.LeadFormData) *int {
	if r.FirstName != nil {
		d.FirstName = sanitize.Text(*r.FirstName)
	}
	if r.LastName != nil {
		d.LastName = sanitize.Text(*r.LastName)
	}
	if r.Email != nil {
		d.Email = sanitize.Text(*r.Email)
	}
	if r.Phone != nil {
		d.Phone = sanitize.Text(*r.Phone)
	}
	if r.Company != nil {
		d.Company = sanitize.Text(*r.Company)
	}
	if r.Position != nil {
		d.Position = sanitize.Text(*r.Position)
	}
	if r.Division != nil {
		d.Division = *r.Division
	}
	if r.Services != nil {
		d.Services = sanitize.Slice(r.Services)
	}
	if r.CompanySize != nil {
		d.CompanySize = *r.CompanySize
	}
	if r.Industry != nil {
		d.Industry = sanitize.Text(*r.Industry)
	}
	if r.Location != nil {
		d.Location = sanitize.Text(*r.Location)
	}
	if r.MarketType != nil {
		d.MarketType = *r.MarketType
	}
	if r.Budget != nil {
		d.Budget = *r.Budget
	}
	if r.Timeline != nil {
		d.Timeline = *r.Timeline
	}
	if r.Urgency != nil {
		d.Urgency = *r.Urgency
	}
	if r.ProjectDescription != nil {
		d.ProjectDescription = sanitize.Text(*r.ProjectDescription)
	}
	if r.CurrentTech != nil {
		d.CurrentTech = sanitize.Slice(r.CurrentTech)
	}
	if r.PainPoints != nil {
		d.PainPoints = sanitize.Slice(r.PainPoints)
	}
	if r.PainPointSeverity != nil {
		d.PainPointSeverity = r.PainPointSeverity
	}
	if r.ExpectedOutcomes != nil {
		d.ExpectedOutcomes = sanitize.Slice(r.ExpectedOutcomes)
	}
	if r.PreviousExperience != nil {
		d.PreviousExperience = *r.PreviousExperience
	}
	return r.TimeSpentSeconds
}

// SessionResponse is the wire shape of a wizard session.
type SessionResponse struct {
	SessionID            string              `json:"sessionId"`
	CurrentStep          int                 `json:"currentStep"`
	StepName             string              `json:"stepName"`
	CompletionPercentage int                 `json:"completionPercentage"`
	TimeSpentSeconds     int                 `json:"timeSpentSeconds"`
	IsCompleted          bool                `json:"isCompleted"`
	FormData             domain.LeadFormData `json:"formData"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// ToSessionResponse maps a domain session to its wire shape.
func ToSessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		SessionID:            s.SessionID,
		CurrentStep:          s.CurrentStep,
		StepName:             domain.StepNames[s.CurrentStep],
		CompletionPercentage: s.CompletionPercentage(),
		TimeSpentSeconds:     s.TimeSpent,
		IsCompleted:          s.IsCompleted,
		FormData:             s.FormData,
		UpdatedAt:            s.UpdatedAt,
	}
}

// ScoreResponse is the wire shape of a computed lead score.
type ScoreResponse struct {
	TotalScore             int    `json:"totalScore"`
	Classification         string `json:"classification"`
	Confidence             int    `json:"confidence"`
	CompanyScore           int    `json:"companyScore"`
	BudgetScore            int    `json:"budgetScore"`
	TimelineScore          int    `json:"timelineScore"`
	PainPointScore         int    `json:"painPointScore"`
	TechCompatibilityScore int    `json:"techCompatibilityScore"`
	EngagementScore        int    `json:"engagementScore"`
	Version                string `json:"version"`
	Factors                []Fact `json:"factors"`
}

// Fact is one weighted component of the total score.
type Fact struct {
	Component string  `json:"component"`
	Score     int     `json:"score"`
	Weight    float64 `json:"weight"`
}

// SubmitResponse is returned after a successful final submission.
type SubmitResponse struct {
	LeadID   string        `json:"leadId"`
	Score    ScoreResponse `json:"score"`
	Insights []string      `json:"insights"`
}
