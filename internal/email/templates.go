package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type leadConfirmationEmailData struct {
	baseEmailData
	FirstName string
	Division  string
}

type salesAlertEmailData struct {
	baseEmailData
	LeadName       string
	Company        string
	Classification string
	TotalScore     int
	Insights       []string
}

type bookingConfirmationEmailData struct {
	baseEmailData
	Name        string
	MeetingType string
	StartTime   string
	Timezone    string
}

type bookingReminderEmailData struct {
	baseEmailData
	Name        string
	MeetingType string
	StartTime   string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
