package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadfunnel_backend/internal/booking/repository"
)

func testBooking() repository.Booking {
	return repository.Booking{
		ID:          uuid.MustParse("3f1e9c9a-0d76-4a37-8f2e-6a1f2b3c4d5e"),
		Name:        "Dana Veldkamp",
		Email:       "dana@acme.example",
		MeetingType: "discovery-call",
		StartTime:   time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2026, 3, 3, 15, 30, 0, 0, time.UTC),
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildICSStructure(t *testing.T) {
	ics := BuildICS(testBooking(), "Lead Funnel", "meetings@leadfunnel.example")

	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Fatal("document must end with END:VCALENDAR")
	}
	for _, line := range strings.Split(strings.TrimSuffix(ics, "\r\n"), "\r\n") {
		if strings.ContainsAny(line, "\n\r") {
			t.Fatalf("line %q contains bare line endings", line)
		}
	}

	wantLines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"UID:3f1e9c9a-0d76-4a37-8f2e-6a1f2b3c4d5e@leadfunnel",
		"DTSTAMP:20260301T120000Z",
		"DTSTART:20260303T150000Z",
		"DTEND:20260303T153000Z",
		"SUMMARY:Discovery Call",
		"ORGANIZER;CN=Lead Funnel:mailto:meetings@leadfunnel.example",
		"ATTENDEE;CN=Dana Veldkamp:mailto:dana@acme.example",
		"STATUS:CONFIRMED",
	}
	for _, want := range wantLines {
		if !strings.Contains(ics, want+"\r\n") {
			t.Errorf("missing line %q", want)
		}
	}
}

func TestBuildICSEscapesText(t *testing.T) {
	b := testBooking()
	b.Name = "Veldkamp; Dana"
	b.Notes = "Agenda:\nbudget, timeline"

	ics := BuildICS(b, "", "")

	if !strings.Contains(ics, "ATTENDEE;CN=Veldkamp\\; Dana:mailto:") {
		t.Fatal("semicolon in attendee name not escaped")
	}
	if !strings.Contains(ics, "DESCRIPTION:Agenda:\\nbudget\\, timeline\r\n") {
		t.Fatal("notes not escaped")
	}
	if strings.Contains(ics, "ORGANIZER") {
		t.Fatal("organizer line written without an organizer email")
	}
}

func TestBuildICSUnknownMeetingType(t *testing.T) {
	b := testBooking()
	b.MeetingType = "something-new"

	if !strings.Contains(BuildICS(b, "", ""), "SUMMARY:Meeting\r\n") {
		t.Fatal("unknown meeting types must fall back to a generic summary")
	}
}

func TestBookingQRProducesPNG(t *testing.T) {
	png, err := BookingQR("https://leadfunnel.example/", testBooking())
	if err != nil {
		t.Fatalf("BookingQR: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("output is not a PNG")
	}
}
