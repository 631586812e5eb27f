// Package calendar renders booking artifacts: an iCalendar invite and a QR
// code linking to the booking page.
package calendar

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"leadfunnel_backend/internal/booking/repository"
)

const icsTimeLayout = "20060102T150405Z"

// BuildICS renders an RFC 5545 VCALENDAR document for a booking. Lines use
// CRLF endings as the format requires.
func BuildICS(b repository.Booking, organizerName, organizerEmail string) string {
	var sb strings.Builder
	writeLine := func(line string) {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//leadfunnel//booking//EN")
	writeLine("METHOD:PUBLISH")
	writeLine("BEGIN:VEVENT")
	writeLine("UID:" + b.ID.String() + "@leadfunnel")
	writeLine("DTSTAMP:" + b.CreatedAt.UTC().Format(icsTimeLayout))
	writeLine("DTSTART:" + b.StartTime.UTC().Format(icsTimeLayout))
	writeLine("DTEND:" + b.EndTime.UTC().Format(icsTimeLayout))
	writeLine("SUMMARY:" + escapeText(meetingSummary(b.MeetingType)))
	if b.Notes != "" {
		writeLine("DESCRIPTION:" + escapeText(b.Notes))
	}
	if organizerEmail != "" {
		writeLine(fmt.Sprintf("ORGANIZER;CN=%s:mailto:%s", escapeText(organizerName), organizerEmail))
	}
	writeLine(fmt.Sprintf("ATTENDEE;CN=%s:mailto:%s", escapeText(b.Name), b.Email))
	writeLine("STATUS:CONFIRMED")
	writeLine("END:VEVENT")
	writeLine("END:VCALENDAR")

	return sb.String()
}

// BookingQR renders a PNG QR code pointing at the booking detail page.
func BookingQR(baseURL string, b repository.Booking) ([]byte, error) {
	url := fmt.Sprintf("%s/booking/%s", strings.TrimRight(baseURL, "/"), b.ID)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode booking qr: %w", err)
	}
	return png, nil
}

func meetingSummary(meetingType string) string {
	switch meetingType {
	case "discovery-call":
		return "Discovery Call"
	case "technical-consultation":
		return "Technical Consultation"
	case "project-scoping":
		return "Project Scoping Session"
	default:
		return "Meeting"
	}
}

// escapeText escapes the characters RFC 5545 reserves in TEXT values.
func escapeText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
		"\r", "",
	)
	return r.Replace(s)
}
