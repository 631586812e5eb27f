package email

const (
	subjectLeadConfirmation    = "Thanks for reaching out, we're on it"
	subjectSalesAlertFmt       = "New %s lead: %s (%d/100)"
	subjectBookingConfirmation = "Your meeting is booked"
	subjectBookingReminderFmt  = "Reminder: %s tomorrow"
)
