// Package confirm renders the booking summary shown after a successful
// reservation. Purely presentational: it consumes the payload handed off by
// the booking flow and never re-fetches anything.
package confirm

import (
	"strings"
	"text/template"

	"github.com/clinicbook/clinicbook-go/internal/booking"
)

const emptyMessage = "No booking details available."

var summaryTmpl = template.Must(template.New("confirmation").Parse(
	`Appointment booked!

  Doctor:    {{.DoctorName}}
  Specialty: {{.DoctorSpecialty}}
  Date:      {{.Date}}
  Time:      {{.StartTime}}
{{- if .AppointmentID}}
  Reference: #{{.AppointmentID}}
{{- end}}
`))

// Render produces the human-readable summary for a confirmation payload. A
// nil payload, e.g. the confirmation view reached without a preceding
// booking, renders a defensive empty state rather than failing.
func Render(payload *booking.Confirmation) string {
	if payload == nil {
		return emptyMessage
	}
	var sb strings.Builder
	if err := summaryTmpl.Execute(&sb, payload); err != nil {
		// The template only reads exported struct fields, so this is
		// unreachable in practice.
		return emptyMessage
	}
	return sb.String()
}

// FromState coerces a navigation-state payload into a Confirmation. Views
// receive nav state as any; anything that is not a confirmation payload is
// treated as absent.
func FromState(state any, ok bool) *booking.Confirmation {
	if !ok {
		return nil
	}
	payload, good := state.(*booking.Confirmation)
	if !good {
		return nil
	}
	return payload
}
