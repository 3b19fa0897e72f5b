package notifications

import (
	"bytes"
	"html/template"

	"braidpilot-backend/internal/booking"
)

const bookingEmailTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>{{.Lead}}</p>
  <ul>
    <li>Style: {{.Style}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}}</li>
    <li>Duration: {{.DurationMinutes}} minutes</li>
    {{if .Price}}<li>Price: ${{.Price}}</li>{{end}}
    <li>Booking reference: {{.BookingID}}</li>
  </ul>
  <p>If anything changes, reply to this email and we will sort it out.</p>
</body>
</html>`

var bookingEmailTmpl = template.Must(template.New("booking_email").Parse(bookingEmailTemplate))

type bookingEmailData struct {
	Name            string
	Lead            string
	Style           string
	Date            string
	Time            string
	DurationMinutes int
	Price           float64
	BookingID       string
}

func buildBookingEmailHTML(b booking.Booking, clientName, lead string) (string, error) {
	data := bookingEmailData{
		Name:            clientName,
		Lead:            lead,
		Style:           b.Service.Style,
		Date:            b.AppointmentDate,
		Time:            b.AppointmentTime,
		DurationMinutes: b.DurationMinutes,
		Price:           b.Service.FinalPrice,
		BookingID:       b.ID,
	}
	var buf bytes.Buffer
	if err := bookingEmailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func statusLead(status, previous string) string {
	switch status {
	case booking.StatusConfirmed:
		return "Your appointment is confirmed. Here are the details:"
	case booking.StatusCancelled:
		if previous == booking.StatusPending {
			return "Your booking request was cancelled. The details were:"
		}
		return "Your appointment has been cancelled. The details were:"
	case booking.StatusCompleted:
		return "Thanks for visiting us! Here is a recap of your appointment:"
	default:
		return "There is an update on your appointment:"
	}
}
