package notifications

import (
	"context"
	"fmt"
	"time"

	"braidpilot-backend/internal/booking"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EmailNotifier turns booking lifecycle events into Brevo transactional
// emails. It looks the client up itself because events carry only the
// client id.
type EmailNotifier struct {
	brevo   *BrevoClient
	clients *mongo.Collection
}

func NewEmailNotifier(brevo *BrevoClient, clients *mongo.Collection) *EmailNotifier {
	if brevo == nil || clients == nil {
		return nil
	}
	return &EmailNotifier{
		brevo:   brevo,
		clients: clients,
	}
}

func (n *EmailNotifier) BookingCreated(b booking.Booking) error {
	lead := "We received your booking request. We will confirm it shortly."
	if b.Status == booking.StatusConfirmed {
		lead = "Your appointment is confirmed. Here are the details:"
	}
	return n.send(b, "Booking received - "+b.Service.Style, lead)
}

func (n *EmailNotifier) BookingRescheduled(b booking.Booking) error {
	return n.send(b, "Appointment rescheduled - "+b.Service.Style,
		"Your appointment has been moved. The new details are:")
}

func (n *EmailNotifier) StatusChanged(b booking.Booking, previous string) error {
	subject := fmt.Sprintf("Appointment %s - %s", b.Status, b.Service.Style)
	return n.send(b, subject, statusLead(b.Status, previous))
}

func (n *EmailNotifier) send(b booking.Booking, subject, lead string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var client struct {
		Name  string `bson:"name"`
		Email string `bson:"email"`
	}
	if err := n.clients.FindOne(ctx, bson.M{"_id": b.ClientID}).Decode(&client); err != nil {
		return fmt.Errorf("resolve client %s: %w", b.ClientID, err)
	}

	html, err := buildBookingEmailHTML(b, client.Name, lead)
	if err != nil {
		return err
	}
	_, err = n.brevo.sendHTML(ctx, client.Email, client.Name, subject, html)
	return err
}
