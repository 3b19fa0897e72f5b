package booking

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrIllegalTransition = errors.New("illegal booking status transition")

// transitions is the complete set of legal status moves. Everything else
// fails loudly with ErrIllegalTransition.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

func canTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Notifier receives booking lifecycle events. Implementations must tolerate
// being called from background goroutines.
type Notifier interface {
	BookingCreated(b Booking) error
	BookingRescheduled(b Booking) error
	StatusChanged(b Booking, previous string) error
}

type NoopNotifier struct{}

func (NoopNotifier) BookingCreated(Booking) error        { return nil }
func (NoopNotifier) BookingRescheduled(Booking) error    { return nil }
func (NoopNotifier) StatusChanged(Booking, string) error { return nil }

// Transition moves a booking to a new status. The status precondition rides
// in the update filter, so a booking cancelled here can never race back into
// counting against capacity.
func (s *Service) Transition(ctx context.Context, bookingID, toStatus string) (Booking, error) {
	b, err := s.Get(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		return Booking{}, err
	}
	if !canTransition(b.Status, toStatus) {
		return Booking{}, ErrIllegalTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, b.ID, []string{b.Status}, toStatus, bson.M{"updatedAt": s.now()})
	if err != nil {
		// The precondition failed: someone moved the booking between our read
		// and the update.
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, ErrIllegalTransition
		}
		return Booking{}, err
	}

	previous := b.Status
	s.emit(func() error { return s.notifier.StatusChanged(updated, previous) })
	return updated, nil
}

// PaymentCaptured confirms a pending booking once the payment collaborator
// reports a successful charge.
func (s *Service) PaymentCaptured(ctx context.Context, bookingID string) (Booking, error) {
	return s.Transition(ctx, bookingID, StatusConfirmed)
}

// PaymentFailed cancels the pending booking so the slot opens up again.
func (s *Service) PaymentFailed(ctx context.Context, bookingID string) (Booking, error) {
	return s.Transition(ctx, bookingID, StatusCancelled)
}
