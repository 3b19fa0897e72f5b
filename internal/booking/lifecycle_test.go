package booking

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordedEvent struct {
	booking  Booking
	previous string
}

type channelNotifier struct {
	events chan recordedEvent
}

func newChannelNotifier() *channelNotifier {
	return &channelNotifier{events: make(chan recordedEvent, 8)}
}

func (n *channelNotifier) BookingCreated(b Booking) error {
	n.events <- recordedEvent{booking: b}
	return nil
}

func (n *channelNotifier) BookingRescheduled(b Booking) error {
	n.events <- recordedEvent{booking: b}
	return nil
}

func (n *channelNotifier) StatusChanged(b Booking, previous string) error {
	n.events <- recordedEvent{booking: b, previous: previous}
	return nil
}

func (n *channelNotifier) wait(t *testing.T) recordedEvent {
	t.Helper()
	select {
	case ev := <-n.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for notification")
		return recordedEvent{}
	}
}

func TestTransitionMatrix(t *testing.T) {
	cases := []struct {
		from  string
		to    string
		legal bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusNoShow, false},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNoShow, StatusCompleted, false},
	}

	for _, tc := range cases {
		repo := &fakeRepo{bookings: []Booking{{ID: "bk1", SalonID: "salon-1", Status: tc.from}}}
		svc := newTestService(repo, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)

		updated, err := svc.Transition(context.Background(), "bk1", tc.to)
		if tc.legal {
			if err != nil {
				t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
				continue
			}
			if updated.Status != tc.to {
				t.Errorf("%s -> %s: status is %q", tc.from, tc.to, updated.Status)
			}
			continue
		}
		if !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("%s -> %s: expected ErrIllegalTransition, got %v", tc.from, tc.to, err)
		}
	}
}

func TestTransitionUnknownBooking(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)
	if _, err := svc.Transition(context.Background(), "missing", StatusConfirmed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionEmitsNotification(t *testing.T) {
	repo := &fakeRepo{bookings: []Booking{{ID: "bk1", SalonID: "salon-1", Status: StatusPending}}}
	svc := newTestService(repo, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)
	notifier := newChannelNotifier()
	svc.notifier = notifier

	if _, err := svc.Transition(context.Background(), "bk1", StatusConfirmed); err != nil {
		t.Fatalf("Transition error: %v", err)
	}

	ev := notifier.wait(t)
	if ev.booking.Status != StatusConfirmed || ev.previous != StatusPending {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestPaymentSignals(t *testing.T) {
	repo := &fakeRepo{bookings: []Booking{
		{ID: "ok", SalonID: "salon-1", Status: StatusPending},
		{ID: "bad", SalonID: "salon-1", Status: StatusPending},
	}}
	svc := newTestService(repo, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)

	confirmed, err := svc.PaymentCaptured(context.Background(), "ok")
	if err != nil {
		t.Fatalf("PaymentCaptured error: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %q", confirmed.Status)
	}

	cancelled, err := svc.PaymentFailed(context.Background(), "bad")
	if err != nil {
		t.Fatalf("PaymentFailed error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %q", cancelled.Status)
	}

	// A failed payment on an already-cancelled booking is illegal.
	if _, err := svc.PaymentFailed(context.Background(), "bad"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestExpirePendingSweep(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{bookings: []Booking{
		{ID: "old", SalonID: "salon-1", Status: StatusPending, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "fresh", SalonID: "salon-1", Status: StatusPending, CreatedAt: now.Add(-10 * time.Minute)},
		{ID: "paid", SalonID: "salon-1", Status: StatusConfirmed, CreatedAt: now.Add(-3 * time.Hour)},
	}}
	svc := newTestService(repo, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 30*time.Minute)

	cancelled, err := svc.ExpirePending(context.Background(), "salon-1", now)
	if err != nil {
		t.Fatalf("ExpirePending error: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected 1 expired booking, got %d", cancelled)
	}

	byID := make(map[string]string, len(repo.bookings))
	for _, b := range repo.bookings {
		byID[b.ID] = b.Status
	}
	if byID["old"] != StatusCancelled {
		t.Fatalf("expected old pending cancelled, got %q", byID["old"])
	}
	if byID["fresh"] != StatusPending || byID["paid"] != StatusConfirmed {
		t.Fatalf("sweep touched the wrong bookings: %v", byID)
	}
}

func TestExpirePendingDisabled(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{bookings: []Booking{
		{ID: "old", SalonID: "salon-1", Status: StatusPending, CreatedAt: now.Add(-48 * time.Hour)},
	}}
	svc := newTestService(repo, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)

	cancelled, err := svc.ExpirePending(context.Background(), "salon-1", now)
	if err != nil {
		t.Fatalf("ExpirePending error: %v", err)
	}
	if cancelled != 0 {
		t.Fatalf("expiry disabled, expected 0, got %d", cancelled)
	}
	if repo.bookings[0].Status != StatusPending {
		t.Fatalf("disabled sweep must not touch bookings")
	}
}
