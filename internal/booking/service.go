package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"braidpilot-backend/internal/braiders"
	"braidpilot-backend/internal/capacity"
	"braidpilot-backend/internal/salons"
	"braidpilot-backend/internal/schedule"
	"braidpilot-backend/internal/styles"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound      = errors.New("booking not found")
	ErrSalonNotFound = errors.New("salon not found")
	ErrPastSlot      = errors.New("appointment slot is in the past")
)

// CapacityChecker is the slice of the capacity service the resolver needs.
type CapacityChecker interface {
	CheckSlot(ctx context.Context, salonID, date, timeStr string, durationMinutes int) (capacity.SlotCheck, error)
}

// StaffFinder ranks braider candidates for a slot.
type StaffFinder interface {
	AvailableBraiders(ctx context.Context, salonID, style, date, startTime string, durationMinutes int) ([]braiders.Candidate, error)
}

// SalonDirectory resolves salon configuration for the resolver.
type SalonDirectory interface {
	Get(ctx context.Context, id string) (salons.Salon, error)
}

type Service struct {
	repo     Repository
	capacity CapacityChecker
	staff    StaffFinder
	salons   SalonDirectory
	notifier Notifier
	location *time.Location
	log      *slog.Logger

	// pendingExpiry of zero disables the expiry sweep.
	pendingExpiry time.Duration

	now func() time.Time
}

func NewService(repo Repository, cap CapacityChecker, staff StaffFinder, dir SalonDirectory, notifier Notifier, location *time.Location, pendingExpiry time.Duration, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Service{
		repo:          repo,
		capacity:      cap,
		staff:         staff,
		salons:        dir,
		notifier:      notifier,
		location:      location,
		log:           log,
		pendingExpiry: pendingExpiry,
		now:           func() time.Time { return time.Now().In(location) },
	}
}

// Request resolves a booking request end to end: duration, capacity, braider
// assignment, client upsert, insert, and an optimistic re-validation of the
// insert. A refused request is an Outcome with a reason, not an error.
func (s *Service) Request(ctx context.Context, input RequestInput) (Outcome, error) {
	salon, err := s.salons.Get(ctx, input.SalonID)
	if err != nil {
		if errors.Is(err, salons.ErrNotFound) {
			return Outcome{}, ErrSalonNotFound
		}
		return Outcome{}, err
	}

	past, err := schedule.IsSlotPast(input.AppointmentDate, input.AppointmentTime, s.location, s.now())
	if err != nil {
		return Outcome{}, err
	}
	if past {
		return Outcome{}, ErrPastSlot
	}

	duration := input.DurationMinutes
	if duration <= 0 {
		duration = styles.DurationOrDefault(input.Style, salon.DefaultDurationMinutes)
	}
	if duration <= 0 {
		return rejected(ReasonInvalidDuration, "could not resolve a positive service duration"), nil
	}

	outcome, err := s.attempt(ctx, salon, input, duration)
	if err != nil {
		return Outcome{}, err
	}
	if outcome.Reason != ReasonConcurrentConflict {
		return outcome, nil
	}

	// A concurrent writer beat us to the last slot. One full retry; a second
	// loss is reported to the caller.
	outcome, err = s.attempt(ctx, salon, input, duration)
	if err != nil {
		return Outcome{}, err
	}
	if outcome.Reason == ReasonConcurrentConflict {
		return rejected(ReasonConcurrentConflict, "slot was taken by a concurrent booking; please pick another time"), nil
	}
	return outcome, nil
}

func (s *Service) attempt(ctx context.Context, salon salons.Salon, input RequestInput, duration int) (Outcome, error) {
	check, err := s.capacity.CheckSlot(ctx, salon.ID, input.AppointmentDate, input.AppointmentTime, duration)
	if err != nil {
		if errors.Is(err, capacity.ErrSalonNotFound) {
			return Outcome{}, ErrSalonNotFound
		}
		if errors.Is(err, schedule.ErrInvalidDuration) {
			return rejected(ReasonInvalidDuration, "service duration must be positive"), nil
		}
		return Outcome{}, err
	}
	if check.Blocked {
		return rejected(ReasonSlotBlocked, "requested time is blocked: "+check.BlockReason), nil
	}
	if !check.Available {
		return rejected(ReasonCapacityExceeded, "salon is fully booked for that time"), nil
	}

	braiderID, ok, err := s.pickBraider(ctx, salon, input, duration)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return rejected(ReasonNoQualifiedStaff, "no qualified braider is available for that slot"), nil
	}

	now := s.now()
	clientID, err := s.repo.UpsertClient(ctx, Client{
		SalonID:   salon.ID,
		Name:      strings.TrimSpace(input.ClientName),
		Email:     strings.ToLower(strings.TrimSpace(input.ClientEmail)),
		Phone:     strings.TrimSpace(input.ClientPhone),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Outcome{}, err
	}

	status := StatusPending
	if input.PaymentCaptured {
		status = StatusConfirmed
	}

	b := Booking{
		ID:              primitive.NewObjectID().Hex(),
		SalonID:         salon.ID,
		BraiderID:       braiderID,
		ClientID:        clientID,
		AppointmentDate: input.AppointmentDate,
		AppointmentTime: input.AppointmentTime,
		DurationMinutes: duration,
		Service: ServiceDetails{
			Style:      strings.TrimSpace(input.Style),
			Size:       strings.TrimSpace(input.Size),
			Length:     strings.TrimSpace(input.Length),
			FinalPrice: input.FinalPrice,
		},
		Status:    status,
		Notes:     strings.TrimSpace(input.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, b); err != nil {
		return Outcome{}, err
	}

	// Optimistic re-validation: recount with our own insert included. If the
	// slot is now over an enforced limit a concurrent writer got there first,
	// so we withdraw our insert and let the caller retry. A bypassed ceiling
	// still reports occupancy but never triggers a withdrawal.
	recount, err := s.capacity.CheckSlot(ctx, salon.ID, input.AppointmentDate, input.AppointmentTime, duration)
	if err != nil {
		return Outcome{}, err
	}
	if !recount.Available && recount.CurrentCount > recount.MaxCount {
		if err := s.repo.Remove(ctx, b.ID); err != nil {
			return Outcome{}, err
		}
		return rejected(ReasonConcurrentConflict, ""), nil
	}

	s.emit(func() error { return s.notifier.BookingCreated(b) })

	return Outcome{
		Accepted:  true,
		BookingID: b.ID,
		BraiderID: b.BraiderID,
		Status:    b.Status,
	}, nil
}

// pickBraider chooses a braider for the slot. A preferred braider is honored
// only when they are a qualified candidate; an unqualified preference falls
// back to the ranked list. With mandatory assignment and no qualified
// candidate the booking is refused; pooled salons accept it unassigned.
func (s *Service) pickBraider(ctx context.Context, salon salons.Salon, input RequestInput, duration int) (string, bool, error) {
	candidates, err := s.staff.AvailableBraiders(ctx, salon.ID, input.Style, input.AppointmentDate, input.AppointmentTime, duration)
	if err != nil {
		return "", false, err
	}

	if preferred := strings.TrimSpace(input.PreferredBraiderID); preferred != "" {
		for _, c := range candidates {
			if c.BraiderID == preferred && c.IsQualified {
				return preferred, true, nil
			}
		}
	}

	for _, c := range candidates {
		if c.IsQualified {
			return c.BraiderID, true, nil
		}
	}

	if salon.RequireBraiderAssignment {
		return "", false, nil
	}
	return "", true, nil
}

func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	b, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, salonID, status, date string, limit, offset int64) ([]Booking, error) {
	return s.repo.ListBySalon(ctx, strings.TrimSpace(salonID), status, date, limit, offset)
}

// Reassign moves a booking to another braider after checking that braider can
// actually take the slot. An empty braiderID returns the booking to the pool.
func (s *Service) Reassign(ctx context.Context, bookingID, braiderID string) (Booking, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return Booking{}, ErrIllegalTransition
	}

	braiderID = strings.TrimSpace(braiderID)
	if braiderID != "" && braiderID != b.BraiderID {
		candidates, err := s.staff.AvailableBraiders(ctx, b.SalonID, b.Service.Style, b.AppointmentDate, b.AppointmentTime, b.DurationMinutes)
		if err != nil {
			return Booking{}, err
		}
		found := false
		for _, c := range candidates {
			if c.BraiderID == braiderID {
				found = true
				break
			}
		}
		if !found {
			return Booking{}, braiders.ErrNotFound
		}
	}

	updated, err := s.repo.SetAssignment(ctx, b.ID, braiderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	return updated, nil
}

// Reschedule moves a live booking to a new slot, re-validated through the
// capacity model and against the assigned braider's calendar. The booking's
// own slot still counts during both checks, so a move inside a full window
// can be refused; that errs on the side of never overbooking. When the
// assigned braider cannot take the new slot the booking returns to the pool,
// unless the salon requires assignment, in which case the move is refused.
func (s *Service) Reschedule(ctx context.Context, bookingID, newDate, newTime string) (Outcome, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return Outcome{}, err
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return Outcome{}, ErrIllegalTransition
	}

	past, err := schedule.IsSlotPast(newDate, newTime, s.location, s.now())
	if err != nil {
		return Outcome{}, err
	}
	if past {
		return Outcome{}, ErrPastSlot
	}

	check, err := s.capacity.CheckSlot(ctx, b.SalonID, newDate, newTime, b.DurationMinutes)
	if err != nil {
		return Outcome{}, err
	}
	if check.Blocked {
		return rejected(ReasonSlotBlocked, "requested time is blocked: "+check.BlockReason), nil
	}
	if !check.Available {
		return rejected(ReasonCapacityExceeded, "salon is fully booked for that time"), nil
	}

	if b.BraiderID != "" {
		candidates, err := s.staff.AvailableBraiders(ctx, b.SalonID, b.Service.Style, newDate, newTime, b.DurationMinutes)
		if err != nil {
			return Outcome{}, err
		}
		free := false
		for _, c := range candidates {
			if c.BraiderID == b.BraiderID {
				free = true
				break
			}
		}
		if !free {
			salon, err := s.salons.Get(ctx, b.SalonID)
			if err != nil {
				if errors.Is(err, salons.ErrNotFound) {
					return Outcome{}, ErrSalonNotFound
				}
				return Outcome{}, err
			}
			if salon.RequireBraiderAssignment {
				return rejected(ReasonNoQualifiedStaff, "assigned braider is not available at the new time"), nil
			}
			if _, err := s.repo.SetAssignment(ctx, b.ID, ""); err != nil {
				return Outcome{}, err
			}
		}
	}

	updated, err := s.repo.SetSchedule(ctx, b.ID, newDate, newTime)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, err
	}

	s.emit(func() error { return s.notifier.BookingRescheduled(updated) })

	return Outcome{
		Accepted:  true,
		BookingID: updated.ID,
		BraiderID: updated.BraiderID,
		Status:    updated.Status,
	}, nil
}

// ExpirePending cancels pending bookings older than the configured expiry
// window. Returns the number of bookings cancelled; a zero window disables
// the sweep.
func (s *Service) ExpirePending(ctx context.Context, salonID string, now time.Time) (int, error) {
	if s.pendingExpiry <= 0 {
		return 0, nil
	}

	cutoff := now.Add(-s.pendingExpiry)
	expired, err := s.repo.ListExpiredPending(ctx, strings.TrimSpace(salonID), cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, b := range expired {
		updated, err := s.repo.UpdateStatus(ctx, b.ID, []string{StatusPending}, StatusCancelled, bson.M{"updatedAt": s.now()})
		if err != nil {
			// Raced by a confirm or cancel; skip it.
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return cancelled, err
		}
		cancelled++
		s.emit(func() error { return s.notifier.StatusChanged(updated, StatusPending) })
	}
	return cancelled, nil
}

// emit runs a notification in the background. Delivery failures are logged
// and never affect the booking outcome.
func (s *Service) emit(send func() error) {
	go func() {
		if err := send(); err != nil {
			s.log.Warn("booking notification failed", slog.String("error", err.Error()))
		}
	}()
}
