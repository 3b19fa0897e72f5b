package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"braidpilot-backend/internal/braiders"
	"braidpilot-backend/internal/capacity"
	"braidpilot-backend/internal/salons"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	bookings []Booking
	removed  []string
	clients  []Client
}

func (f *fakeRepo) Insert(ctx context.Context, b Booking) error {
	f.bookings = append(f.bookings, b)
	return nil
}

func (f *fakeRepo) Remove(ctx context.Context, id string) error {
	for i, b := range f.bookings {
		if b.ID == id {
			f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
			f.removed = append(f.removed, id)
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return Booking{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id string, fromStatuses []string, toStatus string, set bson.M) (Booking, error) {
	for i, b := range f.bookings {
		if b.ID != id {
			continue
		}
		allowed := len(fromStatuses) == 0
		for _, s := range fromStatuses {
			if b.Status == s {
				allowed = true
			}
		}
		if !allowed {
			return Booking{}, mongo.ErrNoDocuments
		}
		f.bookings[i].Status = toStatus
		return f.bookings[i], nil
	}
	return Booking{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) SetAssignment(ctx context.Context, id, braiderID string) (Booking, error) {
	for i, b := range f.bookings {
		if b.ID == id {
			f.bookings[i].BraiderID = braiderID
			return f.bookings[i], nil
		}
	}
	return Booking{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) SetSchedule(ctx context.Context, id, date, timeStr string) (Booking, error) {
	for i, b := range f.bookings {
		if b.ID == id {
			f.bookings[i].AppointmentDate = date
			f.bookings[i].AppointmentTime = timeStr
			return f.bookings[i], nil
		}
	}
	return Booking{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) ListBySalon(ctx context.Context, salonID, status, date string, limit, offset int64) ([]Booking, error) {
	return f.bookings, nil
}

func (f *fakeRepo) ListExpiredPending(ctx context.Context, salonID string, cutoff time.Time) ([]Booking, error) {
	expired := make([]Booking, 0)
	for _, b := range f.bookings {
		if b.Status == StatusPending && b.CreatedAt.Before(cutoff) {
			expired = append(expired, b)
		}
	}
	return expired, nil
}

func (f *fakeRepo) UpsertClient(ctx context.Context, client Client) (string, error) {
	f.clients = append(f.clients, client)
	return "client-1", nil
}

// fakeCapacity pops scripted responses; when the script runs out it answers
// with a wide-open slot.
type fakeCapacity struct {
	script []capacity.SlotCheck
	calls  int
}

func (f *fakeCapacity) CheckSlot(ctx context.Context, salonID, date, timeStr string, durationMinutes int) (capacity.SlotCheck, error) {
	f.calls++
	if len(f.script) == 0 {
		return capacity.SlotCheck{Available: true, CurrentCount: 1, MaxCount: 3, Remaining: 2}, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next, nil
}

type fakeStaff struct {
	candidates []braiders.Candidate
}

func (f *fakeStaff) AvailableBraiders(ctx context.Context, salonID, style, date, startTime string, durationMinutes int) ([]braiders.Candidate, error) {
	return f.candidates, nil
}

type fakeSalons struct {
	salon salons.Salon
}

func (f *fakeSalons) Get(ctx context.Context, id string) (salons.Salon, error) {
	if id != f.salon.ID {
		return salons.Salon{}, salons.ErrNotFound
	}
	return f.salon, nil
}

func testSalon(mandatory bool) salons.Salon {
	return salons.Salon{
		ID:                       "salon-1",
		Name:                     "Crown & Glory",
		MaxConcurrentBookings:    3,
		BufferMinutes:            30,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: true,
		RequireBraiderAssignment: mandatory,
	}
}

func testInput() RequestInput {
	return RequestInput{
		SalonID:         "salon-1",
		ClientName:      "Nia Carter",
		ClientEmail:     "nia@example.com",
		AppointmentDate: "2026-10-05",
		AppointmentTime: "10:00",
		Style:           "Box Braids",
		FinalPrice:      180,
	}
}

func newTestService(repo Repository, cap CapacityChecker, staff StaffFinder, salon salons.Salon, expiry time.Duration) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, cap, staff, &fakeSalons{salon: salon}, NoopNotifier{}, time.UTC, expiry, log)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestRequestAcceptedAssignsBestCandidate(t *testing.T) {
	repo := &fakeRepo{}
	staff := &fakeStaff{candidates: []braiders.Candidate{
		{BraiderID: "b1", IsQualified: true},
		{BraiderID: "b2", IsQualified: true},
	}}
	svc := newTestService(repo, &fakeCapacity{}, staff, testSalon(false), 0)

	outcome, err := svc.Request(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected accepted, got %+v", outcome)
	}
	if outcome.BraiderID != "b1" {
		t.Fatalf("expected best candidate b1, got %q", outcome.BraiderID)
	}
	if outcome.Status != StatusPending {
		t.Fatalf("expected pending booking, got %q", outcome.Status)
	}
	if len(repo.bookings) != 1 || len(repo.clients) != 1 {
		t.Fatalf("expected booking and client persisted, got %d/%d", len(repo.bookings), len(repo.clients))
	}
	if repo.bookings[0].DurationMinutes != 240 {
		t.Fatalf("expected catalog duration 240 for box braids, got %d", repo.bookings[0].DurationMinutes)
	}
}

func TestRequestHonorsPreferredBraider(t *testing.T) {
	staff := &fakeStaff{candidates: []braiders.Candidate{
		{BraiderID: "b1", IsQualified: true},
		{BraiderID: "b2", IsQualified: true},
	}}
	svc := newTestService(&fakeRepo{}, &fakeCapacity{}, staff, testSalon(false), 0)

	input := testInput()
	input.PreferredBraiderID = "b2"
	outcome, err := svc.Request(context.Background(), input)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if outcome.BraiderID != "b2" {
		t.Fatalf("expected preferred braider b2, got %q", outcome.BraiderID)
	}
}

func TestRequestIgnoresAbsentPreferredBraider(t *testing.T) {
	staff := &fakeStaff{candidates: []braiders.Candidate{
		{BraiderID: "b1", IsQualified: true},
	}}
	svc := newTestService(&fakeRepo{}, &fakeCapacity{}, staff, testSalon(false), 0)

	input := testInput()
	input.PreferredBraiderID = "ghost"
	outcome, err := svc.Request(context.Background(), input)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if outcome.BraiderID != "b1" {
		t.Fatalf("expected fallback to b1, got %q", outcome.BraiderID)
	}
}

func TestRequestRefusesUnqualifiedPreferredBraider(t *testing.T) {
	repo := &fakeRepo{}
	staff := &fakeStaff{candidates: []braiders.Candidate{
		{BraiderID: "b1", IsQualified: false},
	}}
	svc := newTestService(repo, &fakeCapacity{}, staff, testSalon(true), 0)

	input := testInput()
	input.PreferredBraiderID = "b1"
	outcome, err := svc.Request(context.Background(), input)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != ReasonNoQualifiedStaff {
		t.Fatalf("expected NO_QUALIFIED_STAFF for unqualified preference, got %+v", outcome)
	}
	if len(repo.bookings) != 0 {
		t.Fatalf("rejected request must not persist a booking")
	}
}

func TestRequestUnqualifiedPreferenceFallsBackToQualified(t *testing.T) {
	staff := &fakeStaff{candidates: []braiders.Candidate{
		{BraiderID: "b1", IsQualified: false},
		{BraiderID: "b2", IsQualified: true},
	}}
	svc := newTestService(&fakeRepo{}, &fakeCapacity{}, staff, testSalon(false), 0)

	input := testInput()
	input.PreferredBraiderID = "b1"
	outcome, err := svc.Request(context.Background(), input)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if !outcome.Accepted || outcome.BraiderID != "b2" {
		t.Fatalf("expected qualified b2 over unqualified preference, got %+v", outcome)
	}
}

func TestRequestCapacityExceeded(t *testing.T) {
	repo := &fakeRepo{}
	cap := &fakeCapacity{script: []capacity.SlotCheck{
		{Available: false, CurrentCount: 3, MaxCount: 3},
	}}
	svc := newTestService(repo, cap, &fakeStaff{}, testSalon(false), 0)

	outcome, err := svc.Request(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != ReasonCapacityExceeded {
		t.Fatalf("expected CAPACITY_EXCEEDED rejection, got %+v", outcome)
	}
	if len(repo.bookings) != 0 {
		t.Fatalf("rejected request must not persist a booking")
	}
}

func TestRequestSlotBlocked(t *testing.T) {
	cap := &fakeCapacity{script: []capacity.SlotCheck{
		{Available: false, Blocked: true, BlockReason: "staff training"},
	}}
	svc := newTestService(&fakeRepo{}, cap, &fakeStaff{}, testSalon(false), 0)

	outcome, err := svc.Request(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != ReasonSlotBlocked {
		t.Fatalf("expected SLOT_BLOCKED rejection, got %+v", outcome)
	}
}

func TestRequestMandatoryModeNoStaff(t *testing.T) {
	repo := &fakeRepo{}
	staff := &fakeStaff{candidates: []braiders.Candidate{
		{BraiderID: "b1", IsQualified: false},
	}}
	svc := newTestService(repo, &fakeCapacity{}, staff, testSalon(true), 0)

	outcome, err := svc.Request(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != ReasonNoQualifiedStaff {
		t.Fatalf("expected NO_QUALIFIED_STAFF rejection, got %+v", outcome)
	}
	if len(repo.bookings) != 0 {
		t.Fatalf("rejected request must not persist a booking")
	}
}

func TestRequestPooledModeAcceptsUnassigned(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)

	outcome, err := svc.Request(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("pooled salon must accept without a braider, got %+v", outcome)
	}
	if outcome.BraiderID != "" {
		t.Fatalf("expected unassigned booking, got braider %q", outcome.BraiderID)
	}
}

func TestRequestPaymentCapturedConfirms(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)

	input := testInput()
	input.PaymentCaptured = true
	outcome, err := svc.Request(context.Background(), input)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if outcome.Status != StatusConfirmed {
		t.Fatalf("expected confirmed booking, got %q", outcome.Status)
	}
}

func TestRequestConcurrentConflictRetries(t *testing.T) {
	repo := &fakeRepo{}
	// First attempt: slot open, then the recount finds one booking too many.
	// The retry sees a clean slot and its recount holds.
	cap := &fakeCapacity{script: []capacity.SlotCheck{
		{Available: true, CurrentCount: 2, MaxCount: 3},
		{Available: false, CurrentCount: 4, MaxCount: 3},
		{Available: true, CurrentCount: 2, MaxCount: 3},
		{Available: false, CurrentCount: 3, MaxCount: 3},
	}}
	svc := newTestService(repo, cap, &fakeStaff{}, testSalon(false), 0)

	outcome, err := svc.Request(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected retry to succeed, got %+v", outcome)
	}
	if len(repo.bookings) != 1 {
		t.Fatalf("expected exactly one surviving booking, got %d", len(repo.bookings))
	}
	if len(repo.removed) != 1 {
		t.Fatalf("expected the losing insert withdrawn, got %d removals", len(repo.removed))
	}
}

func TestRequestConcurrentConflictGivesUpAfterOneRetry(t *testing.T) {
	repo := &fakeRepo{}
	cap := &fakeCapacity{script: []capacity.SlotCheck{
		{Available: true, CurrentCount: 2, MaxCount: 3},
		{Available: false, CurrentCount: 4, MaxCount: 3},
		{Available: true, CurrentCount: 2, MaxCount: 3},
		{Available: false, CurrentCount: 4, MaxCount: 3},
	}}
	svc := newTestService(repo, cap, &fakeStaff{}, testSalon(false), 0)

	outcome, err := svc.Request(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != ReasonConcurrentConflict {
		t.Fatalf("expected CONCURRENT_CONFLICT, got %+v", outcome)
	}
	if len(repo.bookings) != 0 {
		t.Fatalf("no booking may survive a double conflict, got %d", len(repo.bookings))
	}
	if cap.calls != 4 {
		t.Fatalf("expected exactly 2 attempts (4 checks), got %d checks", cap.calls)
	}
}

func TestRequestPastSlot(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)

	input := testInput()
	input.AppointmentDate = "2026-06-01"
	if _, err := svc.Request(context.Background(), input); !errors.Is(err, ErrPastSlot) {
		t.Fatalf("expected ErrPastSlot, got %v", err)
	}
}

func TestRequestUnknownSalon(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)

	input := testInput()
	input.SalonID = "missing"
	if _, err := svc.Request(context.Background(), input); !errors.Is(err, ErrSalonNotFound) {
		t.Fatalf("expected ErrSalonNotFound, got %v", err)
	}
}

func TestRescheduleRevalidatesCapacity(t *testing.T) {
	repo := &fakeRepo{bookings: []Booking{{
		ID:              "bk1",
		SalonID:         "salon-1",
		AppointmentDate: "2026-10-05",
		AppointmentTime: "10:00",
		DurationMinutes: 240,
		Status:          StatusConfirmed,
	}}}
	cap := &fakeCapacity{script: []capacity.SlotCheck{
		{Available: false, CurrentCount: 3, MaxCount: 3},
	}}
	svc := newTestService(repo, cap, &fakeStaff{}, testSalon(false), 0)

	outcome, err := svc.Reschedule(context.Background(), "bk1", "2026-10-06", "11:00")
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != ReasonCapacityExceeded {
		t.Fatalf("expected capacity rejection, got %+v", outcome)
	}
	if repo.bookings[0].AppointmentDate != "2026-10-05" {
		t.Fatalf("rejected reschedule must not move the booking")
	}

	// Open slot: the move goes through.
	outcome, err = svc.Reschedule(context.Background(), "bk1", "2026-10-06", "11:00")
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected accepted reschedule, got %+v", outcome)
	}
	if repo.bookings[0].AppointmentDate != "2026-10-06" || repo.bookings[0].AppointmentTime != "11:00" {
		t.Fatalf("booking not moved: %+v", repo.bookings[0])
	}
}

func TestRescheduleChecksBraiderCalendar(t *testing.T) {
	// The assigned braider is not among the candidates for the new slot, so
	// a mandatory-assignment salon must refuse the move.
	repo := &fakeRepo{bookings: []Booking{{
		ID:              "bk1",
		SalonID:         "salon-1",
		BraiderID:       "b1",
		AppointmentDate: "2026-10-05",
		AppointmentTime: "16:00",
		DurationMinutes: 240,
		Status:          StatusConfirmed,
	}}}
	staff := &fakeStaff{candidates: []braiders.Candidate{{BraiderID: "b2", IsQualified: true}}}
	svc := newTestService(repo, &fakeCapacity{}, staff, testSalon(true), 0)

	outcome, err := svc.Reschedule(context.Background(), "bk1", "2026-10-05", "10:30")
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != ReasonNoQualifiedStaff {
		t.Fatalf("expected rejection for busy braider, got %+v", outcome)
	}
	if repo.bookings[0].AppointmentTime != "16:00" || repo.bookings[0].BraiderID != "b1" {
		t.Fatalf("rejected reschedule must not touch the booking: %+v", repo.bookings[0])
	}
}

func TestRescheduleReturnsBusyBraiderToPool(t *testing.T) {
	repo := &fakeRepo{bookings: []Booking{{
		ID:              "bk1",
		SalonID:         "salon-1",
		BraiderID:       "b1",
		AppointmentDate: "2026-10-05",
		AppointmentTime: "16:00",
		DurationMinutes: 240,
		Status:          StatusConfirmed,
	}}}
	staff := &fakeStaff{candidates: []braiders.Candidate{{BraiderID: "b2", IsQualified: true}}}
	svc := newTestService(repo, &fakeCapacity{}, staff, testSalon(false), 0)

	outcome, err := svc.Reschedule(context.Background(), "bk1", "2026-10-05", "10:30")
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected pooled salon to accept the move, got %+v", outcome)
	}
	moved := repo.bookings[0]
	if moved.AppointmentTime != "10:30" {
		t.Fatalf("booking not moved: %+v", moved)
	}
	if moved.BraiderID != "" {
		t.Fatalf("busy braider must be unassigned on move, got %q", moved.BraiderID)
	}
}

func TestRescheduleKeepsFreeBraider(t *testing.T) {
	repo := &fakeRepo{bookings: []Booking{{
		ID:              "bk1",
		SalonID:         "salon-1",
		BraiderID:       "b1",
		AppointmentDate: "2026-10-05",
		AppointmentTime: "16:00",
		DurationMinutes: 240,
		Status:          StatusConfirmed,
	}}}
	staff := &fakeStaff{candidates: []braiders.Candidate{{BraiderID: "b1", IsQualified: true}}}
	svc := newTestService(repo, &fakeCapacity{}, staff, testSalon(true), 0)

	outcome, err := svc.Reschedule(context.Background(), "bk1", "2026-10-06", "11:00")
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if !outcome.Accepted || outcome.BraiderID != "b1" {
		t.Fatalf("expected move with braider kept, got %+v", outcome)
	}
}

func TestRescheduleTerminalBooking(t *testing.T) {
	repo := &fakeRepo{bookings: []Booking{{
		ID:     "bk1",
		Status: StatusCompleted,
	}}}
	svc := newTestService(repo, &fakeCapacity{}, &fakeStaff{}, testSalon(false), 0)

	if _, err := svc.Reschedule(context.Background(), "bk1", "2026-10-06", "11:00"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestReassignChecksAvailability(t *testing.T) {
	repo := &fakeRepo{bookings: []Booking{{
		ID:              "bk1",
		SalonID:         "salon-1",
		BraiderID:       "b1",
		AppointmentDate: "2026-10-05",
		AppointmentTime: "10:00",
		DurationMinutes: 240,
		Status:          StatusConfirmed,
	}}}
	staff := &fakeStaff{candidates: []braiders.Candidate{{BraiderID: "b2", IsQualified: true}}}
	svc := newTestService(repo, &fakeCapacity{}, staff, testSalon(false), 0)

	if _, err := svc.Reassign(context.Background(), "bk1", "b3"); !errors.Is(err, braiders.ErrNotFound) {
		t.Fatalf("expected unavailable braider error, got %v", err)
	}

	updated, err := svc.Reassign(context.Background(), "bk1", "b2")
	if err != nil {
		t.Fatalf("Reassign error: %v", err)
	}
	if updated.BraiderID != "b2" {
		t.Fatalf("expected b2 assigned, got %q", updated.BraiderID)
	}

	// Empty braider id returns the booking to the pool.
	updated, err = svc.Reassign(context.Background(), "bk1", "")
	if err != nil {
		t.Fatalf("Reassign error: %v", err)
	}
	if updated.BraiderID != "" {
		t.Fatalf("expected pooled booking, got %q", updated.BraiderID)
	}
}
