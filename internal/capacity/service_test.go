package capacity

import (
	"context"
	"testing"
	"time"

	"braidpilot-backend/internal/schedule"
)

type fakeRepo struct {
	settings  Settings
	intervals map[string][]BookedInterval
	blocks    map[string][]BlockedSlot
	nextID    int
}

func newFakeRepo(settings Settings) *fakeRepo {
	return &fakeRepo{
		settings:  settings,
		intervals: make(map[string][]BookedInterval),
		blocks:    make(map[string][]BlockedSlot),
	}
}

func (f *fakeRepo) Settings(ctx context.Context, salonID string) (Settings, error) {
	return f.settings, nil
}

func (f *fakeRepo) ActiveIntervals(ctx context.Context, salonID, date string) ([]BookedInterval, error) {
	return f.intervals[date], nil
}

func (f *fakeRepo) BlocksForDate(ctx context.Context, salonID, date string) ([]BlockedSlot, error) {
	return f.blocks[date], nil
}

func (f *fakeRepo) InsertBlock(ctx context.Context, slot BlockedSlot) error {
	f.blocks[slot.Date] = append(f.blocks[slot.Date], slot)
	return nil
}

func (f *fakeRepo) DeleteBlock(ctx context.Context, id string) error {
	for date, slots := range f.blocks {
		kept := slots[:0]
		for _, slot := range slots {
			if slot.ID != id {
				kept = append(kept, slot)
			}
		}
		f.blocks[date] = kept
	}
	return nil
}

func (f *fakeRepo) addBooking(date, timeStr string, duration int) {
	start, _ := schedule.ParseClockToMinutes(timeStr)
	f.intervals[date] = append(f.intervals[date], BookedInterval{StartMinutes: start, DurationMinutes: duration})
}

func newTestService(repo Repository) *Service {
	return NewService(repo, time.UTC)
}

func TestCheckSlotCapacityExceeded(t *testing.T) {
	// Two concurrent max, two overlapping bookings already on the calendar.
	repo := newFakeRepo(Settings{
		MaxConcurrentBookings:    2,
		BufferMinutes:            0,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: true,
	})
	repo.addBooking("2026-06-01", "10:00", 60)
	repo.addBooking("2026-06-01", "10:30", 60)

	svc := newTestService(repo)
	check, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "10:45", 30)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if check.Available {
		t.Fatalf("expected slot to be full, got %+v", check)
	}
	if check.CurrentCount != 2 || check.MaxCount != 2 {
		t.Fatalf("unexpected counts: %+v", check)
	}
}

func TestCheckSlotUnderCapacity(t *testing.T) {
	repo := newFakeRepo(Settings{
		MaxConcurrentBookings:    2,
		BufferMinutes:            0,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: true,
	})
	repo.addBooking("2026-06-01", "10:00", 60)

	svc := newTestService(repo)
	check, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "10:30", 60)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if !check.Available {
		t.Fatalf("expected availability with one slot left, got %+v", check)
	}
	if check.Remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d", check.Remaining)
	}
}

func TestCheckSlotBufferConflict(t *testing.T) {
	repo := newFakeRepo(Settings{
		MaxConcurrentBookings:    1,
		BufferMinutes:            15,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: true,
	})
	repo.addBooking("2026-06-01", "10:00", 60) // ends 11:00

	svc := newTestService(repo)

	// 11:10 start leaves a 10 minute gap, under the 15 minute buffer.
	check, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "11:10", 50)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if check.Available {
		t.Fatalf("expected buffer conflict, got %+v", check)
	}

	// 11:20 clears the buffer.
	check, err = svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "11:20", 40)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if !check.Available {
		t.Fatalf("expected availability past buffer, got %+v", check)
	}
}

func TestCheckSlotBlockedPrecedence(t *testing.T) {
	// No bookings at all, but the range is administratively blocked.
	repo := newFakeRepo(Settings{
		MaxConcurrentBookings:    3,
		BufferMinutes:            0,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: true,
	})
	svc := newTestService(repo)

	if _, err := svc.Block(context.Background(), "salon-1", "2026-06-01", "14:00", "15:00", "maintenance"); err != nil {
		t.Fatalf("Block error: %v", err)
	}

	check, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "14:30", 30)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if check.Available || !check.Blocked {
		t.Fatalf("expected blocked slot, got %+v", check)
	}
	if check.BlockReason != "maintenance" {
		t.Fatalf("unexpected block reason: %q", check.BlockReason)
	}
}

func TestCheckSlotCapacityBypass(t *testing.T) {
	repo := newFakeRepo(Settings{
		MaxConcurrentBookings:    1,
		BufferMinutes:            0,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: false,
	})
	repo.addBooking("2026-06-01", "10:00", 120)
	repo.addBooking("2026-06-01", "10:30", 120)

	svc := newTestService(repo)
	check, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "10:30", 60)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if !check.Available {
		t.Fatalf("expected bypass to allow booking, got %+v", check)
	}
	// Enforcement is off but occupancy is still real.
	if check.CurrentCount != 2 || check.Remaining != 0 {
		t.Fatalf("expected occupancy 2/0 reported under bypass, got %+v", check)
	}
}

func TestCheckSlotBlockWinsOverBypass(t *testing.T) {
	repo := newFakeRepo(Settings{
		MaxConcurrentBookings:    1,
		BufferMinutes:            0,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: false,
	})
	svc := newTestService(repo)

	if _, err := svc.Block(context.Background(), "salon-1", "2026-06-01", "09:00", "12:00", ""); err != nil {
		t.Fatalf("Block error: %v", err)
	}

	check, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "10:00", 60)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if check.Available {
		t.Fatalf("expected block to win over capacity bypass, got %+v", check)
	}
}

func TestCheckSlotInvalidDuration(t *testing.T) {
	repo := newFakeRepo(Settings{MaxConcurrentBookings: 1, DefaultDurationMinutes: 240, EmergencyCapacityEnabled: true})
	svc := newTestService(repo)

	if _, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "10:00", 0); err != schedule.ErrInvalidDuration {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "10:00", -30); err != schedule.ErrInvalidDuration {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestCheckSlotIdempotent(t *testing.T) {
	repo := newFakeRepo(Settings{
		MaxConcurrentBookings:    2,
		BufferMinutes:            30,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: true,
	})
	repo.addBooking("2026-06-01", "09:00", 240)

	svc := newTestService(repo)
	first, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "11:00", 120)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	second, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "11:00", 120)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical results, got %+v then %+v", first, second)
	}
}

func TestUnblockSplitsInterval(t *testing.T) {
	repo := newFakeRepo(Settings{MaxConcurrentBookings: 3, DefaultDurationMinutes: 240, EmergencyCapacityEnabled: true})
	svc := newTestService(repo)

	if _, err := svc.Block(context.Background(), "salon-1", "2026-06-01", "14:00", "16:00", "training"); err != nil {
		t.Fatalf("Block error: %v", err)
	}

	touched, err := svc.Unblock(context.Background(), "salon-1", "2026-06-01", "14:30", "15:00")
	if err != nil {
		t.Fatalf("Unblock error: %v", err)
	}
	if touched != 1 {
		t.Fatalf("expected 1 touched block, got %d", touched)
	}

	blocks := repo.blocks["2026-06-01"]
	if len(blocks) != 2 {
		t.Fatalf("expected split into 2 blocks, got %d", len(blocks))
	}

	// The carved-out range is open, the remainders still blocked.
	check, err := svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "14:30", 30)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if !check.Available {
		t.Fatalf("expected carved range to be open, got %+v", check)
	}

	check, err = svc.CheckSlot(context.Background(), "salon-1", "2026-06-01", "15:15", 30)
	if err != nil {
		t.Fatalf("CheckSlot error: %v", err)
	}
	if check.Available {
		t.Fatalf("expected remainder to stay blocked, got %+v", check)
	}
}

func TestUnblockRemovesCoveredBlocks(t *testing.T) {
	repo := newFakeRepo(Settings{MaxConcurrentBookings: 3, DefaultDurationMinutes: 240, EmergencyCapacityEnabled: true})
	svc := newTestService(repo)

	// Overlapping blocks; union semantics.
	if _, err := svc.Block(context.Background(), "salon-1", "2026-06-01", "10:00", "11:00", ""); err != nil {
		t.Fatalf("Block error: %v", err)
	}
	if _, err := svc.Block(context.Background(), "salon-1", "2026-06-01", "10:30", "11:30", ""); err != nil {
		t.Fatalf("Block error: %v", err)
	}

	touched, err := svc.Unblock(context.Background(), "salon-1", "2026-06-01", "10:00", "11:30")
	if err != nil {
		t.Fatalf("Unblock error: %v", err)
	}
	if touched != 2 {
		t.Fatalf("expected both blocks touched, got %d", touched)
	}
	if got := len(repo.blocks["2026-06-01"]); got != 0 {
		t.Fatalf("expected no remaining blocks, got %d", got)
	}
}

func TestStatusHourly(t *testing.T) {
	repo := newFakeRepo(Settings{
		MaxConcurrentBookings:    2,
		BufferMinutes:            0,
		DefaultDurationMinutes:   240,
		EmergencyCapacityEnabled: true,
	})
	repo.addBooking("2026-06-01", "09:00", 240) // occupies 09:00-13:00
	repo.addBooking("2026-06-01", "10:00", 120) // occupies 10:00-12:00

	svc := newTestService(repo)
	if _, err := svc.Block(context.Background(), "salon-1", "2026-06-01", "16:00", "17:00", "cleanup"); err != nil {
		t.Fatalf("Block error: %v", err)
	}

	report, err := svc.Status(context.Background(), "salon-1", "2026-06-01")
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if report.TotalBookings != 2 {
		t.Fatalf("expected 2 bookings, got %d", report.TotalBookings)
	}
	if len(report.Hours) != 9 {
		t.Fatalf("expected 9 hourly buckets, got %d", len(report.Hours))
	}

	byTime := make(map[string]HourStatus, len(report.Hours))
	for _, h := range report.Hours {
		byTime[h.Time] = h
	}

	if got := byTime["10:00"]; got.Current != 2 || got.Status != StatusFull {
		t.Fatalf("unexpected 10:00 bucket: %+v", got)
	}
	if got := byTime["14:00"]; got.Current != 0 || got.Status != StatusAvailable {
		t.Fatalf("unexpected 14:00 bucket: %+v", got)
	}
	if got := byTime["16:00"]; !got.IsBlocked || got.Status != StatusBlocked {
		t.Fatalf("unexpected 16:00 bucket: %+v", got)
	}
}
