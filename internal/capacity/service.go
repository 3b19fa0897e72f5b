package capacity

import (
	"context"
	"errors"
	"strings"
	"time"

	"braidpilot-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrSalonNotFound   = errors.New("salon not found")
	ErrInvalidInterval = errors.New("block end must be after start")
)

const (
	statusDayStartHour = 9
	statusDayEndHour   = 18
)

type Service struct {
	repo     Repository
	location *time.Location
}

func NewService(repo Repository, location *time.Location) *Service {
	return &Service{
		repo:     repo,
		location: location,
	}
}

// CheckSlot answers whether a booking of durationMinutes starting at timeStr
// on date fits the salon's concurrency limits and administrative blocks.
// Purely a read-time predicate; calling it twice with no intervening writes
// returns identical results.
func (s *Service) CheckSlot(ctx context.Context, salonID, date, timeStr string, durationMinutes int) (SlotCheck, error) {
	if durationMinutes <= 0 {
		return SlotCheck{}, schedule.ErrInvalidDuration
	}
	start, err := schedule.ParseClockToMinutes(timeStr)
	if err != nil {
		return SlotCheck{}, err
	}
	if _, err := schedule.ParseDate(date, s.location); err != nil {
		return SlotCheck{}, err
	}

	settings, err := s.repo.Settings(ctx, salonID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return SlotCheck{}, ErrSalonNotFound
		}
		return SlotCheck{}, err
	}

	requested := schedule.Interval{Start: start, End: start + durationMinutes}

	// An administrative block always wins, even when capacity enforcement is
	// switched off: blocks are explicit owner decisions, not load management.
	blocks, err := s.repo.BlocksForDate(ctx, salonID, date)
	if err != nil {
		return SlotCheck{}, err
	}
	for _, block := range blocks {
		iv, err := blockInterval(block)
		if err != nil {
			continue
		}
		if schedule.Overlaps(requested, iv) {
			reason := block.Reason
			if reason == "" {
				reason = "administrative block"
			}
			return SlotCheck{
				Available:   false,
				Blocked:     true,
				BlockReason: reason,
				MaxCount:    settings.MaxConcurrentBookings,
			}, nil
		}
	}

	count, err := s.overlapCount(ctx, salonID, date, requested, settings)
	if err != nil {
		return SlotCheck{}, err
	}

	remaining := settings.MaxConcurrentBookings - count
	if remaining < 0 {
		remaining = 0
	}

	// With enforcement off the slot always accepts, but occupancy is still
	// reported so callers see the real load.
	if !settings.EmergencyCapacityEnabled {
		return SlotCheck{
			Available:    true,
			CurrentCount: count,
			MaxCount:     settings.MaxConcurrentBookings,
			Remaining:    remaining,
		}, nil
	}

	return SlotCheck{
		Available:    count < settings.MaxConcurrentBookings,
		CurrentCount: count,
		MaxCount:     settings.MaxConcurrentBookings,
		Remaining:    remaining,
	}, nil
}

func (s *Service) overlapCount(ctx context.Context, salonID, date string, requested schedule.Interval, settings Settings) (int, error) {
	booked, err := s.repo.ActiveIntervals(ctx, salonID, date)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range booked {
		duration := b.DurationMinutes
		if duration <= 0 {
			duration = settings.DefaultDurationMinutes
		}
		existing := schedule.Interval{Start: b.StartMinutes, End: b.StartMinutes + duration}
		if schedule.OverlapsWithBuffer(requested, existing, settings.BufferMinutes) {
			count++
		}
	}
	return count, nil
}

// Block registers an administrative block over [startTime, endTime) on date.
// Overlapping blocks are tolerated; union semantics apply at read time.
func (s *Service) Block(ctx context.Context, salonID, date, startTime, endTime, reason string) (BlockedSlot, error) {
	start, err := schedule.ParseClockToMinutes(startTime)
	if err != nil {
		return BlockedSlot{}, err
	}
	end, err := schedule.ParseClockToMinutes(endTime)
	if err != nil {
		return BlockedSlot{}, err
	}
	if end <= start {
		return BlockedSlot{}, ErrInvalidInterval
	}
	if _, err := schedule.ParseDate(date, s.location); err != nil {
		return BlockedSlot{}, err
	}

	slot := BlockedSlot{
		ID:        primitive.NewObjectID().Hex(),
		SalonID:   salonID,
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: time.Now().In(s.location),
	}
	if err := s.repo.InsertBlock(ctx, slot); err != nil {
		return BlockedSlot{}, err
	}
	return slot, nil
}

// Unblock removes [startTime, endTime) from every block it touches, using
// interval subtraction: covered records are deleted, partially covered ones
// are trimmed, and a record the cut bisects is split in two. No stale partial
// blocks survive.
func (s *Service) Unblock(ctx context.Context, salonID, date, startTime, endTime string) (int, error) {
	start, err := schedule.ParseClockToMinutes(startTime)
	if err != nil {
		return 0, err
	}
	end, err := schedule.ParseClockToMinutes(endTime)
	if err != nil {
		return 0, err
	}
	if end <= start {
		return 0, ErrInvalidInterval
	}

	cut := schedule.Interval{Start: start, End: end}
	blocks, err := s.repo.BlocksForDate(ctx, salonID, date)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, block := range blocks {
		iv, err := blockInterval(block)
		if err != nil {
			continue
		}
		if !schedule.Overlaps(iv, cut) {
			continue
		}
		touched++

		if err := s.repo.DeleteBlock(ctx, block.ID); err != nil {
			return touched, err
		}
		for _, piece := range schedule.Subtract([]schedule.Interval{iv}, cut) {
			remainder := BlockedSlot{
				ID:        primitive.NewObjectID().Hex(),
				SalonID:   salonID,
				Date:      date,
				StartTime: schedule.MinutesToClock(piece.Start),
				EndTime:   schedule.MinutesToClock(piece.End),
				Reason:    block.Reason,
				CreatedAt: block.CreatedAt,
			}
			if err := s.repo.InsertBlock(ctx, remainder); err != nil {
				return touched, err
			}
		}
	}
	return touched, nil
}

// Status reports hour-by-hour occupancy for the salon's working window.
func (s *Service) Status(ctx context.Context, salonID, date string) (StatusReport, error) {
	if _, err := schedule.ParseDate(date, s.location); err != nil {
		return StatusReport{}, err
	}

	settings, err := s.repo.Settings(ctx, salonID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return StatusReport{}, ErrSalonNotFound
		}
		return StatusReport{}, err
	}

	booked, err := s.repo.ActiveIntervals(ctx, salonID, date)
	if err != nil {
		return StatusReport{}, err
	}
	blocks, err := s.repo.BlocksForDate(ctx, salonID, date)
	if err != nil {
		return StatusReport{}, err
	}

	hours := make([]HourStatus, 0, statusDayEndHour-statusDayStartHour)
	for hour := statusDayStartHour; hour < statusDayEndHour; hour++ {
		point := hour * 60
		current := 0
		for _, b := range booked {
			duration := b.DurationMinutes
			if duration <= 0 {
				duration = settings.DefaultDurationMinutes
			}
			if b.StartMinutes <= point && b.StartMinutes+duration+settings.BufferMinutes > point {
				current++
			}
		}

		isBlocked := false
		blockReason := ""
		for _, block := range blocks {
			iv, err := blockInterval(block)
			if err != nil {
				continue
			}
			if iv.Start <= point && iv.End > point {
				isBlocked = true
				blockReason = block.Reason
				if blockReason == "" {
					blockReason = "administrative block"
				}
				break
			}
		}

		available := settings.MaxConcurrentBookings - current
		if available < 0 {
			available = 0
		}

		status := StatusAvailable
		switch {
		case isBlocked:
			status = StatusBlocked
		case current >= settings.MaxConcurrentBookings:
			status = StatusFull
		case float64(current) > float64(settings.MaxConcurrentBookings)*0.7:
			status = StatusBusy
		}

		hours = append(hours, HourStatus{
			Time:        schedule.MinutesToClock(point),
			Current:     current,
			Max:         settings.MaxConcurrentBookings,
			Available:   available,
			IsBlocked:   isBlocked,
			BlockReason: blockReason,
			Status:      status,
		})
	}

	return StatusReport{
		Date:          date,
		Settings:      settings,
		TotalBookings: len(booked),
		BlockedSlots:  blocks,
		Hours:         hours,
	}, nil
}

func blockInterval(block BlockedSlot) (schedule.Interval, error) {
	start, err := schedule.ParseClockToMinutes(block.StartTime)
	if err != nil {
		return schedule.Interval{}, err
	}
	end, err := schedule.ParseClockToMinutes(block.EndTime)
	if err != nil {
		return schedule.Interval{}, err
	}
	return schedule.Interval{Start: start, End: end}, nil
}
