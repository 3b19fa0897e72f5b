package braiders

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"braidpilot-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound       = errors.New("braider not found")
	ErrActiveBookings = errors.New("braider has pending or confirmed bookings")
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

func (s *Service) Create(ctx context.Context, salonID string, req CreateRequest) (Braider, error) {
	now := time.Now().In(s.location)

	specialties := make([]string, 0, len(req.Specialties))
	for _, sp := range req.Specialties {
		sp = strings.TrimSpace(sp)
		if sp != "" {
			specialties = append(specialties, sp)
		}
	}

	skill := req.SkillLevel
	if skill == "" {
		skill = SkillJunior
	}
	startTime := req.DefaultStartTime
	if startTime == "" {
		startTime = DefaultStartTime
	}
	endTime := req.DefaultEndTime
	if endTime == "" {
		endTime = DefaultEndTime
	}
	workingDays := req.WorkingDays
	if len(workingDays) == 0 {
		workingDays = defaultWorkingDays()
	}

	braider := Braider{
		ID:               primitive.NewObjectID().Hex(),
		SalonID:          salonID,
		Name:             strings.TrimSpace(req.Name),
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:            strings.TrimSpace(req.Phone),
		Specialties:      specialties,
		SkillLevel:       skill,
		SplitPercentage:  req.SplitPercentage,
		IsActive:         true,
		MaxDailyBookings: req.MaxDailyBookings,
		DefaultStartTime: startTime,
		DefaultEndTime:   endTime,
		WorkingDays:      workingDays,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, braider); err != nil {
		return Braider{}, err
	}
	return braider, nil
}

func (s *Service) Get(ctx context.Context, id string) (Braider, error) {
	braider, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Braider{}, ErrNotFound
		}
		return Braider{}, err
	}
	return braider, nil
}

func (s *Service) List(ctx context.Context, salonID string) ([]Braider, error) {
	return s.repo.ListBySalon(ctx, strings.TrimSpace(salonID))
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Braider, error) {
	set := bson.M{"updatedAt": time.Now().In(s.location)}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		set["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Specialties != nil {
		set["specialties"] = *req.Specialties
	}
	if req.SkillLevel != nil {
		set["skillLevel"] = *req.SkillLevel
	}
	if req.SplitPercentage != nil {
		set["splitPercentage"] = *req.SplitPercentage
	}
	if req.IsActive != nil {
		set["isActive"] = *req.IsActive
	}
	if req.MaxDailyBookings != nil {
		set["maxDailyBookings"] = *req.MaxDailyBookings
	}
	if req.DefaultStartTime != nil {
		set["defaultStartTime"] = *req.DefaultStartTime
	}
	if req.DefaultEndTime != nil {
		set["defaultEndTime"] = *req.DefaultEndTime
	}
	if req.WorkingDays != nil {
		set["workingDays"] = *req.WorkingDays
	}

	updated, err := s.repo.Update(ctx, strings.TrimSpace(id), set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Braider{}, ErrNotFound
		}
		return Braider{}, err
	}
	return updated, nil
}

// Delete removes a braider. Refused while any pending or confirmed booking
// still references them; disable via isActive instead, or resolve the
// bookings first.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	active, err := s.repo.ActiveBookingCount(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrActiveBookings
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// AvailableBraiders returns the active braiders who can take a booking of
// durationMinutes starting at startTime on date, best candidate first.
// Qualified braiders sort ahead of unqualified ones, then lighter same-day
// workload, then higher skill, then creation order.
func (s *Service) AvailableBraiders(ctx context.Context, salonID, style, date, startTime string, durationMinutes int) ([]Candidate, error) {
	start, err := schedule.ParseClockToMinutes(startTime)
	if err != nil {
		return nil, err
	}
	if durationMinutes <= 0 {
		return nil, schedule.ErrInvalidDuration
	}
	weekday, err := schedule.Weekday(date, s.location)
	if err != nil {
		return nil, err
	}

	buffer, err := s.repo.SalonBuffer(ctx, salonID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	list, err := s.repo.ListBySalon(ctx, salonID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.repo.AssignmentsForDate(ctx, salonID, date)
	if err != nil {
		return nil, err
	}

	byBraider := make(map[string][]Assignment, len(list))
	for _, a := range assignments {
		byBraider[a.BraiderID] = append(byBraider[a.BraiderID], a)
	}

	requested := schedule.Interval{Start: start, End: start + durationMinutes}
	candidates := make([]Candidate, 0, len(list))
	for _, b := range list {
		if !b.IsActive {
			continue
		}
		if !worksOn(b, int(weekday)) {
			continue
		}
		if !withinWorkingHours(b, requested) {
			continue
		}

		own := byBraider[b.ID]
		if b.MaxDailyBookings > 0 && len(own) >= b.MaxDailyBookings {
			continue
		}
		if hasConflict(own, requested, buffer) {
			continue
		}

		workload := 0
		for _, a := range own {
			workload += a.DurationMinutes
		}

		candidates = append(candidates, Candidate{
			BraiderID:       b.ID,
			Name:            b.Name,
			SkillLevel:      b.SkillLevel,
			IsQualified:     isQualified(b, style),
			WorkloadMinutes: workload,
			WorkloadHours:   float64(workload) / 60,
			createdAt:       b.CreatedAt,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.IsQualified != b.IsQualified {
			return a.IsQualified
		}
		if a.WorkloadMinutes != b.WorkloadMinutes {
			return a.WorkloadMinutes < b.WorkloadMinutes
		}
		if skillRank(a.SkillLevel) != skillRank(b.SkillLevel) {
			return skillRank(a.SkillLevel) > skillRank(b.SkillLevel)
		}
		return a.createdAt.Before(b.createdAt)
	})

	return candidates, nil
}

// isQualified matches the requested style against the braider's specialties,
// case-insensitively. An empty specialty list means the braider takes any
// style.
func isQualified(b Braider, style string) bool {
	if len(b.Specialties) == 0 {
		return true
	}
	style = strings.TrimSpace(style)
	for _, sp := range b.Specialties {
		if strings.EqualFold(strings.TrimSpace(sp), style) {
			return true
		}
	}
	return false
}

func worksOn(b Braider, weekday int) bool {
	if len(b.WorkingDays) == 0 {
		return true
	}
	for _, d := range b.WorkingDays {
		if d == weekday {
			return true
		}
	}
	return false
}

func withinWorkingHours(b Braider, requested schedule.Interval) bool {
	workStart, err := schedule.ParseClockToMinutes(b.DefaultStartTime)
	if err != nil {
		workStart = 0
	}
	workEnd, err := schedule.ParseClockToMinutes(b.DefaultEndTime)
	if err != nil {
		workEnd = 24 * 60
	}
	return requested.Start >= workStart && requested.End <= workEnd
}

func hasConflict(own []Assignment, requested schedule.Interval, buffer int) bool {
	for _, a := range own {
		duration := a.DurationMinutes
		if duration <= 0 {
			continue
		}
		existing := schedule.Interval{Start: a.StartMinutes, End: a.StartMinutes + duration}
		if schedule.OverlapsWithBuffer(requested, existing, buffer) {
			return true
		}
	}
	return false
}
