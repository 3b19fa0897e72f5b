package braiders

import "time"

const (
	SkillJunior = "junior"
	SkillSenior = "senior"
	SkillExpert = "expert"
)

// skillRank orders skill levels for candidate sorting. Unknown levels sort
// below junior rather than failing.
func skillRank(level string) int {
	switch level {
	case SkillExpert:
		return 3
	case SkillSenior:
		return 2
	case SkillJunior:
		return 1
	}
	return 0
}

type Braider struct {
	ID          string   `bson:"_id,omitempty" json:"id"`
	SalonID     string   `bson:"salonId" json:"salonId"`
	Name        string   `bson:"name" json:"name"`
	Email       string   `bson:"email,omitempty" json:"email,omitempty"`
	Phone       string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Specialties []string `bson:"specialties" json:"specialties"`
	SkillLevel  string   `bson:"skillLevel" json:"skillLevel"`

	// SplitPercentage is the braider's share of the service price, 0-100.
	SplitPercentage int  `bson:"splitPercentage" json:"splitPercentage"`
	IsActive        bool `bson:"isActive" json:"isActive"`

	// MaxDailyBookings of 0 means no per-day ceiling.
	MaxDailyBookings int    `bson:"maxDailyBookings" json:"maxDailyBookings"`
	DefaultStartTime string `bson:"defaultStartTime" json:"defaultStartTime"`
	DefaultEndTime   string `bson:"defaultEndTime" json:"defaultEndTime"`

	// WorkingDays uses 0 for Sunday through 6 for Saturday.
	WorkingDays []int `bson:"workingDays" json:"workingDays"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "18:00"
)

func defaultWorkingDays() []int {
	// Monday through Saturday.
	return []int{1, 2, 3, 4, 5, 6}
}

type CreateRequest struct {
	Name             string   `json:"name" validate:"required"`
	Email            string   `json:"email" validate:"omitempty,email"`
	Phone            string   `json:"phone" validate:"omitempty,phone"`
	Specialties      []string `json:"specialties"`
	SkillLevel       string   `json:"skillLevel" validate:"omitempty,oneof=junior senior expert"`
	SplitPercentage  int      `json:"splitPercentage" validate:"gte=0,lte=100"`
	MaxDailyBookings int      `json:"maxDailyBookings" validate:"gte=0"`
	DefaultStartTime string   `json:"defaultStartTime" validate:"omitempty,clock"`
	DefaultEndTime   string   `json:"defaultEndTime" validate:"omitempty,clock"`
	WorkingDays      []int    `json:"workingDays" validate:"omitempty,dive,gte=0,lte=6"`
}

// UpdateRequest is a partial update; nil fields keep their value.
type UpdateRequest struct {
	Name             *string   `json:"name" validate:"omitempty,min=1"`
	Email            *string   `json:"email" validate:"omitempty,email"`
	Phone            *string   `json:"phone" validate:"omitempty,phone"`
	Specialties      *[]string `json:"specialties"`
	SkillLevel       *string   `json:"skillLevel" validate:"omitempty,oneof=junior senior expert"`
	SplitPercentage  *int      `json:"splitPercentage" validate:"omitempty,gte=0,lte=100"`
	IsActive         *bool     `json:"isActive"`
	MaxDailyBookings *int      `json:"maxDailyBookings" validate:"omitempty,gte=0"`
	DefaultStartTime *string   `json:"defaultStartTime" validate:"omitempty,clock"`
	DefaultEndTime   *string   `json:"defaultEndTime" validate:"omitempty,clock"`
	WorkingDays      *[]int    `json:"workingDays" validate:"omitempty,dive,gte=0,lte=6"`
}

// Candidate describes one braider's fitness for a requested slot. Workload is
// the sum of service minutes already assigned on the requested date.
type Candidate struct {
	BraiderID       string  `json:"braiderId"`
	Name            string  `json:"name"`
	SkillLevel      string  `json:"skillLevel"`
	IsQualified     bool    `json:"isQualified"`
	WorkloadMinutes int     `json:"workloadMinutes"`
	WorkloadHours   float64 `json:"workloadHours"`

	createdAt time.Time
}

// Assignment is an active booking attributed to a braider, as seen by the
// workload and conflict checks.
type Assignment struct {
	BraiderID       string
	StartMinutes    int
	DurationMinutes int
}
