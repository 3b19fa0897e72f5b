package capacity

import "time"

// Settings is the slice of salon configuration the capacity model reads.
type Settings struct {
	MaxConcurrentBookings    int
	BufferMinutes            int
	DefaultDurationMinutes   int
	EmergencyCapacityEnabled bool
}

// BookedInterval is an existing pending/confirmed booking projected down to
// the minute interval it occupies.
type BookedInterval struct {
	StartMinutes    int
	DurationMinutes int
}

// BlockedSlot is an administrative block on a time range. Overlapping records
// for the same salon/date are tolerated; availability is the union of their
// intervals, not the record count.
type BlockedSlot struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	SalonID   string    `bson:"salonId" json:"salonId"`
	Date      string    `bson:"date" json:"date"`
	StartTime string    `bson:"startTime" json:"startTime"`
	EndTime   string    `bson:"endTime" json:"endTime"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// SlotCheck is the result of a read-time availability predicate. It carries
// no side effects and is safe to recompute.
type SlotCheck struct {
	Available    bool   `json:"available"`
	Blocked      bool   `json:"blocked"`
	BlockReason  string `json:"blockReason,omitempty"`
	CurrentCount int    `json:"currentCount"`
	MaxCount     int    `json:"maxCount"`
	Remaining    int    `json:"remainingCapacity"`
}

type HourStatus struct {
	Time        string `json:"time"`
	Current     int    `json:"current"`
	Max         int    `json:"max"`
	Available   int    `json:"available"`
	IsBlocked   bool   `json:"isBlocked"`
	BlockReason string `json:"blockReason,omitempty"`
	Status      string `json:"status"`
}

type StatusReport struct {
	Date          string        `json:"date"`
	Settings      Settings      `json:"settings"`
	TotalBookings int           `json:"totalBookings"`
	BlockedSlots  []BlockedSlot `json:"blockedSlots"`
	Hours         []HourStatus  `json:"hourlyCapacity"`
}

const (
	StatusAvailable = "available"
	StatusBusy      = "busy"
	StatusFull      = "full"
	StatusBlocked   = "blocked"
)
