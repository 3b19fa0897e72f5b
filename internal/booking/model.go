package booking

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Rejection reasons returned to callers when a booking request is refused.
// Rejections are values, not errors: the request was handled, the answer
// was no.
const (
	ReasonCapacityExceeded   = "CAPACITY_EXCEEDED"
	ReasonSlotBlocked        = "SLOT_BLOCKED"
	ReasonNoQualifiedStaff   = "NO_QUALIFIED_STAFF"
	ReasonInvalidDuration    = "INVALID_DURATION"
	ReasonConcurrentConflict = "CONCURRENT_CONFLICT"
)

type ServiceDetails struct {
	Style      string  `bson:"style" json:"style"`
	Size       string  `bson:"size,omitempty" json:"size,omitempty"`
	Length     string  `bson:"length,omitempty" json:"length,omitempty"`
	FinalPrice float64 `bson:"finalPrice" json:"finalPrice"`
}

type Booking struct {
	ID      string `bson:"_id,omitempty" json:"id"`
	SalonID string `bson:"salonId" json:"salonId"`

	// BraiderID is empty for pooled bookings awaiting assignment.
	BraiderID string `bson:"braiderId,omitempty" json:"braiderId,omitempty"`
	ClientID  string `bson:"clientId" json:"clientId"`

	AppointmentDate string `bson:"appointmentDate" json:"appointmentDate"`
	AppointmentTime string `bson:"appointmentTime" json:"appointmentTime"`
	DurationMinutes int    `bson:"serviceDurationMinutes" json:"serviceDurationMinutes"`

	Service ServiceDetails `bson:"serviceDetails" json:"serviceDetails"`
	Status  string         `bson:"status" json:"status"`
	Notes   string         `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Client struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	SalonID   string    `bson:"salonId" json:"salonId"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RequestInput is a booking request as it arrives from the public funnel.
type RequestInput struct {
	SalonID         string  `json:"salonId" validate:"required"`
	ClientName      string  `json:"clientName" validate:"required"`
	ClientEmail     string  `json:"clientEmail" validate:"required,email"`
	ClientPhone     string  `json:"clientPhone" validate:"omitempty,phone"`
	AppointmentDate string  `json:"appointmentDate" validate:"required,date"`
	AppointmentTime string  `json:"appointmentTime" validate:"required,clock"`
	Style           string  `json:"style" validate:"required"`
	Size            string  `json:"size"`
	Length          string  `json:"length"`
	FinalPrice      float64 `json:"finalPrice" validate:"gte=0"`
	Notes           string  `json:"notes"`

	// DurationMinutes overrides the catalog duration when positive.
	DurationMinutes int `json:"durationMinutes" validate:"omitempty,gt=0"`

	// PreferredBraiderID is honored only when that braider is in the
	// candidate list for the slot.
	PreferredBraiderID string `json:"preferredBraiderId"`

	// PaymentCaptured inserts the booking as confirmed instead of pending.
	PaymentCaptured bool `json:"paymentCaptured"`
}

// Outcome reports the result of a booking request. Accepted carries the
// created booking; a rejection carries a machine-readable reason instead.
type Outcome struct {
	Accepted  bool   `json:"accepted"`
	BookingID string `json:"bookingId,omitempty"`
	BraiderID string `json:"braiderId,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

func rejected(reason, message string) Outcome {
	return Outcome{Reason: reason, Message: message}
}
