package salons

import "time"

// Salon is the tenant. Every other entity in the system is scoped to exactly
// one salon; no cross-tenant relationships exist.
type Salon struct {
	ID      string `bson:"_id,omitempty" json:"id"`
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email" json:"email"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`

	// Capacity configuration. Created with onboarding defaults, mutated only
	// by the owner settings endpoint, never deleted.
	MaxConcurrentBookings    int  `bson:"maxConcurrentBookings" json:"maxConcurrentBookings"`
	BufferMinutes            int  `bson:"bufferMinutes" json:"bufferMinutes"`
	DefaultDurationMinutes   int  `bson:"defaultServiceDurationMinutes" json:"defaultServiceDurationMinutes"`
	EmergencyCapacityEnabled bool `bson:"emergencyCapacityEnabled" json:"emergencyCapacityEnabled"`
	RequireBraiderAssignment bool `bson:"requireBraiderAssignment" json:"requireBraiderAssignment"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

const (
	DefaultMaxConcurrentBookings = 3
	DefaultBufferMinutes         = 30
	DefaultDurationMinutes       = 240
)

type CreateRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
	Address string `json:"address"`
}

// CapacitySettingsRequest is a partial update; nil fields keep their value.
type CapacitySettingsRequest struct {
	MaxConcurrentBookings    *int  `json:"maxConcurrentBookings" validate:"omitempty,gte=1"`
	BufferMinutes            *int  `json:"bufferMinutes" validate:"omitempty,gte=0"`
	DefaultDurationMinutes   *int  `json:"defaultServiceDurationMinutes" validate:"omitempty,gt=0"`
	EmergencyCapacityEnabled *bool `json:"emergencyCapacityEnabled"`
	RequireBraiderAssignment *bool `json:"requireBraiderAssignment"`
}
