package salons

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("salon not found")

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

func (s *Service) Create(ctx context.Context, req CreateRequest) (Salon, error) {
	now := time.Now().In(s.location)
	salon := Salon{
		ID:                       primitive.NewObjectID().Hex(),
		Name:                     strings.TrimSpace(req.Name),
		Email:                    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:                    strings.TrimSpace(req.Phone),
		Address:                  strings.TrimSpace(req.Address),
		MaxConcurrentBookings:    DefaultMaxConcurrentBookings,
		BufferMinutes:            DefaultBufferMinutes,
		DefaultDurationMinutes:   DefaultDurationMinutes,
		EmergencyCapacityEnabled: true,
		RequireBraiderAssignment: false,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.repo.Create(ctx, salon); err != nil {
		return Salon{}, err
	}
	return salon, nil
}

func (s *Service) Get(ctx context.Context, id string) (Salon, error) {
	salon, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Salon{}, ErrNotFound
		}
		return Salon{}, err
	}
	return salon, nil
}

func (s *Service) UpdateCapacitySettings(ctx context.Context, id string, req CapacitySettingsRequest) (Salon, error) {
	set := bson.M{"updatedAt": time.Now().In(s.location)}
	if req.MaxConcurrentBookings != nil {
		set["maxConcurrentBookings"] = *req.MaxConcurrentBookings
	}
	if req.BufferMinutes != nil {
		set["bufferMinutes"] = *req.BufferMinutes
	}
	if req.DefaultDurationMinutes != nil {
		set["defaultServiceDurationMinutes"] = *req.DefaultDurationMinutes
	}
	if req.EmergencyCapacityEnabled != nil {
		set["emergencyCapacityEnabled"] = *req.EmergencyCapacityEnabled
	}
	if req.RequireBraiderAssignment != nil {
		set["requireBraiderAssignment"] = *req.RequireBraiderAssignment
	}

	updated, err := s.repo.UpdateSettings(ctx, strings.TrimSpace(id), set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Salon{}, ErrNotFound
		}
		return Salon{}, err
	}
	return updated, nil
}
