package capacity

import (
	"context"

	"braidpilot-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository interface {
	Settings(ctx context.Context, salonID string) (Settings, error)
	ActiveIntervals(ctx context.Context, salonID, date string) ([]BookedInterval, error)
	BlocksForDate(ctx context.Context, salonID, date string) ([]BlockedSlot, error)
	InsertBlock(ctx context.Context, slot BlockedSlot) error
	DeleteBlock(ctx context.Context, id string) error
}

type MongoRepository struct {
	salons   *mongo.Collection
	bookings *mongo.Collection
	slots    *mongo.Collection
}

func NewRepository(salons, bookings, slots *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		salons:   salons,
		bookings: bookings,
		slots:    slots,
	}
}

type salonSettingsDoc struct {
	MaxConcurrentBookings    int   `bson:"maxConcurrentBookings"`
	BufferMinutes            int   `bson:"bufferMinutes"`
	DefaultDurationMinutes   int   `bson:"defaultServiceDurationMinutes"`
	EmergencyCapacityEnabled *bool `bson:"emergencyCapacityEnabled"`
}

func (r *MongoRepository) Settings(ctx context.Context, salonID string) (Settings, error) {
	var doc salonSettingsDoc
	if err := r.salons.FindOne(ctx, bson.M{"_id": salonID}).Decode(&doc); err != nil {
		return Settings{}, err
	}

	settings := Settings{
		MaxConcurrentBookings:    doc.MaxConcurrentBookings,
		BufferMinutes:            doc.BufferMinutes,
		DefaultDurationMinutes:   doc.DefaultDurationMinutes,
		EmergencyCapacityEnabled: true,
	}
	if settings.MaxConcurrentBookings < 1 {
		settings.MaxConcurrentBookings = 3
	}
	if settings.BufferMinutes < 0 {
		settings.BufferMinutes = 0
	}
	if settings.DefaultDurationMinutes <= 0 {
		settings.DefaultDurationMinutes = 240
	}
	if doc.EmergencyCapacityEnabled != nil {
		settings.EmergencyCapacityEnabled = *doc.EmergencyCapacityEnabled
	}
	return settings, nil
}

type bookingIntervalDoc struct {
	AppointmentTime string `bson:"appointmentTime"`
	DurationMinutes int    `bson:"serviceDurationMinutes"`
}

func (r *MongoRepository) ActiveIntervals(ctx context.Context, salonID, date string) ([]BookedInterval, error) {
	filter := bson.M{
		"salonId":         salonID,
		"appointmentDate": date,
		"status":          bson.M{"$in": bson.A{"pending", "confirmed"}},
	}

	cursor, err := r.bookings.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	intervals := make([]BookedInterval, 0)
	for cursor.Next(ctx) {
		var doc bookingIntervalDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		start, err := schedule.ParseClockToMinutes(doc.AppointmentTime)
		if err != nil {
			continue
		}
		intervals = append(intervals, BookedInterval{
			StartMinutes:    start,
			DurationMinutes: doc.DurationMinutes,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return intervals, nil
}

func (r *MongoRepository) BlocksForDate(ctx context.Context, salonID, date string) ([]BlockedSlot, error) {
	cursor, err := r.slots.Find(ctx, bson.M{"salonId": salonID, "date": date})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	blocks := make([]BlockedSlot, 0)
	for cursor.Next(ctx) {
		var slot BlockedSlot
		if err := cursor.Decode(&slot); err != nil {
			return nil, err
		}
		blocks = append(blocks, slot)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *MongoRepository) InsertBlock(ctx context.Context, slot BlockedSlot) error {
	_, err := r.slots.InsertOne(ctx, slot)
	return err
}

func (r *MongoRepository) DeleteBlock(ctx context.Context, id string) error {
	_, err := r.slots.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
