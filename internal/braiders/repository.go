package braiders

import (
	"context"

	"braidpilot-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, braider Braider) error
	GetByID(ctx context.Context, id string) (Braider, error)
	Update(ctx context.Context, id string, set bson.M) (Braider, error)
	Delete(ctx context.Context, id string) error
	ListBySalon(ctx context.Context, salonID string) ([]Braider, error)
	SalonBuffer(ctx context.Context, salonID string) (int, error)
	AssignmentsForDate(ctx context.Context, salonID, date string) ([]Assignment, error)
	ActiveBookingCount(ctx context.Context, braiderID string) (int64, error)
}

type MongoRepository struct {
	braiders *mongo.Collection
	bookings *mongo.Collection
	salons   *mongo.Collection
}

func NewRepository(braiders, bookings, salons *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		braiders: braiders,
		bookings: bookings,
		salons:   salons,
	}
}

func (r *MongoRepository) Create(ctx context.Context, braider Braider) error {
	_, err := r.braiders.InsertOne(ctx, braider)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Braider, error) {
	var braider Braider
	if err := r.braiders.FindOne(ctx, bson.M{"_id": id}).Decode(&braider); err != nil {
		return Braider{}, err
	}
	return braider, nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, set bson.M) (Braider, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Braider
	if err := r.braiders.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Braider{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.braiders.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoRepository) ListBySalon(ctx context.Context, salonID string) ([]Braider, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.braiders.Find(ctx, bson.M{"salonId": salonID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := make([]Braider, 0)
	for cursor.Next(ctx) {
		var braider Braider
		if err := cursor.Decode(&braider); err != nil {
			return nil, err
		}
		list = append(list, braider)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *MongoRepository) SalonBuffer(ctx context.Context, salonID string) (int, error) {
	var doc struct {
		BufferMinutes int `bson:"bufferMinutes"`
	}
	if err := r.salons.FindOne(ctx, bson.M{"_id": salonID}).Decode(&doc); err != nil {
		return 0, err
	}
	if doc.BufferMinutes < 0 {
		return 0, nil
	}
	return doc.BufferMinutes, nil
}

type assignmentDoc struct {
	BraiderID       string `bson:"braiderId"`
	AppointmentTime string `bson:"appointmentTime"`
	DurationMinutes int    `bson:"serviceDurationMinutes"`
}

// AssignmentsForDate returns the pending and confirmed bookings on date that
// are already attributed to a braider. Pooled bookings (no braider) are not
// part of workload.
func (r *MongoRepository) AssignmentsForDate(ctx context.Context, salonID, date string) ([]Assignment, error) {
	filter := bson.M{
		"salonId":         salonID,
		"appointmentDate": date,
		"braiderId":       bson.M{"$nin": bson.A{"", nil}},
		"status":          bson.M{"$in": bson.A{"pending", "confirmed"}},
	}

	cursor, err := r.bookings.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	assignments := make([]Assignment, 0)
	for cursor.Next(ctx) {
		var doc assignmentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		start, err := schedule.ParseClockToMinutes(doc.AppointmentTime)
		if err != nil {
			continue
		}
		assignments = append(assignments, Assignment{
			BraiderID:       doc.BraiderID,
			StartMinutes:    start,
			DurationMinutes: doc.DurationMinutes,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *MongoRepository) ActiveBookingCount(ctx context.Context, braiderID string) (int64, error) {
	filter := bson.M{
		"braiderId": braiderID,
		"status":    bson.M{"$in": bson.A{"pending", "confirmed"}},
	}
	return r.bookings.CountDocuments(ctx, filter)
}
