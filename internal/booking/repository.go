package booking

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Insert(ctx context.Context, b Booking) error
	Remove(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Booking, error)
	// UpdateStatus flips status only when the document currently holds one of
	// fromStatuses; returns mongo.ErrNoDocuments when the precondition fails.
	UpdateStatus(ctx context.Context, id string, fromStatuses []string, toStatus string, set bson.M) (Booking, error)
	SetAssignment(ctx context.Context, id, braiderID string) (Booking, error)
	SetSchedule(ctx context.Context, id, date, timeStr string) (Booking, error)
	ListBySalon(ctx context.Context, salonID, status, date string, limit, offset int64) ([]Booking, error)
	ListExpiredPending(ctx context.Context, salonID string, cutoff time.Time) ([]Booking, error)
	UpsertClient(ctx context.Context, client Client) (string, error)
}

type MongoRepository struct {
	bookings *mongo.Collection
	clients  *mongo.Collection
}

func NewRepository(bookings, clients *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		bookings: bookings,
		clients:  clients,
	}
}

func (r *MongoRepository) Insert(ctx context.Context, b Booking) error {
	_, err := r.bookings.InsertOne(ctx, b)
	return err
}

func (r *MongoRepository) Remove(ctx context.Context, id string) error {
	_, err := r.bookings.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Booking, error) {
	var b Booking
	if err := r.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, fromStatuses []string, toStatus string, set bson.M) (Booking, error) {
	filter := bson.M{"_id": id}
	if len(fromStatuses) > 0 {
		in := make(bson.A, 0, len(fromStatuses))
		for _, s := range fromStatuses {
			in = append(in, s)
		}
		filter["status"] = bson.M{"$in": in}
	}

	if set == nil {
		set = bson.M{}
	}
	set["status"] = toStatus

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Booking
	if err := r.bookings.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Booking{}, err
	}
	return updated, nil
}

func (r *MongoRepository) SetAssignment(ctx context.Context, id, braiderID string) (Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"braiderId": braiderID, "updatedAt": time.Now()}}
	var updated Booking
	if err := r.bookings.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return Booking{}, err
	}
	return updated, nil
}

func (r *MongoRepository) SetSchedule(ctx context.Context, id, date, timeStr string) (Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{
		"appointmentDate": date,
		"appointmentTime": timeStr,
		"updatedAt":       time.Now(),
	}}
	var updated Booking
	if err := r.bookings.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return Booking{}, err
	}
	return updated, nil
}

func (r *MongoRepository) ListBySalon(ctx context.Context, salonID, status, date string, limit, offset int64) ([]Booking, error) {
	filter := bson.M{"salonId": salonID}
	if status != "" {
		filter["status"] = status
	}
	if date != "" {
		filter["appointmentDate"] = date
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "appointmentDate", Value: -1}, {Key: "appointmentTime", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := make([]Booking, 0)
	for cursor.Next(ctx) {
		var b Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *MongoRepository) ListExpiredPending(ctx context.Context, salonID string, cutoff time.Time) ([]Booking, error) {
	filter := bson.M{
		"salonId":   salonID,
		"status":    StatusPending,
		"createdAt": bson.M{"$lt": cutoff},
	}

	cursor, err := r.bookings.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := make([]Booking, 0)
	for cursor.Next(ctx) {
		var b Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpsertClient matches on salonId+email and returns the client id either way.
func (r *MongoRepository) UpsertClient(ctx context.Context, client Client) (string, error) {
	filter := bson.M{"salonId": client.SalonID, "email": client.Email}
	update := bson.M{
		"$set": bson.M{
			"name":      client.Name,
			"phone":     client.Phone,
			"updatedAt": client.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"salonId":   client.SalonID,
			"email":     client.Email,
			"createdAt": client.CreatedAt,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var saved Client
	if err := r.clients.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return "", err
	}
	return saved.ID, nil
}
