package main

import (
	"context"
	"log"
	"os"
	"time"

	"braidpilot-backend/internal/auth"
	"braidpilot-backend/internal/braiders"
	"braidpilot-backend/internal/config"
	"braidpilot-backend/internal/db"
	"braidpilot-backend/internal/salons"
	"braidpilot-backend/internal/users"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedBraider struct {
	Name        string
	Specialties []string
	SkillLevel  string
	Split       int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	salonID, err := seedSalon(ctx, cols, cfg.Timezone)
	if err != nil {
		log.Fatalf("seed salon error: %v", err)
	}

	team := []seedBraider{
		{Name: "Ama Mensah", Specialties: []string{"Box Braids", "Knotless Braids"}, SkillLevel: braiders.SkillExpert, Split: 60},
		{Name: "Bisa Okafor", Specialties: []string{"Cornrows", "Fulani Braids"}, SkillLevel: braiders.SkillSenior, Split: 55},
		{Name: "Cece Diallo", Specialties: nil, SkillLevel: braiders.SkillJunior, Split: 45},
	}
	for _, b := range team {
		if err := seedOneBraider(ctx, cols, salonID, b, cfg.Timezone); err != nil {
			log.Fatalf("seed braider error for %s: %v", b.Name, err)
		}
	}

	adminUser := envOrDefault("ADMIN_USER", "admin")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Printf("seed admin: ADMIN_PASSWORD missing, skipping %s", adminUser)
	} else if err := seedAdminUser(ctx, cols, adminUser, os.Getenv("ADMIN_EMAIL"), adminPassword, cfg.Timezone); err != nil {
		log.Fatalf("seed admin error for %s: %v", adminUser, err)
	}

	log.Println("seed completed")
}

func seedSalon(ctx context.Context, cols *db.Collections, loc *time.Location) (string, error) {
	name := envOrDefault("SEED_SALON_NAME", "BraidPilot Studio")
	now := time.Now().In(loc)

	filter := bson.M{"name": name}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":                           primitive.NewObjectID().Hex(),
			"name":                          name,
			"email":                         envOrDefault("SEED_SALON_EMAIL", "studio@braidpilot.local"),
			"maxConcurrentBookings":         salons.DefaultMaxConcurrentBookings,
			"bufferMinutes":                 salons.DefaultBufferMinutes,
			"defaultServiceDurationMinutes": salons.DefaultDurationMinutes,
			"emergencyCapacityEnabled":      true,
			"requireBraiderAssignment":      false,
			"createdAt":                     now,
			"updatedAt":                     now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var salon salons.Salon
	if err := cols.Salons.FindOneAndUpdate(ctx, filter, update, opts).Decode(&salon); err != nil {
		return "", err
	}
	return salon.ID, nil
}

func seedOneBraider(ctx context.Context, cols *db.Collections, salonID string, b seedBraider, loc *time.Location) error {
	now := time.Now().In(loc)
	specialties := b.Specialties
	if specialties == nil {
		specialties = []string{}
	}

	filter := bson.M{"salonId": salonID, "name": b.Name}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":              primitive.NewObjectID().Hex(),
			"salonId":          salonID,
			"name":             b.Name,
			"specialties":      specialties,
			"skillLevel":       b.SkillLevel,
			"splitPercentage":  b.Split,
			"isActive":         true,
			"maxDailyBookings": 0,
			"defaultStartTime": braiders.DefaultStartTime,
			"defaultEndTime":   braiders.DefaultEndTime,
			"workingDays":      []int{1, 2, 3, 4, 5, 6},
			"createdAt":        now,
			"updatedAt":        now,
		},
	}

	_, err := cols.Braiders.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func seedAdminUser(ctx context.Context, cols *db.Collections, username, email, password string, loc *time.Location) error {
	if cols == nil || cols.Users == nil {
		return nil
	}
	if username == "" || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	filter := bson.M{"username": username}
	set := bson.M{
		"passwordHash": hash,
		"role":         users.RoleAdmin,
		"updatedAt":    now,
	}
	if email != "" {
		set["email"] = email
	}
	setOnInsert := bson.M{
		"_id":       primitive.NewObjectID().Hex(),
		"username":  username,
		"createdAt": now,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": setOnInsert,
	}
	_, err = cols.Users.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
