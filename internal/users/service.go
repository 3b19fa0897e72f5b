package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"braidpilot-backend/internal/auth"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicate          = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
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

func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	username, email = normalizeIdentity(username, email)

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	now := time.Now().In(s.location)
	user := User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrDuplicate
		}
		return User{}, err
	}
	return user, nil
}

// Authenticate resolves username+password to an admin user. Both unknown
// usernames and wrong passwords come back as ErrInvalidCredentials, so the
// response never leaks which one was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	username, _ = normalizeIdentity(username, "")

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if user.Role != RoleAdmin {
		return User{}, ErrInvalidCredentials
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func normalizeIdentity(username, email string) (string, string) {
	username = strings.TrimSpace(username)
	if strings.Contains(username, "@") {
		username = strings.ToLower(username)
	}
	return username, strings.ToLower(strings.TrimSpace(email))
}
