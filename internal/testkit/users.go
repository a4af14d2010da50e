package testkit

import (
	"context"
	"sync"
	"time"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
)

// Users is an in-memory user store keyed by email.
type Users struct {
	mu      sync.Mutex
	byEmail map[string]models.User
}

func NewUsers() *Users {
	return &Users{byEmail: make(map[string]models.User)}
}

func (u *Users) CreateUser(_ context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byEmail[user.Email]; ok {
		return apperrors.New(apperrors.CodeAlreadyExists, "user already exists")
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	u.byEmail[user.Email] = *user
	return nil
}

func (u *Users) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return &user, nil
}

func (u *Users) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for email, user := range u.byEmail {
		if user.ID == userID {
			user.LastLogin = &at
			u.byEmail[email] = user
			return nil
		}
	}
	return apperrors.NotFound("user not found")
}
