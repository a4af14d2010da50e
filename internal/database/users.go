package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"dinendash-system/internal/database/models"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts user; a taken email is reported as ALREADY_EXISTS.
func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	return classify(s.db.WithContext(ctx).Create(user).Error, "user")
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, classify(err, "user")
	}
	return &user, nil
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, classify(err, "user")
	}
	return &user, nil
}

func (s *UserStore) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login", at)
	return affected(res, "user")
}
