// Package auth registers diners and issues their session tokens.
package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dinendash-system/internal/apperrors"
	"dinendash-system/internal/database/models"
	"dinendash-system/internal/utils"
)

const minPasswordLength = 6

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type Service struct {
	users  UserStore
	tokens *utils.TokenManager
	log    *zap.Logger
}

func NewService(users UserStore, tokens *utils.TokenManager, log *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, log: log}
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.InvalidInput("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "password must be at least %d characters", minPasswordLength)
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("error hashing password", err)
	}

	user := &models.User{
		ID:       uuid.NewString(),
		Name:     name,
		Email:    email,
		Password: string(pwHash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if apperrors.HasCode(err, apperrors.CodeAlreadyExists) {
			return nil, apperrors.New(apperrors.CodeAlreadyExists, "email already registered")
		}
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	return s.issue(user)
}

func (s *Service) issue(user *models.User) (*Session, error) {
	token, exp, err := s.tokens.GenerateToken(user.ID, user.Name)
	if err != nil {
		return nil, apperrors.Internal("error generating token", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}
