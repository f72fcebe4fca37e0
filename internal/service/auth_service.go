package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/artshop/internal/auth"
	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
	"github.com/fjod/artshop/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type AuthService struct {
	users  repository.UserRepository
	tokens *auth.Tokens
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, tokens *auth.Tokens, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, log: log, now: time.Now}
}

func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, domain.NewValidationError("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.NewValidationError("a valid email is required")
	}
	if len(password) < auth.MinPasswordLength {
		return nil, domain.NewValidationErrorf("password must be at least %d characters", auth.MinPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, domain.NewUpstreamError("failed to create user", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translate(err, "failed to create user")
	}

	logger.FromContextOr(ctx, s.log).Info("user signed up", zap.String("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domain.NewUnauthenticatedError("invalid email or password")
		}
		return nil, translate(err, "failed to load user")
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, domain.NewUnauthenticatedError("invalid email or password")
	}
	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, translate(err, "failed to load user")
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.NewUpstreamError("failed to issue token", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
