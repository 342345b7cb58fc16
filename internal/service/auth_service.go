package service

import (
	"context"
	"strings"
	"time"

	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// SignupInput is a new account request.
type SignupInput struct {
	Email    string
	Password string
	Username string
	FullName string
}

// AuthService owns account creation and credential checks. Token issuance
// stays in the HTTP layer.
type AuthService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	hashCost int
}

// NewAuthService returns a new AuthService.
func NewAuthService(users repository.UserRepository, profiles repository.ProfileRepository) *AuthService {
	return &AuthService{users: users, profiles: profiles, hashCost: bcrypt.DefaultCost}
}

// Signup creates the user and its guest profile in one transaction.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	fullName := strings.TrimSpace(in.FullName)

	if email == "" || in.Password == "" || username == "" {
		return nil, models.NewValidationError("Email, password and username are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if len([]rune(fullName)) > validation.MaxFullNameLen {
		return nil, models.NewValidationError("Full name too long")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("An account with this email already exists")
	}
	taken, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken != nil {
		return nil, models.NewConflictError("Username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Email: email, Password: string(hash)}
	profile := &models.Profile{
		Username: username,
		FullName: fullName,
		Role:     models.RoleGuest,
	}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, duplicateAs(err, "Email or username is already registered")
	}
	return user, nil
}

// Login checks credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if user.Profile != nil && user.Profile.IsBanned {
		return nil, models.NewForbiddenError("This account has been suspended")
	}

	now := time.Now()
	if err := s.users.TouchSignIn(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastSignInAt = &now
	return user, nil
}

// Session returns the user with profile for an authenticated id. Banned
// accounts lose their session.
func (s *AuthService) Session(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Profile == nil {
		return nil, models.NewNotFoundError("Profile", userID)
	}
	if user.Profile.IsBanned {
		return nil, models.NewForbiddenError("This account has been suspended")
	}
	return user, nil
}
