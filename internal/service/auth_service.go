package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"happythoughts/internal/cache"
	"happythoughts/internal/models"
	"happythoughts/internal/observability"
	"happythoughts/internal/repository"
	"happythoughts/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// tokenBytes is the entropy of an access token; it is hex-encoded to 64 characters.
const tokenBytes = 32

const invalidCredentials = "Invalid email or password"

type AuthService struct {
	userRepo   repository.UserRepository
	cache      *cache.Store
	bcryptCost int
	metrics    *observability.Metrics
	newToken   func() (string, error)
}

type SignupInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// NewAuthService wires the service. store and metrics may be nil; a cost of 0 means bcrypt.DefaultCost.
func NewAuthService(userRepo repository.UserRepository, store *cache.Store, bcryptCost int, metrics *observability.Metrics) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:   userRepo,
		cache:      store,
		bcryptCost: bcryptCost,
		metrics:    metrics,
		newToken:   randomHexToken,
	}
}

// Signup registers a user and returns the access token they keep for good.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (_ *models.Credentials, err error) {
	defer func() { s.metrics.RecordAuth("signup", authResult(err)) }()

	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError(validation.ErrCredentialsRequired.Error())
	}
	if validation.ValidateEmail(email) != nil || validation.ValidatePassword(in.Password) != nil {
		return nil, models.NewValidationError(invalidCredentials)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	token, err := s.newToken()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:       email,
		Password:    string(hashedPassword),
		AccessToken: token,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewValidationError(invalidCredentials)
		}
		return nil, err
	}

	return credentialsFor(user), nil
}

// Login verifies the password and returns the token issued at signup. Every
// credential failure gets the same message.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (_ *models.Credentials, err error) {
	defer func() { s.metrics.RecordAuth("login", authResult(err)) }()

	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError(invalidCredentials)
		}
		return nil, err
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}

	return credentialsFor(user), nil
}

// Authenticate resolves an access token to its owner. Lookups are cached
// because users and their tokens never change.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.NewUnauthorizedError("Unauthorized")
	}

	var identity models.Identity
	err := s.cache.Aside(ctx, cache.TokenKey(token), &identity, cache.UserTTL, func() error {
		user, err := s.userRepo.GetByAccessToken(ctx, token)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return models.NewUnauthorizedError("Unauthorized")
			}
			return err
		}
		identity = user.Identity()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func credentialsFor(user *models.User) *models.Credentials {
	return &models.Credentials{
		ID:          user.ID,
		Email:       user.Email,
		AccessToken: user.AccessToken,
	}
}

func authResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case models.HasCode(err, models.CodeValidation), models.HasCode(err, models.CodeUnauthorized):
		return "rejected"
	default:
		return "error"
	}
}

// randomHexToken returns tokenBytes of crypto/rand output, hex-encoded.
func randomHexToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
