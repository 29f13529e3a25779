package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/identity"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/repository"
	"github.com/sakif/blogpost-api/internal/validation"
)

// Messages returned to clients. Provider and database error text is logged
// and never put in a response.
const (
	msgEmailTaken         = "Email is already registered"
	msgSignupRejected     = "Signup was rejected by the identity provider"
	msgProfileFailed      = "Could not create user profile"
	msgInvalidCredentials = "Invalid email or password"
	msgProfileNotFound    = "User profile not found"
)

type SignupRequest struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the profile of the signed-in user and the session issued
// by the identity provider.
type LoginResult struct {
	User    *model.User   `json:"user"`
	Session *oauth2.Token `json:"session"`
}

// AuthService delegates credentials to an identity.Provider and keeps the
// matching profile row in the users table.
type AuthService struct {
	provider identity.Provider
	users    repository.UserRepository
	validate *validation.Validator
	logger   *slog.Logger
}

func NewAuthService(provider identity.Provider, users repository.UserRepository, logger *slog.Logger) *AuthService {
	return &AuthService{
		provider: provider,
		users:    users,
		validate: validation.New(),
		logger:   logger,
	}
}

// Signup creates the identity first and then the profile row keyed by the
// identity's id.
//
// If the profile insert fails the identity is deleted again, so a failed
// signup never leaves an account that cannot log in.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*identity.Identity, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	ident, err := s.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			return nil, apperror.Rejected(msgEmailTaken)
		case errors.Is(err, identity.ErrRejected):
			s.logger.Warn("signup rejected by identity provider", slog.String("error", err.Error()))
			return nil, apperror.Rejected(msgSignupRejected)
		}
		s.logger.Error("identity provider signup failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("signing up: %w", err)
	}

	user := &model.User{
		ID:       ident.ID,
		Name:     req.Name,
		Username: req.Username,
		Email:    ident.Email,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		s.logger.Error("failed to create user profile",
			slog.String("identity_id", ident.ID),
			slog.String("error", err.Error()),
		)
		s.compensate(ctx, ident.ID)
		return nil, apperror.Rejected(msgProfileFailed)
	}

	s.logger.Info("user signed up", slog.String("id", ident.ID))
	return ident, nil
}

// compensate removes an identity whose profile could not be stored. It
// runs on a context detached from the request so a client disconnect does
// not leave the identity behind.
func (s *AuthService) compensate(ctx context.Context, id string) {
	if err := s.provider.DeleteIdentity(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Error("orphaned identity left after failed signup",
			slog.String("identity_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// Login signs in with the provider and returns the stored profile together
// with the provider's session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	session, err := s.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrRejected) {
			return nil, apperror.Rejected(msgInvalidCredentials)
		}
		s.logger.Error("identity provider sign-in failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("logging in: %w", err)
	}

	user, err := s.users.GetUserByEmail(ctx, session.Identity.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("identity without profile", slog.String("identity_id", session.Identity.ID))
			return nil, apperror.Rejected(msgProfileNotFound)
		}
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	return &LoginResult{User: user, Session: session.Token}, nil
}
