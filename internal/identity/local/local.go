// Package local is an identity.Provider backed by the application's own
// database: bcrypt password hashes in the identities table and HS256 access
// tokens. It is the default when no hosted provider is configured.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/auth"
	"github.com/sakif/blogpost-api/internal/identity"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/repository"
)

var _ identity.Provider = (*Provider)(nil)

type Provider struct {
	creds     repository.CredentialRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func New(
	creds repository.CredentialRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *Provider {
	return &Provider{
		creds:     creds,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp hashes the password and stores a new identity with a random UUID.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*identity.Identity, error) {
	email = normalizeEmail(email)

	hash, err := p.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", identity.ErrRejected, err)
		}
		return nil, fmt.Errorf("local: signing up: %w", err)
	}

	cred := &model.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.creds.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, identity.ErrEmailTaken
		}
		return nil, fmt.Errorf("local: signing up: %w", err)
	}

	p.logger.Info("identity created", slog.String("id", cred.ID))

	return &identity.Identity{ID: cred.ID, Email: cred.Email, CreatedAt: cred.CreatedAt}, nil
}

// SignIn checks the password and issues a bearer access token. An unknown
// email and a wrong password produce the same error.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	email = normalizeEmail(email)

	cred, err := p.creds.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("local: signing in: %w", err)
	}

	if err := p.passwords.Verify(cred.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("local: signing in: %w", err)
	}

	access, expiresAt, err := p.tokens.Generate(cred.ID, cred.Email)
	if err != nil {
		return nil, fmt.Errorf("local: issuing token: %w", err)
	}

	return &identity.Session{
		Identity: identity.Identity{ID: cred.ID, Email: cred.Email, CreatedAt: cred.CreatedAt},
		Token: &oauth2.Token{
			AccessToken: access,
			TokenType:   "bearer",
			Expiry:      expiresAt,
		},
	}, nil
}

func (p *Provider) DeleteIdentity(ctx context.Context, id string) error {
	if err := p.creds.DeleteCredential(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("local: deleting identity %s: %w", id, err)
	}

	p.logger.Info("identity deleted", slog.String("id", id))
	return nil
}
