// Package identity defines the contract for the external identity provider
// that owns user credentials.
//
// The API never stores passwords itself. Signup and login are delegated to a
// Provider; the local "users" table only holds a profile keyed by the
// provider's identity id.
package identity

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrEmailTaken means an identity with that email already exists.
	ErrEmailTaken = errors.New("identity: email already registered")
	// ErrInvalidCredentials means the email/password pair was not accepted.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrRejected covers any other refusal caused by the request itself,
	// such as a password the provider considers too weak.
	ErrRejected = errors.New("identity: request rejected")
)

// Identity is an account held by the provider.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the result of a successful sign-in.
type Session struct {
	Identity Identity
	Token    *oauth2.Token
}

// Provider creates and authenticates identities.
//
// Failures the caller caused are reported as one of the sentinel errors
// above (possibly wrapped). Anything else, such as a network error or a 5xx
// from a hosted provider, is returned as a plain error.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// DeleteIdentity removes an identity. Deleting one that does not exist
	// is not an error.
	DeleteIdentity(ctx context.Context, id string) error
}
