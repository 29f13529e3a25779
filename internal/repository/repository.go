// Package repository declares the storage contracts used by the service
// layer. Each backend (sqlite, postgres) implements every interface here
// with the same semantics, so services never know which one they talk to.
package repository

import (
	"context"

	"github.com/sakif/blogpost-api/internal/model"
)

// PostFilter selects and pages posts for a listing.
//
// A nil CategoryID or an empty Keyword means that condition is not applied.
type PostFilter struct {
	CategoryID *int
	Keyword    string
	Limit      int
	Offset     int
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	// Delete removes the post and returns the row as it was before removal.
	Delete(ctx context.Context, id string) (*model.Post, error)
	// Count and List must apply identical conditions for the same filter.
	Count(ctx context.Context, filter PostFilter) (int, error)
	List(ctx context.Context, filter PostFilter) ([]model.Post, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// CredentialRepository stores the email/password identities of the
// built-in identity provider.
type CredentialRepository interface {
	CreateCredential(ctx context.Context, cred *model.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error)
	DeleteCredential(ctx context.Context, id string) error
}
