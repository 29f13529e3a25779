package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/repository"
)

var (
	_ repository.UserRepository       = (*DB)(nil)
	_ repository.CredentialRepository = (*DB)(nil)
)

func (d *DB) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := d.db.NamedExecContext(ctx,
		`INSERT INTO users (id, name, username, email, created_at)
		 VALUES (:id, :name, :username, :email, :created_at)`,
		user,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("postgres: inserting user %s: %w", user.ID, err)
	}
	return nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := d.db.GetContext(ctx, &u,
		`SELECT id, name, username, email, created_at FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return &u, nil
}

func (d *DB) CreateCredential(ctx context.Context, cred *model.Credential) error {
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	_, err := d.db.NamedExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, created_at)
		 VALUES (:id, :email, :password_hash, :created_at)`,
		cred,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("identity", cred.Email)
		}
		return fmt.Errorf("postgres: inserting identity: %w", err)
	}
	return nil
}

func (d *DB) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var c model.Credential

	err := d.db.GetContext(ctx, &c,
		`SELECT id, email, password_hash, created_at FROM identities WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("identity", email)
		}
		return nil, fmt.Errorf("postgres: getting identity: %w", err)
	}
	return &c, nil
}

func (d *DB) DeleteCredential(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting identity %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("identity", id)
	}
	return nil
}
