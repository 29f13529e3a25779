package sqlite

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

var _ repository.CredentialRepository = (*DB)(nil)

func (db *DB) CreateCredential(ctx context.Context, cred *model.Credential) error {
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`,
		cred.ID,
		cred.Email,
		cred.PasswordHash,
		cred.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("identity", cred.Email)
		}
		return fmt.Errorf("sqlite: inserting identity: %w", err)
	}
	return nil
}

func (db *DB) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var c model.Credential

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE email = ?`,
		email,
	).Scan(&c.ID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("identity", email)
		}
		return nil, fmt.Errorf("sqlite: getting identity: %w", err)
	}
	return &c, nil
}

func (db *DB) DeleteCredential(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting identity %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("identity", id)
	}
	return nil
}
