package local

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blogpost-api/internal/auth"
	"github.com/sakif/blogpost-api/internal/identity"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/repository/sqlite"
)

func newTestProvider(t *testing.T) (*Provider, *sqlite.DB, *auth.TokenService) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("local-provider-test-secret", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	p := New(db, auth.NewPasswordServiceForTest(bcrypt.MinCost), tokens, logger)
	return p, db, tokens
}

func TestSignUp(t *testing.T) {
	p, db, _ := newTestProvider(t)

	id, err := p.SignUp(context.Background(), "  Alice@Example.com ", "secret123")

	require.NoError(t, err)
	assert.NotEmpty(t, id.ID)
	assert.Equal(t, "alice@example.com", id.Email)

	cred, err := db.GetCredentialByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id.ID, cred.ID)
	assert.NotEqual(t, "secret123", cred.PasswordHash)
}

func TestSignUp_EmailTaken(t *testing.T) {
	p, _, _ := newTestProvider(t)
	_, err := p.SignUp(context.Background(), "bob@example.com", "secret123")
	require.NoError(t, err)

	_, err = p.SignUp(context.Background(), "BOB@example.com", "another1")

	assert.True(t, errors.Is(err, identity.ErrEmailTaken))
}

func TestSignUp_PasswordTooLong(t *testing.T) {
	p, _, _ := newTestProvider(t)

	long := strings.Repeat("x", auth.MaxPasswordBytes+1)
	_, err := p.SignUp(context.Background(), "c@example.com", long)

	assert.True(t, errors.Is(err, identity.ErrRejected))
}

func TestSignIn(t *testing.T) {
	p, _, tokens := newTestProvider(t)
	created, err := p.SignUp(context.Background(), "dan@example.com", "secret123")
	require.NoError(t, err)

	session, err := p.SignIn(context.Background(), "dan@example.com", "secret123")

	require.NoError(t, err)
	assert.Equal(t, created.ID, session.Identity.ID)
	assert.Equal(t, "bearer", session.Token.TokenType)
	assert.True(t, session.Token.Expiry.After(time.Now()))

	subject, err := tokens.Validate(session.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, subject)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	p, _, _ := newTestProvider(t)
	_, err := p.SignUp(context.Background(), "eve@example.com", "secret123")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := p.SignIn(context.Background(), "eve@example.com", "nope-nope")
		assert.True(t, errors.Is(err, identity.ErrInvalidCredentials))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := p.SignIn(context.Background(), "ghost@example.com", "secret123")
		assert.True(t, errors.Is(err, identity.ErrInvalidCredentials))
	})
}

func TestSignIn_CorruptHashIsNotInvalidCredentials(t *testing.T) {
	p, db, _ := newTestProvider(t)
	require.NoError(t, db.CreateCredential(context.Background(), &model.Credential{
		ID: "x", Email: "broken@example.com", PasswordHash: "not-bcrypt",
	}))

	_, err := p.SignIn(context.Background(), "broken@example.com", "whatever")

	require.Error(t, err)
	assert.False(t, errors.Is(err, identity.ErrInvalidCredentials))
}

func TestDeleteIdentity(t *testing.T) {
	p, _, _ := newTestProvider(t)
	created, err := p.SignUp(context.Background(), "fay@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, p.DeleteIdentity(context.Background(), created.ID))

	_, err = p.SignIn(context.Background(), "fay@example.com", "secret123")
	assert.True(t, errors.Is(err, identity.ErrInvalidCredentials))

	// already gone
	assert.NoError(t, p.DeleteIdentity(context.Background(), created.ID))
}
