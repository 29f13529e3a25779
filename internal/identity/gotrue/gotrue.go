// Package gotrue is an identity.Provider for a hosted Supabase Auth (GoTrue)
// service, reached over its REST API.
//
// Public calls (signup, password grant) authenticate with the project's anon
// key. The admin call used to undo a signup authenticates with the service
// role key through an oauth2 static token source.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/blogpost-api/internal/identity"
)

var _ identity.Provider = (*Client)(nil)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

type Config struct {
	// URL is the auth endpoint root, e.g. https://<project>.supabase.co/auth/v1
	URL            string
	AnonKey        string
	ServiceRoleKey string
	// HTTPClient is the base client for all calls. Defaults to a client
	// with a 10 second timeout.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	anonKey string
	// serviceKey is also sent as the apikey header on admin calls.
	serviceKey string
	http       *http.Client
	admin      *http.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("gotrue: URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("gotrue: invalid URL: %w", err)
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("gotrue: anon key is required")
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 10 * time.Second}
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceRoleKey,
		http:       base,
		logger:     logger,
	}

	if cfg.ServiceRoleKey != "" {
		// oauth2.NewClient uses the client stored under oauth2.HTTPClient as
		// its transport, so timeouts and test servers carry over.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		c.admin = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.ServiceRoleKey,
			TokenType:   "Bearer",
		}))
	} else {
		logger.Warn("gotrue: no service role key, failed signups cannot be rolled back")
	}

	return c, nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u userResponse) identity() *identity.Identity {
	return &identity.Identity{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// sessionResponse is the body of a password grant. A signup returns the
// same shape when auto-confirm is on, and a bare user otherwise.
type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

// errorResponse covers both error body formats GoTrue has used.
type errorResponse struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) message() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.ErrorDescription != "":
		return e.ErrorDescription
	default:
		return e.Error
	}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*identity.Identity, error) {
	var body struct {
		userResponse
		User *userResponse `json:"user"`
	}
	err := c.do(ctx, c.http, http.MethodPost, "/signup", c.anonKey, credentialsRequest{email, password}, &body)
	if err != nil {
		return nil, err
	}

	if body.User != nil {
		return body.User.identity(), nil
	}
	if body.ID == "" {
		return nil, errors.New("gotrue: signup response has no user id")
	}
	return body.userResponse.identity(), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	var body sessionResponse
	err := c.do(ctx, c.http, http.MethodPost, "/token?grant_type=password", c.anonKey, credentialsRequest{email, password}, &body)
	if err != nil {
		return nil, err
	}
	if body.User == nil || body.AccessToken == "" {
		return nil, errors.New("gotrue: token response has no session")
	}

	token := &oauth2.Token{
		AccessToken:  body.AccessToken,
		TokenType:    body.TokenType,
		RefreshToken: body.RefreshToken,
	}
	if body.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	}

	return &identity.Session{Identity: *body.User.identity(), Token: token}, nil
}

func (c *Client) DeleteIdentity(ctx context.Context, id string) error {
	if c.admin == nil {
		return errors.New("gotrue: deleting identities needs a service role key")
	}

	err := c.do(ctx, c.admin, http.MethodDelete, "/admin/users/"+url.PathEscape(id), c.serviceKey, nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return nil
		}
		return err
	}

	c.logger.Info("gotrue identity deleted", slog.String("id", id))
	return nil
}

// statusError is a non-2xx response. It wraps the identity sentinel the
// status and error code map to, if any.
type statusError struct {
	status   int
	code     string
	message  string
	sentinel error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gotrue: status %d (%s): %s", e.status, e.code, e.message)
}

func (e *statusError) Unwrap() error {
	return e.sentinel
}

func classify(status int, body errorResponse) error {
	se := &statusError{status: status, code: body.ErrorCode, message: body.message()}
	if se.code == "" {
		se.code = body.Error
	}

	switch {
	case status >= 500:
		// transport-level failure, no sentinel
	case se.code == "user_already_exists" || se.code == "email_exists":
		se.sentinel = identity.ErrEmailTaken
	case se.code == "invalid_credentials" || se.code == "invalid_grant":
		se.sentinel = identity.ErrInvalidCredentials
	case status == http.StatusNotFound:
		// only meaningful to callers that check the status
	case status >= 400:
		se.sentinel = identity.ErrRejected
	}
	return se
}

// do sends one JSON request. in may be nil for no body; out may be nil to
// discard the response.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path, apiKey string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gotrue: encoding request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("gotrue: building request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// The admin client sets its own bearer from the token source.
	if hc == c.http {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("gotrue: reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var body errorResponse
		_ = json.Unmarshal(raw, &body)
		return classify(resp.StatusCode, body)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gotrue: decoding response: %w", err)
	}
	return nil
}
