package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blogpost-api/internal/auth"
	"github.com/sakif/blogpost-api/internal/config"
	"github.com/sakif/blogpost-api/internal/identity/local"
	"github.com/sakif/blogpost-api/internal/model"
	sqliteRepo "github.com/sakif/blogpost-api/internal/repository/sqlite"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// newTestAPI serves the full router over an in-memory database and the
// built-in identity provider.
func newTestAPI(t *testing.T) (*httptest.Server, *sqliteRepo.DB) {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("server-test-secret-0123456", time.Hour)
	require.NoError(t, err)

	logger := quietLogger()
	provider := local.New(db, auth.NewPasswordServiceForTest(bcrypt.MinCost), tokens, logger)

	ts := httptest.NewServer(NewRouter(db, provider, logger))
	t.Cleanup(ts.Close)
	return ts, db
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func post(title string, category int) map[string]any {
	return map[string]any{
		"title":       title,
		"image":       "https://example.com/cover.png",
		"category_id": category,
		"description": "a short description",
		"content":     "the body of the post",
		"status_id":   1,
	}
}

func createPost(t *testing.T, ts *httptest.Server, title string, category int) model.Post {
	t.Helper()
	resp, body := call(t, ts, http.MethodPost, "/posts", post(title, category))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out struct {
		Post model.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Post
}

func listPosts(t *testing.T, ts *httptest.Server, query string) model.PostPage {
	t.Helper()
	resp, body := call(t, ts, http.MethodGet, "/posts"+query, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var page model.PostPage
	require.NoError(t, json.Unmarshal(body, &page))
	return page
}

// =========================================================================
// ROUTES
// =========================================================================

func TestRoutes_Status(t *testing.T) {
	ts, _ := newTestAPI(t)

	for _, path := range []string{"/", "/test"} {
		resp, body := call(t, ts, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `"Server API is working 🚀"`, string(body))
		assert.NotEmpty(t, resp.Header.Get("Content-Type"))
	}

	resp, body := call(t, ts, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRoutes_CORSPreflight(t *testing.T) {
	ts, _ := newTestAPI(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/posts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestRoutes_UnknownPathIs404(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, _ := call(t, ts, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =========================================================================
// POSTS END TO END
// =========================================================================

func TestPosts_MissingFieldWritesNothing(t *testing.T) {
	ts, _ := newTestAPI(t)

	body := post("Hello", 1)
	delete(body, "content")
	resp, raw := call(t, ts, http.MethodPost, "/posts", body)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"validation_error","message":"Content is required","field":"content"}`, string(raw))
	assert.Zero(t, listPosts(t, ts, "").TotalPosts)
}

func TestPosts_CreateThenRead(t *testing.T) {
	ts, _ := newTestAPI(t)
	created := createPost(t, ts, "Hello World", 4)

	resp, raw := call(t, ts, http.MethodGet, "/posts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.Post
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Hello World", got.Title)
	assert.Equal(t, "https://example.com/cover.png", got.Image)
	assert.Equal(t, 4, got.CategoryID)
	assert.Equal(t, "a short description", got.Description)
	assert.Equal(t, "the body of the post", got.Content)
	assert.Equal(t, 1, got.StatusID)
}

func TestPosts_DeleteTwice(t *testing.T) {
	ts, _ := newTestAPI(t)
	created := createPost(t, ts, "Short lived", 1)

	resp, _ := call(t, ts, http.MethodDelete, "/posts/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodDelete, "/posts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPosts_UpdateMissingChangesNothing(t *testing.T) {
	ts, _ := newTestAPI(t)
	created := createPost(t, ts, "Original", 1)

	resp, _ := call(t, ts, http.MethodPut, "/posts/does-not-exist", post("Changed", 2))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	page := listPosts(t, ts, "")
	require.Len(t, page.Posts, 1)
	assert.Equal(t, created.ID, page.Posts[0].ID)
	assert.Equal(t, "Original", page.Posts[0].Title)
}

func TestPosts_Pagination(t *testing.T) {
	ts, _ := newTestAPI(t)
	for i := 0; i < 13; i++ {
		createPost(t, ts, "Post", 1)
	}

	first := listPosts(t, ts, "?limit=6")
	assert.Len(t, first.Posts, 6)
	assert.Equal(t, 3, first.TotalPages)
	require.NotNil(t, first.NextPage)
	assert.Equal(t, 2, *first.NextPage)

	last := listPosts(t, ts, "?page=3&limit=6")
	assert.Len(t, last.Posts, 1)
	assert.Nil(t, last.NextPage)

	seen := map[string]bool{}
	for _, q := range []string{"?page=1", "?page=2", "?page=3"} {
		for _, p := range listPosts(t, ts, q).Posts {
			assert.False(t, seen[p.ID], "post %s appeared on two pages", p.ID)
			seen[p.ID] = true
		}
	}
	assert.Len(t, seen, 13)
}

func TestPosts_KeywordIsCaseInsensitive(t *testing.T) {
	ts, _ := newTestAPI(t)
	createPost(t, ts, "Hello World", 1)
	createPost(t, ts, "Goodbye", 1)

	page := listPosts(t, ts, "?keyword=HELLO")
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Hello World", page.Posts[0].Title)
}

func TestPosts_CategoryAndKeyword(t *testing.T) {
	ts, _ := newTestAPI(t)
	createPost(t, ts, "foo in five", 5)
	createPost(t, ts, "foo in six", 6)
	createPost(t, ts, "bar in five", 5)

	page := listPosts(t, ts, "?category=5&keyword=foo")
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "foo in five", page.Posts[0].Title)
	assert.Equal(t, 1, page.TotalPosts)
}

// =========================================================================
// AUTH END TO END
// =========================================================================

func TestAuth_DuplicateSignupLeavesOneProfile(t *testing.T) {
	ts, db := newTestAPI(t)
	signup := map[string]any{"name": "Ada", "username": "ada", "email": "ada@example.com", "password": "secret123"}

	resp, raw := call(t, ts, http.MethodPost, "/auth/signup", signup)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	signup["username"] = "ada2"
	resp, _ = call(t, ts, http.MethodPost, "/auth/signup", signup)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	profile, err := db.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada", profile.Username)
}

func TestAuth_LoginReturnsProfileAndSession(t *testing.T) {
	ts, _ := newTestAPI(t)
	signup := map[string]any{"name": "Ada", "username": "ada", "email": "ada@example.com", "password": "secret123"}
	resp, _ := call(t, ts, http.MethodPost, "/auth/signup", signup)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := call(t, ts, http.MethodPost, "/auth/login", map[string]any{"email": "ada@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var out struct {
		User    model.User     `json:"user"`
		Session map[string]any `json:"session"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "ada", out.User.Username)
	assert.NotEmpty(t, out.Session["access_token"])
	assert.NotContains(t, string(raw), "secret123")
}

// =========================================================================
// COMPOSITION
// =========================================================================

func TestNew_SQLiteLocal(t *testing.T) {
	cfg := &config.Config{
		Port:             4000,
		DBDriver:         config.DriverSQLite,
		DBPath:           ":memory:",
		IdentityProvider: config.ProviderLocal,
		JWTSecret:        "composition-test-secret-01",
		TokenTTL:         time.Hour,
	}

	srv, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { srv.store.Close() })

	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNew_BadProviderClosesStore(t *testing.T) {
	cfg := &config.Config{
		DBDriver:         config.DriverSQLite,
		DBPath:           ":memory:",
		IdentityProvider: config.ProviderLocal,
		JWTSecret:        "short",
	}

	_, err := New(context.Background(), cfg, quietLogger())
	assert.ErrorContains(t, err, "identity provider")
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), &config.Config{DBDriver: "oracle"}, quietLogger())
	assert.ErrorContains(t, err, "unknown database driver")
}
