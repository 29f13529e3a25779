package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/repository"
)

// newTestDB opens a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestPost(t *testing.T, db *DB, title string, categoryID int) *model.Post {
	t.Helper()
	post := &model.Post{
		Title:       title,
		Image:       "https://example.com/cover.png",
		CategoryID:  categoryID,
		Description: "about " + title,
		Content:     "body of " + title,
		StatusID:    1,
	}
	if err := db.Create(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

func intPtr(n int) *int { return &n }

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	post := createTestPost(t, db, "Hello World", 1)

	if post.ID == "" {
		t.Error("Create() did not set post.ID")
	}
	if post.CreatedAt.IsZero() || post.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
}

func TestCreate_ThenGetReturnsSameFields(t *testing.T) {
	db := newTestDB(t)
	original := createTestPost(t, db, "Round trip", 3)

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.Title != original.Title {
		t.Errorf("Title = %q, want %q", found.Title, original.Title)
	}
	if found.Image != original.Image {
		t.Errorf("Image = %q, want %q", found.Image, original.Image)
	}
	if found.CategoryID != original.CategoryID {
		t.Errorf("CategoryID = %d, want %d", found.CategoryID, original.CategoryID)
	}
	if found.Description != original.Description {
		t.Errorf("Description = %q, want %q", found.Description, original.Description)
	}
	if found.Content != original.Content {
		t.Errorf("Content = %q, want %q", found.Content, original.Content)
	}
	if found.StatusID != original.StatusID {
		t.Errorf("StatusID = %d, want %d", found.StatusID, original.StatusID)
	}
	if !found.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, original.CreatedAt)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	post := createTestPost(t, db, "before", 1)
	createdAt := post.CreatedAt

	post.Title = "after"
	post.CategoryID = 9
	post.Content = "new body"
	if err := db.Update(context.Background(), post); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != "after" || found.CategoryID != 9 || found.Content != "new body" {
		t.Errorf("Update() not persisted: got %+v", found)
	}
	if !found.CreatedAt.Equal(createdAt) {
		t.Errorf("Update() changed created_at: %v -> %v", createdAt, found.CreatedAt)
	}
	if !post.CreatedAt.Equal(createdAt) {
		t.Errorf("Update() did not read back created_at, got %v", post.CreatedAt)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)
	createTestPost(t, db, "untouched", 1)

	err := db.Update(context.Background(), &model.Post{ID: "ghost", Title: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}

	n, err := db.Count(context.Background(), repository.PostFilter{Keyword: "x"})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Update() of missing id created or changed rows, count = %d", n)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete_ReturnsRemovedRow(t *testing.T) {
	db := newTestDB(t)
	post := createTestPost(t, db, "doomed", 4)

	deleted, err := db.Delete(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.ID != post.ID || deleted.Title != "doomed" || deleted.CategoryID != 4 {
		t.Errorf("Delete() returned %+v, want the removed post", deleted)
	}

	if _, err := db.GetByID(context.Background(), post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDelete_Twice(t *testing.T) {
	db := newTestDB(t)
	post := createTestPost(t, db, "once", 1)

	if _, err := db.Delete(context.Background(), post.ID); err != nil {
		t.Fatalf("first Delete() error = %v", err)
	}
	if _, err := db.Delete(context.Background(), post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// COUNT / LIST TESTS
// =========================================================================

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	posts, err := db.List(context.Background(), repository.PostFilter{Limit: 6})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", posts)
	}
}

func TestList_Pagination(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 13; i++ {
		createTestPost(t, db, fmt.Sprintf("post %d", i), 1)
	}

	total, err := db.Count(context.Background(), repository.PostFilter{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if total != 13 {
		t.Fatalf("Count() = %d, want 13", total)
	}

	seen := map[string]bool{}
	for _, tc := range []struct{ offset, want int }{{0, 6}, {6, 6}, {12, 1}} {
		page, err := db.List(context.Background(), repository.PostFilter{Limit: 6, Offset: tc.offset})
		if err != nil {
			t.Fatalf("List(offset=%d) error = %v", tc.offset, err)
		}
		if len(page) != tc.want {
			t.Errorf("List(offset=%d) returned %d posts, want %d", tc.offset, len(page), tc.want)
		}
		for _, p := range page {
			if seen[p.ID] {
				t.Errorf("post %s appeared on more than one page", p.ID)
			}
			seen[p.ID] = true
		}
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	createTestPost(t, db, "old", 1)
	newest := createTestPost(t, db, "new", 1)

	posts, err := db.List(context.Background(), repository.PostFilter{Limit: 6})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(posts) != 2 || posts[0].ID != newest.ID {
		t.Errorf("List() first post = %v, want %s", posts, newest.ID)
	}
}

func TestList_KeywordIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	createTestPost(t, db, "Hello World", 1)
	createTestPost(t, db, "Éclair Über Café", 1)
	createTestPost(t, db, "Unrelated", 1)

	tests := []struct {
		keyword string
		want    string
	}{
		{"HELLO", "Hello World"},
		{"hello world", "Hello World"},
		{"éclair", "Éclair Über Café"},
		{"CAFÉ", "Éclair Über Café"},
		{"über", "Éclair Über Café"},
		{"ÜBER", "Éclair Über Café"},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			filter := repository.PostFilter{Keyword: tt.keyword, Limit: 6}

			posts, err := db.List(context.Background(), filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(posts) != 1 || posts[0].Title != tt.want {
				t.Errorf("List(keyword=%q) = %+v, want only %q", tt.keyword, posts, tt.want)
			}

			n, err := db.Count(context.Background(), filter)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != 1 {
				t.Errorf("Count(keyword=%q) = %d, want 1", tt.keyword, n)
			}
		})
	}
}

func TestList_KeywordMatchesDescriptionAndContent(t *testing.T) {
	db := newTestDB(t)
	p := &model.Post{Title: "t", Image: "i", CategoryID: 1, Description: "plain", Content: "has NEEDLE inside", StatusID: 1}
	if err := db.Create(context.Background(), p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	q := &model.Post{Title: "t", Image: "i", CategoryID: 1, Description: "needle here", Content: "x", StatusID: 1}
	if err := db.Create(context.Background(), q); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := db.Count(context.Background(), repository.PostFilter{Keyword: "needle"})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count(keyword=needle) = %d, want 2", n)
	}
}

func TestList_KeywordWildcardsAreLiteral(t *testing.T) {
	db := newTestDB(t)
	createTestPost(t, db, "100% sure", 1)
	createTestPost(t, db, "1000 things", 1)

	n, err := db.Count(context.Background(), repository.PostFilter{Keyword: "100%"})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count(keyword=100%%) = %d, want 1", n)
	}
}

func TestList_CategoryAndKeyword(t *testing.T) {
	db := newTestDB(t)
	createTestPost(t, db, "foo in five", 5)
	createTestPost(t, db, "bar in five", 5)
	createTestPost(t, db, "foo in two", 2)

	filter := repository.PostFilter{CategoryID: intPtr(5), Keyword: "foo", Limit: 6}

	posts, err := db.List(context.Background(), filter)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "foo in five" {
		t.Errorf("List(category=5, keyword=foo) = %+v", posts)
	}

	n, err := db.Count(context.Background(), filter)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != len(posts) {
		t.Errorf("Count() = %d but List() returned %d rows", n, len(posts))
	}
}
