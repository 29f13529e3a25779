// Package model defines the data structures used throughout the application.
package model

import "time"

// Post is a blog post as stored and returned by the API.
//
// The `db` tags are read by sqlx in the Postgres repository; the SQLite
// repository scans columns positionally and ignores them.
type Post struct {
	ID          string    `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Image       string    `json:"image"       db:"image"`
	CategoryID  int       `json:"category_id" db:"category_id"`
	Description string    `json:"description" db:"description"`
	Content     string    `json:"content"     db:"content"`
	StatusID    int       `json:"status_id"   db:"status_id"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"  db:"updated_at"`
}

// PostInput is the typed body of a create or update request, produced by
// the request validation middleware from the raw JSON object.
type PostInput struct {
	Title       string `json:"title"       validate:"required,max=255"`
	Image       string `json:"image"       validate:"required,max=2048"`
	CategoryID  int    `json:"category_id" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=1000"`
	Content     string `json:"content"     validate:"required,max=100000"`
	StatusID    int    `json:"status_id"   validate:"gte=0"`
}

// PostPage is one page of a filtered post listing.
//
// NextPage is nil on the last page so it encodes as JSON null.
type PostPage struct {
	TotalPosts  int    `json:"totalPosts"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
	Limit       int    `json:"limit"`
	Posts       []Post `json:"posts"`
	NextPage    *int   `json:"nextPage"`
}

// PostField describes one field of a post request body.
type PostField struct {
	Name    string // JSON key
	Label   string // name used in client-facing messages
	Numeric bool   // integer field; otherwise a string
}

// PostFields lists the fields of a post body in the order they are checked.
// The first failing field is the one reported.
var PostFields = []PostField{
	{Name: "title", Label: "Title"},
	{Name: "image", Label: "Image"},
	{Name: "category_id", Label: "Category ID", Numeric: true},
	{Name: "description", Label: "Description"},
	{Name: "content", Label: "Content"},
	{Name: "status_id", Label: "Status ID", Numeric: true},
}

// PostFieldLabel returns the client-facing label for a JSON key, or the key
// itself when it is not a post field.
func PostFieldLabel(name string) string {
	for _, f := range PostFields {
		if f.Name == name {
			return f.Label
		}
	}
	return name
}
