package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

const postColumns = `id, title, image, category_id, description, content, status_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner, p *model.Post) error {
	return s.Scan(
		&p.ID,
		&p.Title,
		&p.Image,
		&p.CategoryID,
		&p.Description,
		&p.Content,
		&p.StatusID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// Create inserts a new post. The ID and both timestamps are generated here
// and written back into post.
//
// xid IDs are 20 URL-safe characters and sort by creation time, which is
// what gives List its stable tie-break.
func (db *DB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()

	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Image,
		post.CategoryID,
		post.Description,
		post.Content,
		post.StatusID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// GetByID returns apperror.ErrNotFound when no post has that id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`,
		id,
	)
	if err := scanPost(row, &post); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	return &post, nil
}

// Update replaces every mutable column of the post. id and created_at are
// never changed; created_at is read back so the caller gets the full row.
func (db *DB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	err := db.conn.QueryRowContext(ctx,
		`UPDATE posts
		 SET title = ?, image = ?, category_id = ?, description = ?,
		     content = ?, status_id = ?, updated_at = ?
		 WHERE id = ?
		 RETURNING created_at`,
		post.Title,
		post.Image,
		post.CategoryID,
		post.Description,
		post.Content,
		post.StatusID,
		post.UpdatedAt,
		post.ID,
	).Scan(&post.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("post", post.ID)
		}
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	return nil
}

// Delete removes the post and returns it as it was. A second delete of the
// same id finds no row and returns apperror.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post

	row := db.conn.QueryRowContext(ctx,
		`DELETE FROM posts WHERE id = ? RETURNING `+postColumns,
		id,
	)
	if err := scanPost(row, &post); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	return &post, nil
}

// Count returns how many posts match the filter, ignoring paging.
func (db *DB) Count(ctx context.Context, filter repository.PostFilter) (int, error) {
	where, args := repository.Conditions(filter, repository.SQLite)

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// List returns one page of posts matching the filter, newest first.
func (db *DB) List(ctx context.Context, filter repository.PostFilter) ([]model.Post, error) {
	where, args := repository.Conditions(filter, repository.SQLite)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts`+where+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, max(filter.Limit, 0))
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}
