package postgres

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

func (d *DB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()

	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := d.db.NamedExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (:id, :title, :image, :category_id, :description, :content, :status_id, :created_at, :updated_at)`,
		post,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating post: %w", err)
	}
	return nil
}

func (d *DB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post

	err := d.db.GetContext(ctx, &post, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("postgres: getting post %s: %w", id, err)
	}
	return &post, nil
}

func (d *DB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	err := d.db.QueryRowxContext(ctx,
		`UPDATE posts
		 SET title = $1, image = $2, category_id = $3, description = $4,
		     content = $5, status_id = $6, updated_at = $7
		 WHERE id = $8
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
		return fmt.Errorf("postgres: updating post %s: %w", post.ID, err)
	}
	return nil
}

func (d *DB) Delete(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post

	err := d.db.GetContext(ctx, &post, `DELETE FROM posts WHERE id = $1 RETURNING `+postColumns, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("postgres: deleting post %s: %w", id, err)
	}
	return &post, nil
}

func (d *DB) Count(ctx context.Context, filter repository.PostFilter) (int, error) {
	where, args := repository.Conditions(filter, repository.Postgres)

	var n int
	if err := d.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts`+where, args...); err != nil {
		return 0, fmt.Errorf("postgres: counting posts: %w", err)
	}
	return n, nil
}

func (d *DB) List(ctx context.Context, filter repository.PostFilter) ([]model.Post, error) {
	where, args := repository.Conditions(filter, repository.Postgres)
	limitBind := repository.Postgres.Placeholder(len(args) + 1)
	offsetBind := repository.Postgres.Placeholder(len(args) + 2)
	args = append(args, filter.Limit, filter.Offset)

	posts := []model.Post{}
	err := d.db.SelectContext(ctx, &posts,
		`SELECT `+postColumns+` FROM posts`+where+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT `+limitBind+` OFFSET `+offsetBind,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts: %w", err)
	}
	return posts, nil
}
