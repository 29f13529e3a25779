// Package service holds the business rules between the HTTP handlers and
// the repositories.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, applies rules, orchestrates
//	Repository      → reads and writes storage
//
// Services depend on repository interfaces, never on a concrete backend, and
// return apperror values instead of HTTP status codes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blogpost-api/internal/apperror"
	"github.com/sakif/blogpost-api/internal/model"
	"github.com/sakif/blogpost-api/internal/repository"
	"github.com/sakif/blogpost-api/internal/validation"
)

// Listing defaults. A page or limit that is missing, not a number or below 1
// falls back to these.
const (
	DefaultPage  = 1
	DefaultLimit = 6
	MaxLimit     = 100
	// MaxPage keeps the computed offset far from integer overflow.
	MaxPage = 1 << 24
)

// ListParams are the already-parsed query parameters of a listing. Zero or
// negative Page and Limit mean "use the default".
type ListParams struct {
	Page       int
	Limit      int
	CategoryID *int
	Keyword    string
}

type PostService struct {
	repo     repository.PostRepository
	validate *validation.Validator
	logger   *slog.Logger
}

func NewPostService(repo repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{
		repo:     repo,
		validate: validation.New(),
		logger:   logger,
	}
}

// checkInput enforces the fields a post cannot exist without, in order,
// then the length and range limits from the struct tags.
//
// These checks run even though the HTTP middleware has already validated
// the body, so any caller of the service gets the same guarantees.
func (s *PostService) checkInput(in model.PostInput) error {
	switch {
	case in.Title == "":
		return apperror.ValidationFailed("title", "Title is required")
	case in.Image == "":
		return apperror.ValidationFailed("image", "Image is required")
	case in.CategoryID == 0:
		return apperror.ValidationFailed("category_id", "Category ID is required")
	case in.Content == "":
		return apperror.ValidationFailed("content", "Content is required")
	}
	return s.validate.Struct(in)
}

func postFromInput(in model.PostInput) *model.Post {
	return &model.Post{
		Title:       in.Title,
		Image:       in.Image,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Content:     in.Content,
		StatusID:    in.StatusID,
	}
}

// Create validates and stores a new post. Stored text is kept exactly as
// sent; nothing is trimmed or sanitized.
func (s *PostService) Create(ctx context.Context, in model.PostInput) (*model.Post, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	post := postFromInput(in)
	if err := s.repo.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created", slog.String("id", post.ID))
	return post, nil
}

// GetByID returns apperror.ErrNotFound if the post doesn't exist.
func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.NotFound("post", id)
	}

	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting post: %w", err)
	}
	return post, nil
}

// Update replaces every field of an existing post.
func (s *PostService) Update(ctx context.Context, id string, in model.PostInput) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.NotFound("post", id)
	}
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	post := postFromInput(in)
	post.ID = id
	if err := s.repo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.logger.Info("post updated", slog.String("id", id))
	return post, nil
}

// Delete removes a post and returns it as it was.
func (s *PostService) Delete(ctx context.Context, id string) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.NotFound("post", id)
	}

	post, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deleting post: %w", err)
	}

	s.logger.Info("post deleted", slog.String("id", id))
	return post, nil
}

// List returns one page of posts matching the filters plus paging metadata.
//
// totalPages is ceil(totalPosts/limit). nextPage is page+1 while page is
// before the last page and nil otherwise, so a page past the end returns
// no posts and no next page.
func (s *PostService) List(ctx context.Context, params ListParams) (*model.PostPage, error) {
	page := params.Page
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit := params.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filter := repository.PostFilter{
		CategoryID: params.CategoryID,
		Keyword:    strings.TrimSpace(params.Keyword),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("failed to count posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("counting posts: %w", err)
	}

	posts, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	if posts == nil {
		posts = []model.Post{}
	}

	totalPages := (total + limit - 1) / limit

	result := &model.PostPage{
		TotalPosts:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		Limit:       limit,
		Posts:       posts,
	}
	if page < totalPages {
		next := page + 1
		result.NextPage = &next
	}

	return result, nil
}
