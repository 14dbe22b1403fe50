package repository

import (
	"context"
	"fmt"
	"net/http"

	"ridemate/internal/models"
)

// PostRepository talks to the social feed endpoint
type PostRepository struct {
	c *client
}

// NewPostRepository creates a new post repository
func NewPostRepository(baseURL string, httpClient *http.Client) *PostRepository {
	return &PostRepository{c: newClient(baseURL, httpClient)}
}

// List retrieves the whole feed
func (r *PostRepository) List(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := r.c.do(ctx, "list posts", http.MethodGet, "getPosts", nil, nil, &posts); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Create stores a new post
func (r *PostRepository) Create(ctx context.Context, post models.Post) error {
	if err := r.c.do(ctx, "create post", http.MethodPost, "createPost", nil, post, nil); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// Update replaces the fields present in the update; lists are replaced wholesale
func (r *PostRepository) Update(ctx context.Context, update models.PostUpdate) error {
	if err := r.c.do(ctx, "update post", http.MethodPut, "updatePost", nil, update, nil); err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// Delete deletes a post by ID
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	if err := r.c.do(ctx, "delete post", http.MethodDelete, "deletePost", nil, idBody{ID: id}, nil); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}
