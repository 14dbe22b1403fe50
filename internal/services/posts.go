package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ridemate/internal/models"
	"ridemate/internal/repository"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
	"github.com/rs/zerolog/log"
)

// PostService keeps the social feed in sync with the feed endpoint. Every
// rider's posts are held; ByAuthor is a projection.
type PostService struct {
	repo    *repository.PostRepository
	media   MediaStore
	session IdentitySource
	posts   *Collection[models.Post]
	clock   Clock
}

// NewPostService creates a new post service
func NewPostService(
	repo *repository.PostRepository,
	media MediaStore,
	session IdentitySource,
	notifier Notifier,
	clock Clock,
) *PostService {
	return &PostService{
		repo:    repo,
		media:   media,
		session: session,
		posts:   NewCollection("posts", func(p models.Post) string { return p.ID }, notifier),
		clock:   nowOr(clock),
	}
}

// Refresh loads the whole feed
func (s *PostService) Refresh(ctx context.Context) error {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for i := range posts {
		normalizePost(&posts[i])
	}
	s.posts.Replace(posts)
	return nil
}

// Reset forgets the cached feed
func (s *PostService) Reset() {
	s.posts.Reset()
}

// All returns the feed in stored order
func (s *PostService) All() []models.Post {
	return s.posts.Snapshot()
}

// ByAuthor returns the posts written by one rider
func (s *PostService) ByAuthor(userID string) []models.Post {
	return s.posts.Filter(func(p models.Post) bool { return p.Author.UserID == userID })
}

// Get returns one post
func (s *PostService) Get(id string) (*models.Post, error) {
	post, ok := s.posts.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &post, nil
}

// Create publishes a post. The attachment, if any, is uploaded first; the post
// is then shown at the top of the feed before the remote write completes.
func (s *PostService) Create(ctx context.Context, content string, upload *MediaUpload) (*models.Post, error) {
	id := s.session.Identity()
	if id == nil {
		return nil, ErrNotLoggedIn
	}
	content = strings.TrimSpace(content)
	if content == "" && upload == nil {
		return nil, invalid("content", "content or media is required")
	}

	now := s.clock.Now()
	post := models.Post{
		ID:        uuid.New().String(),
		Author:    id.Author(),
		Content:   content,
		Likes:     []string{},
		Comments:  []models.Comment{},
		Timestamp: now,
	}

	if upload != nil {
		media, err := s.upload(ctx, id.ID, upload)
		if err != nil {
			return nil, err
		}
		post.Media = media
	}

	undo := s.posts.Prepend(post)
	err := s.posts.Commit(ctx, "create post", post.ID, undo, func(ctx context.Context) error {
		return s.repo.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Edit changes one of the active rider's posts. An unspecified content keeps
// the current text. A new attachment replaces the old one; without one the
// old attachment is kept.
func (s *PostService) Edit(ctx context.Context, postID string, content nullable.Nullable[string], upload *MediaUpload) (*models.Post, error) {
	id := s.session.Identity()
	if id == nil {
		return nil, ErrNotLoggedIn
	}
	if existing, ok := s.posts.Get(postID); !ok || existing.Author.UserID != id.ID {
		return nil, ErrNotFound
	}

	var media *models.Media
	if upload != nil {
		m, err := s.upload(ctx, id.ID, upload)
		if err != nil {
			return nil, err
		}
		media = m
	}

	var patch models.PostPatch
	if content.IsSpecified() {
		text := ""
		if !content.IsNull() {
			text = strings.TrimSpace(content.MustGet())
		}
		patch.Content = nullable.NewNullableWithValue(text)
	}

	var write models.PostUpdate
	updated, undo, err := s.posts.Patch(postID, func(p models.Post) (models.Post, Revert[models.Post], error) {
		edit := patch
		switch {
		case media != nil:
			edit.Media = nullable.NewNullableWithValue(*media)
		case p.Media != nil:
			edit.Media = nullable.NewNullableWithValue(*p.Media)
		default:
			edit.Media.SetNull()
		}
		next := edit.Apply(p)
		if next.Content == "" && next.Media == nil {
			return p, nil, invalid("content", "content or media is required")
		}
		write = models.PostUpdate{ID: postID, PostPatch: edit}
		return next, edit.Inverse(p).Apply, nil
	})
	if err != nil {
		return nil, err
	}

	err = s.posts.Commit(ctx, "edit post", postID, undo, func(ctx context.Context) error {
		return s.repo.Update(ctx, write)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes one of the active rider's posts
func (s *PostService) Delete(ctx context.Context, postID string) error {
	id := s.session.Identity()
	if id == nil {
		return ErrNotLoggedIn
	}
	if existing, ok := s.posts.Get(postID); !ok || existing.Author.UserID != id.ID {
		return ErrNotFound
	}

	_, undo, err := s.posts.Remove(postID)
	if err != nil {
		return err
	}
	return s.posts.Commit(ctx, "delete post", postID, undo, func(ctx context.Context) error {
		return s.repo.Delete(ctx, postID)
	})
}

// Like toggles the active rider's like. The whole likes list is written.
func (s *PostService) Like(ctx context.Context, postID string) (*models.Post, error) {
	id := s.session.Identity()
	if id == nil {
		return nil, ErrNotLoggedIn
	}

	var likes []string
	updated, undo, err := s.posts.Patch(postID, func(p models.Post) (models.Post, Revert[models.Post], error) {
		liked := !p.LikedBy(id.ID)
		likes = toggleLike(p.Likes, id.ID)
		p.Likes = likes
		return p, func(cur models.Post) models.Post {
			if cur.LikedBy(id.ID) == liked {
				cur.Likes = toggleLike(cur.Likes, id.ID)
			}
			return cur
		}, nil
	})
	if err != nil {
		return nil, err
	}

	err = s.posts.Commit(ctx, "like post", postID, undo, func(ctx context.Context) error {
		return s.repo.Update(ctx, models.PostUpdate{
			ID:        postID,
			PostPatch: models.PostPatch{Likes: nullable.NewNullableWithValue(likes)},
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Comment appends a comment. The whole comments list is written.
func (s *PostService) Comment(ctx context.Context, postID, text string) (*models.Post, error) {
	id := s.session.Identity()
	if id == nil {
		return nil, ErrNotLoggedIn
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("content", "is required")
	}

	now := s.clock.Now()
	var comments []models.Comment
	updated, undo, err := s.posts.Patch(postID, func(p models.Post) (models.Post, Revert[models.Post], error) {
		comment := models.Comment{
			ID:        commentID(p.Comments, now.UnixMilli()),
			Author:    id.Author(),
			Content:   text,
			Timestamp: now,
		}
		comments = append(append(make([]models.Comment, 0, len(p.Comments)+1), p.Comments...), comment)
		p.Comments = comments
		return p, func(cur models.Post) models.Post {
			cur.Comments = dropComment(cur.Comments, comment.ID)
			return cur
		}, nil
	})
	if err != nil {
		return nil, err
	}

	err = s.posts.Commit(ctx, "comment on post", postID, undo, func(ctx context.Context) error {
		return s.repo.Update(ctx, models.PostUpdate{
			ID:        postID,
			PostPatch: models.PostPatch{Comments: nullable.NewNullableWithValue(comments)},
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *PostService) upload(ctx context.Context, userID string, upload *MediaUpload) (*models.Media, error) {
	if s.media == nil {
		return nil, fmt.Errorf("media uploads are not configured")
	}
	if upload.Filename == "" {
		return nil, invalid("media", "filename is required")
	}

	key := MediaKey(userID, upload.Filename, s.clock.Now())
	url, err := s.media.Upload(ctx, key, upload.ContentType, upload.Body)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("key", key).Msg("Failed to upload media")
		return nil, err
	}

	return &models.Media{Type: upload.Type(), URL: url}, nil
}

// toggleLike returns a new list with userID removed if present, else appended.
// Duplicates left by other writers are collapsed.
func toggleLike(likes []string, userID string) []string {
	out := make([]string, 0, len(likes)+1)
	seen := make(map[string]bool, len(likes))
	liked := false
	for _, l := range likes {
		if seen[l] {
			continue
		}
		seen[l] = true
		if l == userID {
			liked = true
			continue
		}
		out = append(out, l)
	}
	if !liked {
		out = append(out, userID)
	}
	return out
}

// commentID derives a comment id from the timestamp, bumped past ids already in use
func commentID(existing []models.Comment, millis int64) string {
	used := make(map[string]bool, len(existing))
	for _, c := range existing {
		used[c.ID] = true
	}
	for used[strconv.FormatInt(millis, 10)] {
		millis++
	}
	return strconv.FormatInt(millis, 10)
}

// dropComment returns a new list without the comment with the given id
func dropComment(comments []models.Comment, commentID string) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		if c.ID != commentID {
			out = append(out, c)
		}
	}
	return out
}

func normalizePost(p *models.Post) {
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
}
