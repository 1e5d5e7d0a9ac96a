package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"farmlink/internal/authz"
	"farmlink/internal/imaging"
	"farmlink/internal/markup"
	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/notifications"
	"farmlink/internal/observability"
	"farmlink/internal/pdf"
	"farmlink/internal/repository"
	"farmlink/internal/storage"

	"github.com/google/uuid"
)

// Post content limits.
const (
	MaxPostRunes       = 5000
	MaxTagsLength      = 255
	MaxPollQuestion    = 255
	MaxPollChoices     = 10
	MaxPollChoiceRunes = 100
	MaxPageSize        = 100
	DefaultPageSize    = 20
)

// FeedPublisher receives realtime feed events. Publishing is best effort.
type FeedPublisher interface {
	PublishFeedEvent(ctx context.Context, ev notifications.FeedEvent) error
}

// Media configures where post images are stored.
type Media struct {
	Store storage.Store
	// BaseURL is the prefix of URLs returned by Store.Put.
	BaseURL string
	Image   imaging.Options
}

type PostService struct {
	postRepo  repository.PostRepository
	principal PrincipalLookup
	media     Media
	feed      FeedPublisher
}

// CreatePollInput is the poll payload attached to a new post.
type CreatePollInput struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

type CreatePostInput struct {
	AuthorID   uint
	Content    string
	Visibility string
	Tags       string
	// Image holds the raw uploaded bytes, if any.
	Image []byte
	Poll  *CreatePollInput
}

type ListPostsInput struct {
	ViewerID uint
	AuthorID uint
	Tag      string
	Limit    int
	Offset   int
}

type UpdatePostInput struct {
	AccountID  uint
	PostID     uint
	Content    *string
	Visibility *string
	Tags       *string
}

func NewPostService(
	postRepo repository.PostRepository,
	principal PrincipalLookup,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		principal: principal,
	}
}

// WithMedia enables image uploads and PDF image embedding.
func (s *PostService) WithMedia(m Media) *PostService {
	s.media = m
	return s
}

// WithFeed publishes post events to feed.
func (s *PostService) WithFeed(feed FeedPublisher) *PostService {
	s.feed = feed
	return s
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	post, poll, vErr := buildPost(in)
	if vErr != nil {
		err = vErr
		return nil, err
	}
	post.Poll = poll

	var storedKey string
	if len(in.Image) > 0 {
		post.ImageURL, storedKey, err = s.storeImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
	}

	if err = s.postRepo.Create(ctx, post); err != nil {
		if storedKey != "" {
			if delErr := s.media.Store.Delete(ctx, storedKey); delErr != nil {
				middleware.Logger.WarnContext(ctx, "failed to remove orphaned post image",
					"key", storedKey, "error", delErr)
			}
		}
		return nil, err
	}
	observability.PostsCreated.WithLabelValues(fmt.Sprint(poll != nil)).Inc()

	created, err := s.postRepo.GetByID(ctx, post.ID, in.AuthorID)
	if err != nil {
		return nil, err
	}
	render(created)
	if created.Visibility == models.VisibilityPublic {
		s.publish(ctx, notifications.FeedEvent{
			Type:      notifications.EventPostCreated,
			PostID:    created.ID,
			AccountID: created.AuthorID,
			Payload:   map[string]any{"has_poll": created.Poll != nil, "tags": created.TagList()},
		})
	}
	return created, nil
}

// buildPost validates the input and returns the unsaved post and poll.
func buildPost(in CreatePostInput) (*models.Post, *models.Poll, error) {
	fields := map[string]string{}

	content := strings.TrimSpace(in.Content)
	if msg := validateBody(content); msg != "" {
		fields["content"] = msg
	}
	visibility, err := models.ParseVisibility(in.Visibility)
	if err != nil {
		fields["visibility"] = "must be public or followers_only"
	}
	tags := normalizeTags(in.Tags)
	if len(tags) > MaxTagsLength {
		fields["tags"] = fmt.Sprintf("must be at most %d characters", MaxTagsLength)
	}

	var poll *models.Poll
	if in.Poll != nil {
		poll = &models.Poll{CreatedByID: in.AuthorID}
		question := strings.TrimSpace(in.Poll.Question)
		switch {
		case question == "":
			fields["poll.question"] = "is required"
		case utf8.RuneCountInString(question) > MaxPollQuestion:
			fields["poll.question"] = fmt.Sprintf("must be at most %d characters", MaxPollQuestion)
		}
		poll.Question = question

		switch n := len(in.Poll.Choices); {
		case n == 0:
			fields["poll.choices"] = "at least one choice is required"
		case n > MaxPollChoices:
			fields["poll.choices"] = fmt.Sprintf("at most %d choices are allowed", MaxPollChoices)
		}
		for i, raw := range in.Poll.Choices {
			label := strings.TrimSpace(raw)
			if label == "" || utf8.RuneCountInString(label) > MaxPollChoiceRunes {
				fields["poll.choices"] = fmt.Sprintf("choice labels must be 1 to %d characters", MaxPollChoiceRunes)
				break
			}
			poll.Choices = append(poll.Choices, models.PollChoice{Text: label, Position: i})
		}
	}

	if len(fields) > 0 {
		return nil, nil, models.NewFieldValidationError(fields)
	}
	return &models.Post{
		AuthorID:   in.AuthorID,
		Content:    content,
		Visibility: visibility,
		Tags:       tags,
	}, poll, nil
}

func validateBody(content string) string {
	switch n := utf8.RuneCountInString(content); {
	case n == 0:
		return "is required"
	case n > MaxPostRunes:
		return fmt.Sprintf("must be at most %d characters", MaxPostRunes)
	}
	return ""
}

func normalizeTags(raw string) string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ", ")
}

// storeImage re-encodes data and writes it to the media store, returning the
// public URL and the object key.
func (s *PostService) storeImage(ctx context.Context, data []byte) (string, string, error) {
	if s.media.Store == nil {
		return "", "", models.NewValidationError("Image uploads are not enabled")
	}
	img, err := imaging.Process(data, s.media.Image)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrEmpty) {
			return "", "", models.NewFieldValidationError(map[string]string{
				"image": "must be a JPEG, PNG, GIF or WebP image",
			})
		}
		return "", "", models.NewInternalError(err)
	}
	key := "posts/" + uuid.NewString() + ".webp"
	url, err := s.media.Store.Put(ctx, key, img.ContentType, bytes.NewReader(img.Data))
	if err != nil {
		return "", "", models.NewInternalError(fmt.Errorf("store post image: %w", err))
	}
	return url, key, nil
}

// GetPost returns a post as seen by viewerID. Followers-only posts are only
// visible to their author and administrators.
func (s *PostService) GetPost(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	if post.Visibility != models.VisibilityPublic && post.AuthorID != viewerID {
		principal, err := s.principal.resolve(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		if !authz.CanAdminister(principal) {
			return nil, models.NewNotFoundError("Post", postID)
		}
	}
	render(post)
	return post, nil
}

// ListPosts returns the feed, newest first.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	return s.list(ctx, in, false)
}

// ListAllPosts returns posts of every visibility for moderation.
func (s *PostService) ListAllPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	return s.list(ctx, in, true)
}

func (s *PostService) list(ctx context.Context, in ListPostsInput, all bool) ([]*models.Post, error) {
	limit, offset := ClampPage(in.Limit, in.Offset)
	posts, err := s.postRepo.List(ctx, repository.PostFilter{
		ViewerID:        in.ViewerID,
		AllVisibilities: all,
		AuthorID:        in.AuthorID,
		Tag:             strings.TrimSpace(in.Tag),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		render(p)
	}
	return posts, nil
}

// ListSavedPosts returns the posts saved by accountID, newest first.
func (s *PostService) ListSavedPosts(ctx context.Context, accountID uint) ([]*models.Post, error) {
	posts, err := s.postRepo.ListSaved(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		render(p)
	}
	return posts, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.UpdatePost")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.GetPost(ctx, in.PostID, in.AccountID)
	if err != nil {
		return nil, err
	}
	if err = s.authorize(ctx, in.AccountID, post.AuthorID); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if msg := validateBody(content); msg != "" {
			fields["content"] = msg
		}
		post.Content = content
	}
	if in.Visibility != nil {
		v, vErr := models.ParseVisibility(*in.Visibility)
		if vErr != nil {
			fields["visibility"] = "must be public or followers_only"
		}
		post.Visibility = v
	}
	if in.Tags != nil {
		post.Tags = normalizeTags(*in.Tags)
		if len(post.Tags) > MaxTagsLength {
			fields["tags"] = fmt.Sprintf("must be at most %d characters", MaxTagsLength)
		}
	}
	if len(fields) > 0 {
		err = models.NewFieldValidationError(fields)
		return nil, err
	}

	if err = s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	render(post)
	return post, nil
}

// DeletePost removes a post owned by accountID, or any post for an
// administrator.
func (s *PostService) DeletePost(ctx context.Context, accountID, postID uint) error {
	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.GetPost(ctx, postID, accountID)
	if err != nil {
		return err
	}
	if err = s.authorize(ctx, accountID, post.AuthorID); err != nil {
		return err
	}
	return s.removePost(ctx, post)
}

// ModeratePost removes any post. Callers must already be administrators.
func (s *PostService) ModeratePost(ctx context.Context, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return err
	}
	return s.removePost(ctx, post)
}

func (s *PostService) removePost(ctx context.Context, post *models.Post) error {
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.removeImage(ctx, post.ImageURL)
	if post.Visibility == models.VisibilityPublic {
		s.publish(ctx, notifications.FeedEvent{
			Type:      notifications.EventPostDeleted,
			PostID:    post.ID,
			AccountID: post.AuthorID,
		})
	}
	return nil
}

func (s *PostService) removeImage(ctx context.Context, url string) {
	if s.media.Store == nil || url == "" {
		return
	}
	key := storage.KeyFromURL(s.media.BaseURL, url)
	if key == "" {
		return
	}
	if err := s.media.Store.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove post image", "key", key, "error", err)
	}
}

func (s *PostService) authorize(ctx context.Context, accountID, authorID uint) error {
	principal, err := s.principal.resolve(ctx, accountID)
	if err != nil {
		return err
	}
	if !authz.CanModifyPost(principal, authorID) {
		return models.NewForbiddenError()
	}
	return nil
}

// ToggleLike likes or unlikes a post for accountID.
func (s *PostService) ToggleLike(ctx context.Context, accountID, postID uint) (*models.ToggleResult, error) {
	post, err := s.GetPost(ctx, postID, accountID)
	if err != nil {
		return nil, err
	}
	result, err := s.postRepo.ToggleLike(ctx, accountID, postID)
	if err != nil {
		return nil, err
	}
	if result.Active && post.Visibility == models.VisibilityPublic {
		s.publish(ctx, notifications.FeedEvent{
			Type:      notifications.EventPostLiked,
			PostID:    postID,
			AccountID: accountID,
			Payload:   map[string]any{"likes_count": result.Count},
		})
	}
	return result, nil
}

// ToggleSave bookmarks or un-bookmarks a post for accountID.
func (s *PostService) ToggleSave(ctx context.Context, accountID, postID uint) (*models.ToggleResult, error) {
	if _, err := s.GetPost(ctx, postID, accountID); err != nil {
		return nil, err
	}
	return s.postRepo.ToggleSave(ctx, accountID, postID)
}

// ExportPDF writes the post as a PDF document to w.
func (s *PostService) ExportPDF(ctx context.Context, postID, viewerID uint, w io.Writer) error {
	ctx, span := observability.StartSpan(ctx, "PostService.ExportPDF")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.GetPost(ctx, postID, viewerID)
	if err != nil {
		return err
	}
	doc := pdf.Document{
		PostID:  post.ID,
		Created: post.CreatedAt,
		Tags:    post.Tags,
		Body:    post.Content,
	}
	if post.Author != nil {
		doc.Author = post.Author.Name
	}
	if img := s.loadImage(ctx, post.ImageURL); img != nil {
		doc.Image, doc.ImageType = img, "PNG"
	}
	if err = pdf.Render(w, doc); err != nil {
		err = models.NewInternalError(err)
		return err
	}
	return nil
}

// loadImage returns the stored post image as PNG, or nil when it cannot be
// read from the media store.
func (s *PostService) loadImage(ctx context.Context, url string) []byte {
	if s.media.Store == nil || url == "" {
		return nil
	}
	key := storage.KeyFromURL(s.media.BaseURL, url)
	if key == "" {
		return nil
	}
	rc, err := s.media.Store.Open(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			middleware.Logger.WarnContext(ctx, "failed to open post image", "key", key, "error", err)
		}
		return nil
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}
	out, err := imaging.ToPNG(raw)
	if err != nil {
		return nil
	}
	return out
}

func (s *PostService) publish(ctx context.Context, ev notifications.FeedEvent) {
	if s.feed == nil {
		return
	}
	if err := s.feed.PublishFeedEvent(ctx, ev); err != nil {
		logPublishFailure(ctx, ev.Type, err)
	}
}

func logPublishFailure(ctx context.Context, eventType string, err error) {
	middleware.Logger.WarnContext(ctx, "failed to publish feed event", "type", eventType, "error", err)
}

func render(p *models.Post) {
	if p != nil {
		p.ContentHTML = markup.Render(p.Content)
	}
}

// ClampPage applies the default and maximum page size.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
