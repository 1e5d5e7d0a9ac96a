package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"farmlink/internal/authz"
	"farmlink/internal/models"
	"farmlink/internal/notifications"
	"farmlink/internal/repository"
)

// MaxCommentRunes bounds the length of a comment body.
const MaxCommentRunes = 1000

type CommentService struct {
	commentRepo repository.CommentRepository
	posts       PostReader
	principal   PrincipalLookup
	feed        FeedPublisher
}

type CreateCommentInput struct {
	AccountID uint
	PostID    uint
	Content   string
}

type DeleteCommentInput struct {
	AccountID uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	posts PostReader,
	principal PrincipalLookup,
	feed FeedPublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		posts:       posts,
		principal:   principal,
		feed:        feed,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	switch n := utf8.RuneCountInString(content); {
	case n == 0:
		return nil, models.NewFieldValidationError(map[string]string{"content": "is required"})
	case n > MaxCommentRunes:
		return nil, models.NewFieldValidationError(map[string]string{
			"content": fmt.Sprintf("must be at most %d characters", MaxCommentRunes),
		})
	}

	post, err := s.posts.GetPost(ctx, in.PostID, in.AccountID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Content:  content,
		AuthorID: in.AccountID,
		PostID:   in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if s.feed != nil && post.Visibility == models.VisibilityPublic {
		ev := notifications.FeedEvent{
			Type:      notifications.EventCommentCreated,
			PostID:    in.PostID,
			AccountID: in.AccountID,
			Payload:   map[string]any{"comment_id": comment.ID},
		}
		if err := s.feed.PublishFeedEvent(ctx, ev); err != nil {
			logPublishFailure(ctx, ev.Type, err)
		}
	}
	return comment, nil
}

// ListComments returns the comments of a post, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID uint) ([]*models.Comment, error) {
	if _, err := s.posts.GetPost(ctx, postID, viewerID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}

// DeleteComment removes a comment written by the caller, or any comment for
// an administrator.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	principal, err := s.principal.resolve(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if !authz.CanModifyPost(principal, comment.AuthorID) {
		return nil, models.NewForbiddenError()
	}

	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}
	return comment, nil
}
