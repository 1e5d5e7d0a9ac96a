package service

import (
	"context"

	"farmlink/internal/models"
	"farmlink/internal/notifications"
	"farmlink/internal/observability"
	"farmlink/internal/repository"
)

// PostReader resolves a post as seen by a viewer, hiding posts the viewer may
// not see. PostService implements it.
type PostReader interface {
	GetPost(ctx context.Context, postID, viewerID uint) (*models.Post, error)
}

type PollService struct {
	pollRepo repository.PollRepository
	posts    PostReader
	feed     FeedPublisher
}

type VoteInput struct {
	AccountID uint
	PollID    uint
	ChoiceID  uint
}

func NewPollService(pollRepo repository.PollRepository, posts PostReader, feed FeedPublisher) *PollService {
	return &PollService{pollRepo: pollRepo, posts: posts, feed: feed}
}

// Vote records the account's single vote on a poll and returns the updated
// results.
func (s *PollService) Vote(ctx context.Context, in VoteInput) (*models.Poll, error) {
	ctx, span := observability.StartSpan(ctx, "PollService.Vote")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if in.ChoiceID == 0 {
		err = models.NewFieldValidationError(map[string]string{"choice_id": "is required"})
		return nil, err
	}

	poll, err := s.pollRepo.GetByID(ctx, in.PollID)
	if err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, poll.PostID, in.AccountID)
	if err != nil {
		return nil, err
	}

	err = s.pollRepo.CastVote(ctx, &models.PollVote{
		PollID:    in.PollID,
		AccountID: in.AccountID,
		ChoiceID:  in.ChoiceID,
	})
	observability.VotesCast.WithLabelValues(voteOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	results, err := s.pollRepo.Results(ctx, in.PollID, in.AccountID)
	if err != nil {
		return nil, err
	}
	if s.feed != nil && post != nil && post.Visibility == models.VisibilityPublic {
		ev := notifications.FeedEvent{
			Type:      notifications.EventPollVoted,
			PostID:    results.PostID,
			AccountID: in.AccountID,
			Payload:   map[string]any{"poll_id": results.ID, "total_votes": results.TotalVotes},
		}
		if pErr := s.feed.PublishFeedEvent(ctx, ev); pErr != nil {
			logPublishFailure(ctx, ev.Type, pErr)
		}
	}
	return results, nil
}

// Results returns the choices in order with their counts, the total and the
// viewer's own choice.
func (s *PollService) Results(ctx context.Context, pollID, viewerID uint) (*models.Poll, error) {
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, poll.PostID, viewerID); err != nil {
		return nil, err
	}
	return s.pollRepo.Results(ctx, pollID, viewerID)
}

func (s *PollService) visiblePost(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	if s.posts == nil {
		return nil, nil
	}
	return s.posts.GetPost(ctx, postID, viewerID)
}

func voteOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case models.IsCode(err, models.CodeDuplicateVote):
		return "duplicate"
	case models.IsCode(err, models.CodeInvalidChoice):
		return "invalid_choice"
	default:
		return "error"
	}
}
