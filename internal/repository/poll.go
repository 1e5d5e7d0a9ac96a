package repository

import (
	"context"

	"farmlink/internal/models"

	"gorm.io/gorm"
)

// PollRepository handles polls, their choices and votes.
type PollRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Poll, error)
	CastVote(ctx context.Context, vote *models.PollVote) error
	// Results loads the poll with per-choice counts for the viewer.
	Results(ctx context.Context, pollID, viewerID uint) (*models.Poll, error)
	EnrichResults(ctx context.Context, polls []*models.Poll, viewerID uint) error
}

type pollRepository struct {
	db *gorm.DB
}

// NewPollRepository creates a new poll repository
func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) GetByID(ctx context.Context, id uint) (*models.Poll, error) {
	var poll models.Poll
	err := r.db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&poll, id).Error
	if err != nil {
		return nil, notFoundOr(err, "Poll", id)
	}
	return &poll, nil
}

// CastVote records a vote. The choice must belong to the poll; a second vote
// by the same account on the same poll fails with DuplicateVote, including
// when two requests race.
func (r *pollRepository) CastVote(ctx context.Context, vote *models.PollVote) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.PollChoice{}).
			Where("id = ? AND poll_id = ?", vote.ChoiceID, vote.PollID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return models.NewInvalidChoiceError()
		}
		return tx.Create(vote).Error
	})
	if err != nil {
		vote.ID = 0
		if isUniqueConstraintError(err) {
			return models.NewDuplicateVoteError()
		}
		return internal(err)
	}
	return nil
}

func (r *pollRepository) Results(ctx context.Context, pollID, viewerID uint) (*models.Poll, error) {
	poll, err := r.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := r.EnrichResults(ctx, []*models.Poll{poll}, viewerID); err != nil {
		return nil, err
	}
	return poll, nil
}

type choiceCount struct {
	ChoiceID uint
	Votes    int
}

type viewerChoice struct {
	PollID   uint
	ChoiceID uint
}

// EnrichResults fills VoteCount, TotalVotes and MyChoiceID in place using two
// grouped queries for all polls.
func (r *pollRepository) EnrichResults(ctx context.Context, polls []*models.Poll, viewerID uint) error {
	if len(polls) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(polls))
	for _, p := range polls {
		ids = append(ids, p.ID)
	}
	db := r.db.WithContext(ctx)

	var counts []choiceCount
	if err := db.Model(&models.PollVote{}).
		Select("choice_id, COUNT(*) AS votes").
		Where("poll_id IN ?", ids).
		Group("choice_id").
		Scan(&counts).Error; err != nil {
		return internal(err)
	}
	byChoice := make(map[uint]int, len(counts))
	for _, c := range counts {
		byChoice[c.ChoiceID] = c.Votes
	}

	mine := map[uint]uint{}
	if viewerID != 0 {
		var rows []viewerChoice
		if err := db.Model(&models.PollVote{}).
			Select("poll_id, choice_id").
			Where("poll_id IN ? AND account_id = ?", ids, viewerID).
			Scan(&rows).Error; err != nil {
			return internal(err)
		}
		for _, row := range rows {
			mine[row.PollID] = row.ChoiceID
		}
	}

	for _, p := range polls {
		p.TotalVotes = 0
		for i := range p.Choices {
			p.Choices[i].VoteCount = byChoice[p.Choices[i].ID]
			p.TotalVotes += p.Choices[i].VoteCount
		}
		p.MyChoiceID = nil
		if choiceID, ok := mine[p.ID]; ok {
			id := choiceID
			p.MyChoiceID = &id
		}
	}
	return nil
}
