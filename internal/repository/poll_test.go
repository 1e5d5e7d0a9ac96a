package repository

import (
	"context"
	"sync"
	"testing"

	"farmlink/internal/models"
	"farmlink/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollRepository_DuplicateVote(t *testing.T) {
	db := testutil.NewDB(t)
	posts := NewPostRepository(db)
	polls := NewPollRepository(db)
	ctx := context.Background()
	voter := testutil.CreateAccount(t, db, "9000000001", models.RoleFarmer)

	post := newPollPost(voter.ID, "Best crop?", "Wheat", "Rice")
	require.NoError(t, posts.Create(ctx, post))
	wheat, rice := post.Poll.Choices[0].ID, post.Poll.Choices[1].ID

	require.NoError(t, polls.CastVote(ctx, &models.PollVote{PollID: post.Poll.ID, AccountID: voter.ID, ChoiceID: wheat}))

	err := polls.CastVote(ctx, &models.PollVote{PollID: post.Poll.ID, AccountID: voter.ID, ChoiceID: rice})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeDuplicateVote))

	results, err := polls.Results(ctx, post.Poll.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, results.TotalVotes)
	assert.Equal(t, 1, results.Choices[0].VoteCount)
	assert.Equal(t, 0, results.Choices[1].VoteCount)
	require.NotNil(t, results.MyChoiceID)
	assert.Equal(t, wheat, *results.MyChoiceID)
}

func TestPollRepository_ConcurrentVotes(t *testing.T) {
	db := testutil.NewDB(t)
	posts := NewPostRepository(db)
	polls := NewPollRepository(db)
	ctx := context.Background()
	voter := testutil.CreateAccount(t, db, "9000000001", models.RoleFarmer)

	post := newPollPost(voter.ID, "Best crop?", "Wheat", "Rice")
	require.NoError(t, posts.Create(ctx, post))

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = polls.CastVote(ctx, &models.PollVote{
				PollID:    post.Poll.ID,
				AccountID: voter.ID,
				ChoiceID:  post.Poll.Choices[i%2].ID,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, models.IsCode(err, models.CodeDuplicateVote), err.Error())
	}
	assert.Equal(t, 1, succeeded)

	var votes int64
	require.NoError(t, db.Model(&models.PollVote{}).Count(&votes).Error)
	assert.Equal(t, int64(1), votes)
}

func TestPollRepository_InvalidChoice(t *testing.T) {
	db := testutil.NewDB(t)
	posts := NewPostRepository(db)
	polls := NewPollRepository(db)
	ctx := context.Background()
	voter := testutil.CreateAccount(t, db, "9000000001", models.RoleFarmer)

	first := newPollPost(voter.ID, "Best crop?", "Wheat", "Rice")
	second := newPollPost(voter.ID, "Best month?", "June", "July")
	require.NoError(t, posts.Create(ctx, first))
	require.NoError(t, posts.Create(ctx, second))

	err := polls.CastVote(ctx, &models.PollVote{PollID: first.Poll.ID, AccountID: voter.ID, ChoiceID: second.Poll.Choices[0].ID})
	assert.True(t, models.IsCode(err, models.CodeInvalidChoice))

	_, err = polls.GetByID(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
