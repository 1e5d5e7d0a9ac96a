package repository

import (
	"context"
	"strings"

	"farmlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a feed listing.
type PostFilter struct {
	ViewerID uint
	// AllVisibilities includes followers-only posts of every author.
	AllVisibilities bool
	AuthorID        uint
	Tag             string
	Limit           int
	Offset          int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]*models.Post, error)
	ListSaved(ctx context.Context, accountID uint) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, accountID, postID uint) (*models.ToggleResult, error)
	ToggleSave(ctx context.Context, accountID, postID uint) (*models.ToggleResult, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db    *gorm.DB
	polls PollRepository
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, polls: NewPollRepository(db)}
}

// Create persists the post and, when post.Poll is set, its poll and choices
// in a single transaction. On failure none of the rows remain.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	poll := post.Poll
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if poll == nil {
			return nil
		}
		poll.PostID = post.ID
		poll.CreatedByID = post.AuthorID
		if err := tx.Omit(clause.Associations).Create(poll).Error; err != nil {
			return err
		}
		for i := range poll.Choices {
			poll.Choices[i].PollID = poll.ID
			poll.Choices[i].Position = i
		}
		if len(poll.Choices) > 0 {
			if err := tx.Create(&poll.Choices).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		post.ID = 0
		if poll != nil {
			poll.ID = 0
		}
		return internal(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.withDetails(r.db.WithContext(ctx), viewerID).
		Where("posts.id = ?", id).
		Take(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	if err := r.enrichPolls(ctx, []*models.Post{&post}, viewerID); err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns the feed newest first. Without AllVisibilities only public
// posts and the viewer's own posts are included.
func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	q := r.withDetails(r.db.WithContext(ctx), filter.ViewerID)
	if !filter.AllVisibilities {
		q = q.Where("(posts.visibility = ? OR posts.author_id = ?)", models.VisibilityPublic, filter.ViewerID)
	}
	if filter.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", filter.AuthorID)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		q = q.Where("LOWER(posts.tags) LIKE ?", "%"+strings.ToLower(tag)+"%")
	}

	var posts []*models.Post
	if err := q.Order("posts.created_at DESC, posts.id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&posts).Error; err != nil {
		return nil, internal(err)
	}
	if err := r.enrichPolls(ctx, posts, filter.ViewerID); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListSaved returns every post the account saved, newest post first.
func (r *postRepository) ListSaved(ctx context.Context, accountID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(r.db.WithContext(ctx), accountID).
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id AND saved_posts.account_id = ?", accountID).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, internal(err)
	}
	if err := r.enrichPolls(ctx, posts, accountID); err != nil {
		return nil, err
	}
	return posts, nil
}

// Update writes the editable columns of post.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(&models.Post{ID: post.ID}).
		Select("Content", "ImageURL", "Visibility", "Tags").
		Updates(&models.Post{
			Content:    post.Content,
			ImageURL:   post.ImageURL,
			Visibility: post.Visibility,
			Tags:       post.Tags,
		})
	if res.Error != nil {
		return internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

// Delete removes the post with its comments, likes, saves and poll.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return deletePosts(tx, []uint{id})
	})
	if err != nil {
		return notFoundOr(err, "Post", id)
	}
	return nil
}

func (r *postRepository) ToggleLike(ctx context.Context, accountID, postID uint) (*models.ToggleResult, error) {
	return r.toggle(ctx, postID, func() interface{} {
		return &models.Like{AccountID: accountID, PostID: postID}
	}, &models.Like{}, accountID)
}

func (r *postRepository) ToggleSave(ctx context.Context, accountID, postID uint) (*models.ToggleResult, error) {
	return r.toggle(ctx, postID, func() interface{} {
		return &models.SavedPost{AccountID: accountID, PostID: postID}
	}, &models.SavedPost{}, accountID)
}

// toggle flips membership of (accountID, postID) in the table of model: the
// row is deleted if present, otherwise inserted. Concurrent toggles cannot
// create duplicates because the insert ignores conflicts on the unique index.
// Count is always the post's like count.
func (r *postRepository) toggle(ctx context.Context, postID uint, row func() interface{}, model interface{}, accountID uint) (*models.ToggleResult, error) {
	result := &models.ToggleResult{PostID: postID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		del := tx.Where("account_id = ? AND post_id = ?", accountID, postID).Delete(model)
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row()).Error; err != nil {
				return err
			}
			result.Active = true
		}

		var count int64
		if err := tx.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
			return err
		}
		result.Count = int(count)
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, "Post", postID)
	}
	return result, nil
}

// withDetails selects posts with author, like/comment counts and the
// viewer's liked/saved flags in a single query.
func (r *postRepository) withDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count"

	if viewerID != 0 {
		db = db.Select(selectQuery+
			", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.account_id = ?) AS liked"+
			", EXISTS(SELECT 1 FROM saved_posts WHERE saved_posts.post_id = posts.id AND saved_posts.account_id = ?) AS saved",
			viewerID, viewerID)
	} else {
		db = db.Select(selectQuery + ", false AS liked, false AS saved")
	}
	return db.Model(&models.Post{}).
		Preload("Author").
		Preload("Poll").
		Preload("Poll.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		})
}

func (r *postRepository) enrichPolls(ctx context.Context, posts []*models.Post, viewerID uint) error {
	var polls []*models.Poll
	for _, p := range posts {
		if p.Poll != nil {
			polls = append(polls, p.Poll)
		}
	}
	return r.polls.EnrichResults(ctx, polls, viewerID)
}

// deletePosts removes posts and every row that hangs off them.
func deletePosts(tx *gorm.DB, postIDs []uint) error {
	if len(postIDs) == 0 {
		return nil
	}

	var pollIDs []uint
	if err := tx.Model(&models.Poll{}).Where("post_id IN ?", postIDs).Pluck("id", &pollIDs).Error; err != nil {
		return err
	}
	if len(pollIDs) > 0 {
		if err := tx.Where("poll_id IN ?", pollIDs).Delete(&models.PollVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id IN ?", pollIDs).Delete(&models.PollChoice{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", pollIDs).Delete(&models.Poll{}).Error; err != nil {
			return err
		}
	}
	for _, model := range []interface{}{&models.Comment{}, &models.Like{}, &models.SavedPost{}} {
		if err := tx.Where("post_id IN ?", postIDs).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error
}
