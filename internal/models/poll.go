package models

import "time"

// Poll is a question attached to exactly one post.
type Poll struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	PostID      uint         `gorm:"not null;uniqueIndex" json:"post_id"`
	Question    string       `gorm:"size:255;not null" json:"question"`
	CreatedByID uint         `gorm:"not null;index" json:"created_by_id"`
	Choices     []PollChoice `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"choices"`
	CreatedAt   time.Time    `json:"created_at"`

	// TotalVotes and MyChoiceID are filled in by result enrichment.
	TotalVotes int   `gorm:"-" json:"total_votes"`
	MyChoiceID *uint `gorm:"-" json:"my_choice_id"`
}

// TableName pins the table name used by migrations.
func (Poll) TableName() string { return "polls" }

// PollChoice is one answer option of a poll.
type PollChoice struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PollID   uint   `gorm:"not null;index" json:"poll_id"`
	Text     string `gorm:"size:100;not null" json:"choice_text"`
	Position int    `gorm:"not null;default:0" json:"position"`

	VoteCount int `gorm:"-" json:"votes"`
}

// TableName pins the table name used by migrations.
func (PollChoice) TableName() string { return "poll_choices" }

// PollVote ties one account to one choice. The unique index on
// (poll_id, account_id) guarantees a single vote per account per poll.
type PollVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PollID    uint      `gorm:"not null;uniqueIndex:idx_poll_votes_poll_account" json:"poll_id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_poll_votes_poll_account;index" json:"account_id"`
	ChoiceID  uint      `gorm:"not null;index" json:"choice_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the table name used by migrations.
func (PollVote) TableName() string { return "poll_votes" }
