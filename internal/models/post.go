package models

import (
	"fmt"
	"strings"
	"time"
)

// Visibility controls who may see a post in the feed.
type Visibility string

// Post visibility values.
const (
	VisibilityPublic        Visibility = "public"
	VisibilityFollowersOnly Visibility = "followers_only"
)

// ParseVisibility converts input into a Visibility; "" defaults to public.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VisibilityPublic, nil
	case VisibilityPublic, VisibilityFollowersOnly:
		return v, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// Author is the public projection of an account shown next to content.
// It is read-only; the accounts table is owned by Account.
type Author struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"->;-:migration" json:"name"`
	Role         Role   `gorm:"->;-:migration" json:"role"`
	ProfileImage string `gorm:"->;-:migration" json:"profile_image"`
}

// TableName maps Author onto the accounts table.
func (Author) TableName() string { return "accounts" }

// Post is a blog entry on the community feed.
type Post struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	AuthorID uint    `gorm:"not null;index" json:"author_id"`
	Author   *Author `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Content  string  `gorm:"type:text;not null" json:"content"`
	// ContentHTML is the sanitized rendering of Content, filled by the service.
	ContentHTML string     `gorm:"-" json:"content_html,omitempty"`
	ImageURL    string     `json:"image"`
	Visibility  Visibility `gorm:"size:20;not null;default:'public'" json:"visibility"`
	Tags        string     `gorm:"size:255" json:"tags"`
	Poll        *Poll      `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"poll,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// Liked and Saved describe the requesting account (computed)
	Liked     bool      `gorm:"->;-:migration" json:"liked"`
	Saved     bool      `gorm:"->;-:migration" json:"saved"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagList splits the free-text tags into trimmed, non-empty entries.
func (p *Post) TagList() []string {
	var tags []string
	for _, t := range strings.Split(p.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Comment is a short reply attached to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    *Author   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Like records that an account liked a post.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_likes_account_post" json:"account_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_account_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedPost records that an account bookmarked a post.
type SavedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_saved_posts_account_post" json:"account_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_saved_posts_account_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ToggleResult is the membership state after a like or save toggle.
type ToggleResult struct {
	PostID uint `json:"post_id"`
	Active bool `json:"active"`
	Count  int  `json:"count"`
}
