package models

import "time"

// GovernmentScheme is reference data describing a public support programme.
type GovernmentScheme struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"size:255;not null" json:"name" yaml:"name"`
	Benefit           string    `gorm:"type:text" json:"benefit" yaml:"benefit"`
	Eligibility       string    `gorm:"type:text" json:"eligibility" yaml:"eligibility"`
	RequiredDocuments string    `gorm:"type:text" json:"required_documents" yaml:"required_documents"`
	ApplyURL          string    `gorm:"size:500" json:"apply_url" yaml:"apply_url"`
	CreatedAt         time.Time `json:"created_at" yaml:"-"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"-"`
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	TotalUsers   int64            `json:"totalUsers"`
	TotalBlogs   int64            `json:"totalBlogs"`
	TotalSchemes int64            `json:"totalSchemes"`
	UsersByRole  map[string]int64 `json:"usersByRole"`
}

// PersistentModels lists every table managed by AutoMigrate, parents first.
func PersistentModels() []interface{} {
	out := []interface{}{&Account{}}
	out = append(out, ProfileModels()...)
	return append(out,
		&Post{},
		&Comment{},
		&Like{},
		&SavedPost{},
		&Poll{},
		&PollChoice{},
		&PollVote{},
		&GovernmentScheme{},
	)
}
