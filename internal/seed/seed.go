package seed

import (
	"context"
	"fmt"

	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/repository"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	// AccountsPerRole is the number of accounts created for every role.
	AccountsPerRole int
	Posts           int
	// MaxDays bounds how far back post timestamps are spread.
	MaxDays int
	// Seed makes the generated data reproducible; zero is random.
	Seed  int64
	Clean bool
	// SkipSchemes leaves the government scheme catalogue untouched.
	SkipSchemes bool
}

// DefaultOptions is a small but realistic community.
var DefaultOptions = Options{AccountsPerRole: 4, Posts: 40, MaxDays: 60}

// Repositories groups the stores the seeder writes through.
type Repositories struct {
	Accounts repository.AccountRepository
	Posts    repository.PostRepository
	Polls    repository.PollRepository
	Comments repository.CommentRepository
	Schemes  repository.SchemeRepository
}

// NewRepositories builds GORM repositories on db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Accounts: repository.NewAccountRepository(db),
		Posts:    repository.NewPostRepository(db),
		Polls:    repository.NewPollRepository(db),
		Comments: repository.NewCommentRepository(db),
		Schemes:  repository.NewSchemeRepository(db),
	}
}

// Summary reports what a seeding run created.
type Summary struct {
	Accounts int
	Posts    int
	Schemes  int
}

// Seed populates db with demo accounts, posts, engagement and schemes.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log := middleware.Logger
	log.Info("starting database seed",
		"accounts_per_role", opts.AccountsPerRole,
		"posts", opts.Posts,
		"clean", opts.Clean,
	)

	if opts.Clean {
		if err := Clear(ctx, db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	repos := NewRepositories(db)
	f, err := NewFactory(repos, opts.Seed, opts.MaxDays)
	if err != nil {
		return nil, err
	}
	summary := &Summary{}

	var accounts []*models.Account
	for _, role := range models.Roles {
		for i := 0; i < opts.AccountsPerRole; i++ {
			a, err := f.CreateAccount(ctx, role)
			if err != nil {
				return summary, fmt.Errorf("create %s account: %w", role, err)
			}
			accounts = append(accounts, a)
		}
	}
	summary.Accounts = len(accounts)
	log.Info("accounts created", "count", summary.Accounts)

	if len(accounts) > 0 {
		for i := 0; i < opts.Posts; i++ {
			author := accounts[f.rnd.Intn(len(accounts))]
			post, err := f.CreatePost(ctx, author)
			if err != nil {
				return summary, fmt.Errorf("create post: %w", err)
			}
			if err := f.Engage(ctx, post, accounts); err != nil {
				return summary, fmt.Errorf("engage post %d: %w", post.ID, err)
			}
			summary.Posts++
		}
		log.Info("posts created", "count", summary.Posts)
	}

	if !opts.SkipSchemes {
		schemes, err := DefaultSchemes()
		if err != nil {
			return summary, err
		}
		if summary.Schemes, err = UpsertSchemes(ctx, repos.Schemes, schemes); err != nil {
			return summary, err
		}
		log.Info("schemes upserted", "count", summary.Schemes)
	}

	log.Info("database seed completed")
	return summary, nil
}

// Clear deletes every row of every persistent table, children first.
func Clear(ctx context.Context, db *gorm.DB) error {
	tables := models.PersistentModels()
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(tables) - 1; i >= 0; i-- {
		if err := tx.Delete(tables[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", tables[i], err)
		}
	}
	middleware.Logger.Info("existing data cleared", "tables", len(tables))
	return nil
}
