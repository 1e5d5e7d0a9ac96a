// Package seed creates demo data for development and tests.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"farmlink/internal/models"
	"farmlink/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

var (
	states    = []string{"Maharashtra", "Punjab", "Karnataka", "Uttar Pradesh", "Tamil Nadu", "Gujarat", "Bihar", "Rajasthan"}
	crops     = []string{"wheat", "rice", "cotton", "sugarcane", "soybean", "maize", "groundnut", "onion", "tomato", "chickpea"}
	farming   = []string{"organic", "conventional", "mixed", "dairy", "horticulture"}
	languages = []string{"Hindi", "Marathi", "Punjabi", "Kannada", "Tamil", "Gujarati", "English"}
	expertise = []string{"soil health", "pest management", "irrigation", "post-harvest storage", "animal husbandry"}
	business  = []string{"seed supplier", "fertiliser dealer", "grain trader", "cold storage", "farm equipment"}
)

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	accounts repository.AccountRepository
	posts    repository.PostRepository
	polls    repository.PollRepository
	comments repository.CommentRepository

	faker    *gofakeit.Faker
	rnd      *rand.Rand
	password string
	maxDays  int
	phones   map[string]bool
}

// NewFactory creates a Factory. seed makes generated data reproducible; zero
// uses the current time.
func NewFactory(repos Repositories, seed int64, maxDays int) (*Factory, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		accounts: repos.Accounts,
		posts:    repos.Posts,
		polls:    repos.Polls,
		comments: repos.Comments,
		faker:    gofakeit.New(seed),
		//nolint:gosec // Weak random number generator is fine for seeding
		rnd:      rand.New(rand.NewSource(seed)),
		password: string(hash),
		maxDays:  maxDays,
		phones:   map[string]bool{},
	}, nil
}

func (f *Factory) pick(values []string) string {
	return values[f.rnd.Intn(len(values))]
}

func (f *Factory) phone() string {
	for {
		p := f.faker.Numerify("9#########")
		if !f.phones[p] {
			f.phones[p] = true
			return p
		}
	}
}

// BuildAccount returns an unsaved account with a populated profile for role.
func (f *Factory) BuildAccount(role models.Role) *models.Account {
	email := strings.ToLower(f.faker.Email())
	account := &models.Account{
		Phone:        f.phone(),
		Email:        &email,
		Name:         f.faker.Name(),
		Password:     f.password,
		Role:         role,
		IsActive:     true,
		ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
	account.Profile = f.buildProfile(role)
	return account
}

func (f *Factory) buildProfile(role models.Role) models.RoleProfile {
	state := f.pick(states)
	switch role {
	case models.RoleFarmer:
		return &models.FarmerProfile{
			Location:          f.faker.City(),
			Village:           f.faker.LastName() + "pur",
			State:             state,
			Region:            f.pick([]string{"north", "south", "east", "west", "central"}),
			TypeOfFarming:     f.pick(farming),
			FarmSize:          fmt.Sprintf("%d acres", f.rnd.Intn(40)+1),
			MainCrops:         f.pick(crops) + ", " + f.pick(crops),
			InterestedCrops:   f.pick(crops),
			PreferredLanguage: f.pick(languages),
		}
	case models.RoleExpertAdvisor:
		years := f.rnd.Intn(30) + 1
		return &models.ExpertAdvisorProfile{
			ExpertiseArea:       f.pick(expertise),
			ExperienceYears:     &years,
			AvailableForConsult: f.faker.Bool(),
			StateOfOperation:    state,
			LanguagesSpoken:     f.pick(languages) + ", English",
		}
	case models.RoleAdministrator:
		return &models.AdministratorProfile{
			Designation:            "Platform administrator",
			AccessLevel:            "full",
			EmployeeID:             f.faker.Numerify("ADM-####"),
			RegionOfResponsibility: state,
		}
	case models.RoleGovernmentOfficial:
		return &models.GovernmentOfficialProfile{
			DepartmentName: "Department of Agriculture, " + state,
			GovDesignation: f.pick([]string{"District Agriculture Officer", "Extension Officer", "Block Development Officer"}),
			OfficialEmail:  strings.ToLower(f.faker.Username()) + "@agri.gov.in",
			GovIDBadge:     f.faker.Numerify("GOV-######"),
			SchemesManaged: "PM-KISAN, Soil Health Card",
		}
	case models.RoleRetailer:
		return &models.RetailerProfile{
			BusinessName:         f.faker.Company(),
			TypeOfBusiness:       f.pick(business),
			LicenseNumber:        f.faker.Numerify("LIC-########"),
			BuyerDashboardAccess: f.faker.Bool(),
		}
	default:
		return nil
	}
}

// CreateAccount persists a generated account. Overrides run before saving.
func (f *Factory) CreateAccount(ctx context.Context, role models.Role, overrides ...func(*models.Account)) (*models.Account, error) {
	account := f.BuildAccount(role)
	for _, override := range overrides {
		override(account)
	}
	if err := f.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// BuildPost returns an unsaved post by author, created within the last
// maxDays. Roughly one post in four carries a poll.
func (f *Factory) BuildPost(author *models.Account) *models.Post {
	crop := f.pick(crops)
	post := &models.Post{
		AuthorID:   author.ID,
		Content:    fmt.Sprintf("**%s update:** %s", strings.ToUpper(crop[:1])+crop[1:], f.faker.Paragraph(1, 3, 12, "\n\n")),
		Visibility: models.VisibilityPublic,
		Tags:       crop + ", " + strings.ToLower(f.pick(states)),
	}
	if f.rnd.Intn(10) == 0 {
		post.Visibility = models.VisibilityFollowersOnly
	}
	if f.rnd.Intn(4) == 0 {
		first, second := f.pick(crops), f.pick(crops)
		for second == first {
			second = f.pick(crops)
		}
		post.Poll = &models.Poll{
			Question: "Which crop are you planting this season?",
			Choices: []models.PollChoice{
				{Text: first},
				{Text: second},
				{Text: "Something else"},
			},
		}
	}
	age := time.Duration(f.rnd.Intn(f.maxDays*24*60)) * time.Minute
	post.CreatedAt = time.Now().Add(-age)
	return post
}

// CreatePost persists a generated post.
func (f *Factory) CreatePost(ctx context.Context, author *models.Account) (*models.Post, error) {
	post := f.BuildPost(author)
	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Engage adds comments, likes, saves and poll votes from accounts on post.
func (f *Factory) Engage(ctx context.Context, post *models.Post, accounts []*models.Account) error {
	for _, a := range accounts {
		if a.ID == post.AuthorID {
			continue
		}
		roll := f.rnd.Intn(100)
		if roll < 40 {
			if _, err := f.posts.ToggleLike(ctx, a.ID, post.ID); err != nil {
				return err
			}
		}
		if roll < 10 {
			if _, err := f.posts.ToggleSave(ctx, a.ID, post.ID); err != nil {
				return err
			}
		}
		if roll%5 == 0 {
			comment := &models.Comment{PostID: post.ID, AuthorID: a.ID, Content: f.faker.Sentence(10)}
			if err := f.comments.Create(ctx, comment); err != nil {
				return err
			}
		}
		if post.Poll != nil && roll < 60 {
			choice := post.Poll.Choices[f.rnd.Intn(len(post.Poll.Choices))]
			vote := &models.PollVote{PollID: post.Poll.ID, AccountID: a.ID, ChoiceID: choice.ID}
			if err := f.polls.CastVote(ctx, vote); err != nil && !models.IsCode(err, models.CodeDuplicateVote) {
				return err
			}
		}
	}
	return nil
}
