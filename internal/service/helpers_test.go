package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"farmlink/internal/authz"
	"farmlink/internal/models"
	"farmlink/internal/notifications"
	"farmlink/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn     func(context.Context, *models.Post) error
	getByIDFn    func(context.Context, uint, uint) (*models.Post, error)
	listFn       func(context.Context, repository.PostFilter) ([]*models.Post, error)
	listSavedFn  func(context.Context, uint) ([]*models.Post, error)
	updateFn     func(context.Context, *models.Post) error
	deleteFn     func(context.Context, uint) error
	toggleLikeFn func(context.Context, uint, uint) (*models.ToggleResult, error)
	toggleSaveFn func(context.Context, uint, uint) (*models.ToggleResult, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) List(ctx context.Context, filter repository.PostFilter) ([]*models.Post, error) {
	return s.listFn(ctx, filter)
}
func (s *postRepoStub) ListSaved(ctx context.Context, accountID uint) ([]*models.Post, error) {
	return s.listSavedFn(ctx, accountID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, accountID, postID uint) (*models.ToggleResult, error) {
	return s.toggleLikeFn(ctx, accountID, postID)
}
func (s *postRepoStub) ToggleSave(ctx context.Context, accountID, postID uint) (*models.ToggleResult, error) {
	return s.toggleSaveFn(ctx, accountID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 1, Content: "hello", Visibility: models.VisibilityPublic}, nil
		},
		listFn:      func(_ context.Context, _ repository.PostFilter) ([]*models.Post, error) { return nil, nil },
		listSavedFn: func(_ context.Context, _ uint) ([]*models.Post, error) { return nil, nil },
		updateFn:    func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:    func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn: func(_ context.Context, _, postID uint) (*models.ToggleResult, error) {
			return &models.ToggleResult{PostID: postID, Active: true, Count: 1}, nil
		},
		toggleSaveFn: func(_ context.Context, _, postID uint) (*models.ToggleResult, error) {
			return &models.ToggleResult{PostID: postID, Active: true}, nil
		},
	}
}

// accountRepoStub is an in-memory repository.AccountRepository.
type accountRepoStub struct {
	mu       sync.Mutex
	accounts map[uint]*models.Account
	nextID   uint
	saveErr  error
}

func newAccountRepoStub(accounts ...*models.Account) *accountRepoStub {
	s := &accountRepoStub{accounts: map[uint]*models.Account{}, nextID: 1}
	for _, a := range accounts {
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
		s.accounts[a.ID] = a
	}
	return s
}

func (s *accountRepoStub) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Phone == account.Phone {
			return models.NewDuplicatePhoneError()
		}
	}
	account.ID = s.nextID
	s.nextID++
	s.accounts[account.ID] = account
	return nil
}

func (s *accountRepoStub) GetByID(_ context.Context, id uint) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, models.NewNotFoundError("Account", id)
	}
	cp := *a
	return &cp, nil
}

func (s *accountRepoStub) GetByPhone(_ context.Context, phone string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Phone == phone {
			cp := *a
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("Account", phone)
}

func (s *accountRepoStub) Save(_ context.Context, account *models.Account) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *accountRepoStub) TouchLastLogin(_ context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		a.LastLogin = &at
	}
	return nil
}

func (s *accountRepoStub) List(_ context.Context, _ repository.AccountFilter) ([]models.Account, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (s *accountRepoStub) ListByRole(_ context.Context, _ models.Role) ([]models.Account, error) {
	return nil, errors.New("not implemented")
}

func (s *accountRepoStub) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	return nil
}

// feedRecorder captures published feed events.
type feedRecorder struct {
	mu     sync.Mutex
	events []notifications.FeedEvent
	err    error
}

func (f *feedRecorder) PublishFeedEvent(_ context.Context, ev notifications.FeedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *feedRecorder) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

// principals returns a PrincipalLookup backed by a fixed role table.
func principals(roles map[uint]models.Role) PrincipalLookup {
	return func(_ context.Context, id uint) (authz.Principal, error) {
		role, ok := roles[id]
		if !ok {
			return authz.Anonymous, nil
		}
		return authz.Principal{AccountID: id, Role: role, Authenticated: true}, nil
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	return appErr.Fields
}
