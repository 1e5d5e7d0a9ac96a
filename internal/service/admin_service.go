package service

import (
	"context"
	"strings"

	"farmlink/internal/featureflags"
	"farmlink/internal/models"
	"farmlink/internal/observability"
	"farmlink/internal/repository"
)

// AdminService implements account management for administrators. Callers
// are expected to have passed the administrator check already.
type AdminService struct {
	accounts repository.AccountRepository
	flags    *featureflags.Manager
}

type ListUsersInput struct {
	// Role filters by role name; "unassigned" selects accounts without one.
	Role   string
	Query  string
	Limit  int
	Offset int
}

// UserPage is one page of projected profiles.
type UserPage struct {
	Users  []models.ProfileView `json:"users"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func NewAdminService(accounts repository.AccountRepository, flags *featureflags.Manager) *AdminService {
	return &AdminService{accounts: accounts, flags: flags}
}

func (s *AdminService) ListUsers(ctx context.Context, in ListUsersInput) (*UserPage, error) {
	filter := repository.AccountFilter{Query: in.Query}
	filter.Limit, filter.Offset = ClampPage(in.Limit, in.Offset)

	if raw := strings.TrimSpace(in.Role); raw != "" {
		role := models.RoleUnassigned
		if !strings.EqualFold(raw, models.UnassignedRoleKey) {
			parsed, err := models.ParseRole(raw)
			if err != nil {
				return nil, models.NewFieldValidationError(map[string]string{"role": "unknown role"})
			}
			role = parsed
		}
		filter.Role = &role
	}

	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &UserPage{
		Users:  models.ProjectProfiles(accounts),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uint) (*models.ProfileView, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := models.ProjectProfile(account)
	return &view, nil
}

// UpdateUser applies an administrator edit. Unlike a self-update it may set
// is_active.
func (s *AdminService) UpdateUser(ctx context.Context, id uint, fields map[string]string) (*models.ProfileView, error) {
	ctx, span := observability.StartSpan(ctx, "AdminService.UpdateUser")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = applyProfileFields(account, fields, true); err != nil {
		return nil, err
	}
	if err = s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	view := models.ProjectProfile(account)
	return &view, nil
}

// DeleteUser removes an account and everything it authored. Administrators
// cannot delete their own account.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return models.NewValidationError("You cannot delete your own account")
	}
	return s.accounts.Delete(ctx, id)
}

// FeatureFlags describes every flag as it applies to accountID.
func (s *AdminService) FeatureFlags(accountID uint) []featureflags.Status {
	if s.flags == nil {
		return featureflags.NewManager("").Describe(accountID)
	}
	return s.flags.Describe(accountID)
}
