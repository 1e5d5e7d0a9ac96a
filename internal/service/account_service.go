// Package service implements the application use cases on top of the
// repositories.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"farmlink/internal/models"
	"farmlink/internal/observability"
	"farmlink/internal/repository"
	"farmlink/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer mints bearer tokens for an account.
type TokenIssuer interface {
	Issue(accountID uint) (string, error)
}

// TokenRevoker blocks a token id until it would have expired anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// readOnlyProfileKeys are part of the profile shape but never written
// through a profile update.
var readOnlyProfileKeys = map[string]bool{
	"id":          true,
	"is_staff":    true,
	"date_joined": true,
	"last_login":  true,
}

type AccountService struct {
	repo       repository.AccountRepository
	tokens     TokenIssuer
	revoker    TokenRevoker
	bcryptCost int
	now        func() time.Time
	compare    func(hash, password []byte) error

	dummyOnce sync.Once
	dummyHash []byte
}

type RegisterInput struct {
	Phone    string
	Name     string
	Password string
	Email    string
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	Token   string             `json:"token"`
	Profile models.ProfileView `json:"user"`
}

type UpdateProfileInput struct {
	AccountID uint
	// Fields maps profile keys to their textual values; see ProfileView for
	// the accepted keys.
	Fields map[string]string
}

func NewAccountService(repo repository.AccountRepository, tokens TokenIssuer, revoker TokenRevoker) *AccountService {
	return &AccountService{
		repo:       repo,
		tokens:     tokens,
		revoker:    revoker,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		compare:    bcrypt.CompareHashAndPassword,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *AccountService) WithBcryptCost(cost int) *AccountService {
	s.bcryptCost = cost
	return s
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	ctx, span := observability.StartSpan(ctx, "AccountService.Register")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	phone := validation.NormalizePhone(in.Phone)
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	fields := map[string]string{}
	if vErr := validation.ValidatePhone(phone); vErr != nil {
		fields["phone"] = vErr.Error()
	}
	if vErr := validation.ValidateName(name); vErr != nil {
		fields["name"] = vErr.Error()
	}
	if vErr := validation.ValidatePassword(in.Password); vErr != nil {
		fields["password"] = vErr.Error()
	}
	if email != "" {
		if vErr := validation.ValidateEmail(email); vErr != nil {
			fields["email"] = vErr.Error()
		}
	}
	if len(fields) > 0 {
		observability.Registrations.WithLabelValues("invalid").Inc()
		err = models.NewFieldValidationError(fields)
		return nil, err
	}

	hash, hErr := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if hErr != nil {
		err = models.NewInternalError(hErr)
		return nil, err
	}

	account := &models.Account{
		Phone:    phone,
		Name:     name,
		Password: string(hash),
		IsActive: true,
	}
	if email != "" {
		account.Email = &email
	}
	if err = s.repo.Create(ctx, account); err != nil {
		if models.IsCode(err, models.CodeDuplicatePhone) {
			observability.Registrations.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}
	observability.Registrations.WithLabelValues("created").Inc()

	token, tErr := s.tokens.Issue(account.ID)
	if tErr != nil {
		err = models.NewInternalError(tErr)
		return nil, err
	}
	return &AuthResult{Token: token, Profile: models.ProjectProfile(account)}, nil
}

// unknownAccountHash is compared against when the phone is not registered,
// so a miss costs the same bcrypt work as a wrong password.
func (s *AccountService) unknownAccountHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("farmlink-unknown-account"), s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

// Authenticate verifies phone and password. Every failure, including an
// inactive account, is reported as InvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, phone, password string) (*AuthResult, error) {
	ctx, span := observability.StartSpan(ctx, "AccountService.Authenticate")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	phone = validation.NormalizePhone(phone)
	if phone == "" || password == "" || len(password) > validation.MaxPasswordBytes {
		err = models.NewInvalidCredentialsError()
		return nil, err
	}

	account, lookupErr := s.repo.GetByPhone(ctx, phone)
	if lookupErr != nil {
		if !models.IsCode(lookupErr, models.CodeNotFound) {
			err = lookupErr
			return nil, err
		}
		_ = s.compare(s.unknownAccountHash(), []byte(password))
		err = models.NewInvalidCredentialsError()
		return nil, err
	}
	if s.compare([]byte(account.Password), []byte(password)) != nil || !account.IsActive {
		err = models.NewInvalidCredentialsError()
		return nil, err
	}

	now := s.now().UTC()
	if err = s.repo.TouchLastLogin(ctx, account.ID, now); err != nil {
		return nil, err
	}
	account.LastLogin = &now

	token, tErr := s.tokens.Issue(account.ID)
	if tErr != nil {
		err = models.NewInternalError(tErr)
		return nil, err
	}
	return &AuthResult{Token: token, Profile: models.ProjectProfile(account)}, nil
}

// Logout revokes the token identified by jti until expiresAt.
func (s *AccountService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return models.NewUnauthorizedError("Token has no id")
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if s.revoker == nil {
		return models.NewInternalError(errors.New("token revocation is not configured"))
	}
	if err := s.revoker.Revoke(ctx, jti, ttl); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *AccountService) GetProfile(ctx context.Context, accountID uint) (*models.ProfileView, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	view := models.ProjectProfile(account)
	return &view, nil
}

// UpdateProfile merges the supplied fields into the caller's own account.
func (s *AccountService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.ProfileView, error) {
	ctx, span := observability.StartSpan(ctx, "AccountService.UpdateProfile")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	account, err := s.repo.GetByID(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if err = applyProfileFields(account, in.Fields, false); err != nil {
		return nil, err
	}
	if err = s.repo.Save(ctx, account); err != nil {
		return nil, err
	}
	view := models.ProjectProfile(account)
	return &view, nil
}

// applyProfileFields merges fields into account. A non-empty role replaces
// the role and starts a fresh profile variant; empty values are ignored;
// non-empty values that are unknown or belong to another role are rejected.
// is_active is writable only in admin mode.
func applyProfileFields(account *models.Account, fields map[string]string, adminMode bool) error {
	invalid := map[string]string{}

	if raw := strings.TrimSpace(fields["role"]); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			invalid["role"] = "must be one of farmer, administrator, government_official, expert_advisor, retailer"
		} else if role != account.Role {
			account.Role = role
			account.Profile = models.NewProfile(role)
		}
	}
	if account.Profile == nil {
		account.Profile = models.NewProfile(account.Role)
	}

	accepted := map[string]bool{}
	if account.Profile != nil {
		for _, f := range account.Profile.Fields() {
			accepted[f] = true
		}
	}
	foreign := map[string]bool{}
	for _, f := range models.ProfileAttributeNames() {
		foreign[f] = !accepted[f]
	}

	for key, value := range fields {
		value = strings.TrimSpace(value)
		switch {
		case key == "role" || readOnlyProfileKeys[key]:
			continue
		case value == "":
			continue
		}

		switch key {
		case "phone":
			if validation.NormalizePhone(value) != account.Phone {
				invalid["phone"] = "cannot be changed"
			}
		case "name":
			if err := validation.ValidateName(value); err != nil {
				invalid["name"] = err.Error()
				continue
			}
			account.Name = value
		case "email":
			email := strings.ToLower(value)
			if err := validation.ValidateEmail(email); err != nil {
				invalid["email"] = err.Error()
				continue
			}
			account.Email = &email
		case "profile_image":
			account.ProfileImage = value
		case "is_active":
			if !adminMode {
				continue
			}
			active, ok := parseBool(value)
			if !ok {
				invalid["is_active"] = "must be true or false"
				continue
			}
			account.IsActive = active
		default:
			switch {
			case accepted[key]:
				if err := account.Profile.Set(key, value); err != nil {
					invalid[key] = err.Error()
				}
			case foreign[key]:
				invalid[key] = "not an attribute of role " + roleLabel(account.Role)
			default:
				invalid[key] = "unknown field"
			}
		}
	}

	if len(invalid) > 0 {
		return models.NewFieldValidationError(invalid)
	}
	return nil
}

func roleLabel(r models.Role) string {
	if r == models.RoleUnassigned {
		return "(unassigned)"
	}
	return string(r)
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}
