package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"farmlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type tokenStub struct{ err error }

func (s tokenStub) Issue(accountID uint) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("token-%d", accountID), nil
}

type revokerStub struct {
	revoked map[string]time.Duration
	err     error
}

func (s *revokerStub) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	if s.revoked == nil {
		s.revoked = map[string]time.Duration{}
	}
	s.revoked[jti] = ttl
	return nil
}

func newTestAccountService(repo *accountRepoStub, revoker TokenRevoker) *AccountService {
	return NewAccountService(repo, tokenStub{}, revoker).WithBcryptCost(bcrypt.MinCost)
}

func TestAccountService_Register(t *testing.T) {
	repo := newAccountRepoStub()
	svc := newTestAccountService(repo, nil)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Phone: " 9990001111 ", Name: " Ravi ", Password: "secret-pass", Email: "Ravi@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "token-1", res.Token)
	assert.Equal(t, "9990001111", res.Profile.Phone)
	assert.Equal(t, "Ravi", res.Profile.Name)
	assert.Equal(t, "", res.Profile.Role)

	stored, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "ravi@example.com", stored.EmailValue())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret-pass")))

	_, err = svc.Register(ctx, RegisterInput{Phone: "9990001111", Name: "Other", Password: "pw"})
	assertCode(t, err, models.CodeDuplicatePhone)
	assert.Len(t, repo.accounts, 1)
}

func TestAccountService_Register_Validation(t *testing.T) {
	svc := newTestAccountService(newAccountRepoStub(), nil)

	_, err := svc.Register(context.Background(), RegisterInput{Phone: "12ab", Name: "", Password: "", Email: "nope"})
	assertValidationError(t, err)
	fields := fieldErrors(t, err)
	for _, f := range []string{"phone", "name", "password", "email"} {
		assert.Contains(t, fields, f)
	}
}

func TestAccountService_Authenticate(t *testing.T) {
	repo := newAccountRepoStub()
	svc := newTestAccountService(repo, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Phone: "9990002222", Name: "Meera", Password: "secret-pass"})
	require.NoError(t, err)

	res, err := svc.Authenticate(ctx, "9990002222", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "token-1", res.Token)
	assert.NotEmpty(t, res.Profile.LastLogin)

	failures := []struct{ name, phone, password string }{
		{"wrong password", "9990002222", "nope"},
		{"unknown phone", "9990009999", "secret-pass"},
		{"empty password", "9990002222", ""},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.phone, tt.password)
			assertCode(t, err, models.CodeInvalidCredentials)
			assert.Equal(t, "Invalid credentials", err.Error())
		})
	}

	repo.accounts[1].IsActive = false
	_, err = svc.Authenticate(ctx, "9990002222", "secret-pass")
	assertCode(t, err, models.CodeInvalidCredentials)
}

func TestAccountService_Authenticate_UnknownPhoneStillHashes(t *testing.T) {
	repo := newAccountRepoStub()
	svc := newTestAccountService(repo, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Phone: "9990002323", Name: "Asha", Password: "secret-pass"})
	require.NoError(t, err)

	var hashes [][]byte
	svc.compare = func(hash, password []byte) error {
		hashes = append(hashes, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err = svc.Authenticate(ctx, "9990009191", "secret-pass")
	assertCode(t, err, models.CodeInvalidCredentials)
	require.Len(t, hashes, 1, "an unknown phone is compared against a stand-in hash")
	cost, err := bcrypt.Cost(hashes[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	_, err = svc.Authenticate(ctx, "9990002323", "wrong-pass")
	assertCode(t, err, models.CodeInvalidCredentials)
	require.Len(t, hashes, 2)
	stored, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, stored.Password, string(hashes[1]))

	_, err = svc.Authenticate(ctx, "9990009292", "secret-pass")
	assertCode(t, err, models.CodeInvalidCredentials)
	require.Len(t, hashes, 3)
	assert.Equal(t, hashes[0], hashes[2], "the stand-in hash is computed once")
}

func TestAccountService_Logout(t *testing.T) {
	revoker := &revokerStub{}
	svc := newTestAccountService(newAccountRepoStub(), revoker)
	ctx := context.Background()

	require.NoError(t, svc.Logout(ctx, "jti-1", time.Now().Add(time.Hour)))
	assert.Greater(t, revoker.revoked["jti-1"], 59*time.Minute)

	require.NoError(t, svc.Logout(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.NotContains(t, revoker.revoked, "jti-2")

	assertCode(t, svc.Logout(ctx, "", time.Now().Add(time.Hour)), models.CodeUnauthorized)

	revoker.err = errors.New("redis down")
	assertCode(t, svc.Logout(ctx, "jti-3", time.Now().Add(time.Hour)), models.CodeInternal)
}

func TestAccountService_UpdateProfile(t *testing.T) {
	repo := newAccountRepoStub(&models.Account{ID: 1, Phone: "9990003333", Name: "Old", IsActive: true})
	svc := newTestAccountService(repo, nil)
	ctx := context.Background()

	view, err := svc.UpdateProfile(ctx, UpdateProfileInput{AccountID: 1, Fields: map[string]string{
		"role":                   "retailer",
		"name":                   "Lakshmi Stores",
		"buyer_dashboard_access": "true",
		"phone":                  "9990003333",
		"date_joined":            "ignored",
		"experience_years":       "",
		"is_active":              "false",
	}})
	require.NoError(t, err)
	assert.Equal(t, "retailer", view.Role)
	assert.Equal(t, "Lakshmi Stores", view.Name)
	assert.Equal(t, "", view.ExperienceYears)
	assert.Equal(t, "", view.Location)

	stored, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stored.IsActive, "is_active is ignored in self-updates")
	require.NotNil(t, stored.Profile)
	assert.Equal(t, models.RoleRetailer, stored.Profile.ProfileRole())

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{AccountID: 1, Fields: map[string]string{
		"location": "Nashik",
		"phone":    "9990004444",
		"nickname": "x",
	}})
	assertValidationError(t, err)
	fields := fieldErrors(t, err)
	assert.Equal(t, "not an attribute of role retailer", fields["location"])
	assert.Equal(t, "cannot be changed", fields["phone"])
	assert.Equal(t, "unknown field", fields["nickname"])

	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{AccountID: 1, Fields: map[string]string{"role": "wizard"}})
	assertValidationError(t, err)
	assert.Contains(t, fieldErrors(t, err), "role")
}

func TestAccountService_UpdateProfile_AdministratorIsStaff(t *testing.T) {
	repo := newAccountRepoStub(&models.Account{ID: 1, Phone: "9990005555", Name: "A", IsActive: true})
	svc := newTestAccountService(repo, nil)

	view, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{AccountID: 1, Fields: map[string]string{"role": "administrator"}})
	require.NoError(t, err)
	assert.True(t, view.IsStaff)

	view, err = svc.UpdateProfile(context.Background(), UpdateProfileInput{AccountID: 1, Fields: map[string]string{"role": "farmer"}})
	require.NoError(t, err)
	assert.False(t, view.IsStaff)
}
