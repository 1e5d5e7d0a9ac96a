package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"farmer", RoleFarmer, false},
		{"  Administrator ", RoleAdministrator, false},
		{"", RoleUnassigned, false},
		{"government_official", RoleGovernmentOfficial, false},
		{"superuser", RoleUnassigned, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccount_IsStaffDerivedFromRole(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Account{Role: RoleAdministrator}).IsStaff())
	assert.False(t, (&Account{Role: RoleFarmer}).IsStaff())
	assert.False(t, (&Account{}).IsStaff())
	var nilAccount *Account
	assert.False(t, nilAccount.IsStaff())
}

func TestProjectProfile_RetailerHasEmptyFarmerAndExpertFields(t *testing.T) {
	t.Parallel()

	a := &Account{
		ID:    7,
		Phone: "9990001111",
		Name:  "Asha Traders",
		Role:  RoleRetailer,
		Profile: &RetailerProfile{
			BusinessName:   "Asha Traders",
			TypeOfBusiness: "wholesale",
		},
	}

	raw, err := json.Marshal(ProjectProfile(a))
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))

	farmer := (&FarmerProfile{}).Fields()
	expert := (&ExpertAdvisorProfile{}).Fields()
	for _, key := range append(farmer, expert...) {
		v, ok := body[key]
		require.True(t, ok, "missing key %s", key)
		assert.Equal(t, "", v, "key %s", key)
	}
	assert.Equal(t, "Asha Traders", body["business_name"])
	assert.Equal(t, "false", body["buyer_dashboard_access"])
	assert.Equal(t, "", body["email"])
	assert.Equal(t, "", body["last_login"])
	assert.Equal(t, false, body["is_staff"])
}

func TestProjectProfile_EveryAttributeKeyPresentForEveryRole(t *testing.T) {
	t.Parallel()

	for _, role := range append([]Role{RoleUnassigned}, Roles...) {
		a := &Account{Role: role, Profile: NewProfile(role)}
		raw, err := json.Marshal(ProjectProfile(a))
		require.NoError(t, err)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		for _, key := range ProfileAttributeNames() {
			_, ok := body[key]
			assert.True(t, ok, "role %q missing key %s", role, key)
		}
	}
}

func TestProjectProfile_IgnoresMismatchedVariant(t *testing.T) {
	t.Parallel()

	login := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	a := &Account{
		Role:      RoleFarmer,
		LastLogin: &login,
		Profile:   &RetailerProfile{BusinessName: "stale"},
	}
	v := ProjectProfile(a)
	assert.Empty(t, v.BusinessName)
	assert.Equal(t, "2026-03-01T08:00:00Z", v.LastLogin)
}

func TestProfileSet(t *testing.T) {
	t.Parallel()

	expert := &ExpertAdvisorProfile{}
	require.NoError(t, expert.Set("experience_years", "12"))
	require.NoError(t, expert.Set("available_for_consult", "true"))
	assert.Error(t, expert.Set("experience_years", "many"))
	assert.Error(t, expert.Set("business_name", "x"))

	v := ProfileView{}
	expert.project(&v)
	assert.Equal(t, "12", v.ExperienceYears)
	assert.Equal(t, "true", v.AvailableForConsult)

	gov := &GovernmentOfficialProfile{}
	assert.Error(t, gov.Set("official_email", "not-an-email"))
	assert.NoError(t, gov.Set("official_email", "officer@agri.gov.in"))
}

func TestAppError_HTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError("bad"), 400},
		{NewInvalidChoiceError(), 400},
		{NewInvalidCredentialsError(), 401},
		{NewForbiddenError(), 403},
		{NewNotFoundError("Post", 1), 404},
		{NewDuplicatePhoneError(), 409},
		{NewDuplicateVoteError(), 409},
		{NewUpstreamError("weather", 500, nil), 502},
		{NewInternalError(nil), 500},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestNewFieldValidationError(t *testing.T) {
	t.Parallel()

	err := NewFieldValidationError(map[string]string{"phone": "required", "name": "required"})
	assert.Equal(t, "Invalid fields: name, phone", err.Message)
	assert.Equal(t, "required", err.Fields["phone"])
	assert.True(t, IsCode(err, CodeValidation))
}
