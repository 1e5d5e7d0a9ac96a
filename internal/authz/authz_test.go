package authz

import (
	"testing"

	"farmlink/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanAdminister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Principal
		want bool
	}{
		{"anonymous", Anonymous, false},
		{"unauthenticated administrator role", Principal{Role: models.RoleAdministrator}, false},
		{"unassigned role", Principal{AccountID: 1, Authenticated: true}, false},
		{"farmer", Principal{AccountID: 1, Role: models.RoleFarmer, Authenticated: true}, false},
		{"expert advisor", Principal{AccountID: 1, Role: models.RoleExpertAdvisor, Authenticated: true}, false},
		{"government official", Principal{AccountID: 1, Role: models.RoleGovernmentOfficial, Authenticated: true}, false},
		{"retailer", Principal{AccountID: 1, Role: models.RoleRetailer, Authenticated: true}, false},
		{"administrator", Principal{AccountID: 1, Role: models.RoleAdministrator, Authenticated: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAdminister(tt.p))
		})
	}
}

func TestCanModifyPost(t *testing.T) {
	t.Parallel()

	author := Principal{AccountID: 3, Role: models.RoleFarmer, Authenticated: true}
	other := Principal{AccountID: 4, Role: models.RoleFarmer, Authenticated: true}
	admin := Principal{AccountID: 9, Role: models.RoleAdministrator, Authenticated: true}

	assert.True(t, CanModifyPost(author, 3))
	assert.False(t, CanModifyPost(other, 3))
	assert.True(t, CanModifyPost(admin, 3))
	assert.False(t, CanModifyPost(Principal{AccountID: 3}, 3))
}

func TestForAccount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Anonymous, ForAccount(nil))
	p := ForAccount(&models.Account{ID: 5, Role: models.RoleRetailer})
	assert.True(t, p.Authenticated)
	assert.Equal(t, uint(5), p.AccountID)
	assert.Equal(t, models.RoleRetailer, p.Role)
}
