// Package authz holds the authorization rules applied to request principals.
package authz

import "farmlink/internal/models"

// Principal is the account attached to a request.
type Principal struct {
	AccountID     uint
	Role          models.Role
	Authenticated bool
}

// Anonymous is the principal of a request without valid credentials.
var Anonymous = Principal{}

// ForAccount builds an authenticated principal from a stored account.
func ForAccount(a *models.Account) Principal {
	if a == nil || a.ID == 0 {
		return Anonymous
	}
	return Principal{AccountID: a.ID, Role: a.Role, Authenticated: true}
}

// CanAdminister reports whether p may perform administrator-only operations.
// An unassigned role carries no privileges.
func CanAdminister(p Principal) bool {
	return p.Authenticated && p.Role == models.RoleAdministrator
}

// CanModifyPost reports whether p may edit or delete content owned by authorID.
func CanModifyPost(p Principal, authorID uint) bool {
	if !p.Authenticated {
		return false
	}
	return p.AccountID == authorID || CanAdminister(p)
}
