// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the account discriminant. The zero value means no role has been
// assigned yet and carries no privileges.
type Role string

// Supported account roles.
const (
	RoleUnassigned         Role = ""
	RoleFarmer             Role = "farmer"
	RoleAdministrator      Role = "administrator"
	RoleGovernmentOfficial Role = "government_official"
	RoleExpertAdvisor      Role = "expert_advisor"
	RoleRetailer           Role = "retailer"
)

// Roles lists every assignable role in display order.
var Roles = []Role{
	RoleFarmer,
	RoleAdministrator,
	RoleGovernmentOfficial,
	RoleExpertAdvisor,
	RoleRetailer,
}

// UnassignedRoleKey is the stats bucket used for accounts without a role.
const UnassignedRoleKey = "unassigned"

// ParseRole converts user input into a Role. Surrounding whitespace and case
// are ignored; an empty string yields RoleUnassigned.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == RoleUnassigned || r.Valid() {
		return r, nil
	}
	return RoleUnassigned, fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Account is a registered identity keyed by phone number.
type Account struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Phone        string     `gorm:"size:15;uniqueIndex;not null" json:"phone"`
	Email        *string    `gorm:"size:254" json:"email"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Password     string     `gorm:"not null" json:"-"`
	Role         Role       `gorm:"size:32;index;not null;default:''" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	ProfileImage string     `json:"profile_image"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"date_joined"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Profile holds the role-specific attributes. It is loaded by the
	// repository and always matches Role; nil when no role is assigned.
	Profile RoleProfile `gorm:"-" json:"-"`
}

// TableName pins the table name used by migrations.
func (Account) TableName() string { return "accounts" }

// IsStaff is derived from the role and never stored.
func (a *Account) IsStaff() bool {
	return a != nil && a.Role == RoleAdministrator
}

// EmailValue returns the email address or "" when none is set.
func (a *Account) EmailValue() string {
	if a.Email == nil {
		return ""
	}
	return *a.Email
}
