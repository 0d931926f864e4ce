package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the actor role resolved by the external auth service.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleOffice     Role = "office"
	RoleDispatch   Role = "dispatch"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// NormalizeRole maps any casing of a role name onto the enum.
func NormalizeRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCustomer, RoleOffice, RoleDispatch, RoleTechnician, RoleAdmin:
		return r, true
	}
	return "", false
}

// Actor identifies who performs an operation. It is always passed explicitly.
type Actor struct {
	ID   string `json:"id" validate:"required"`
	Role Role   `json:"role" validate:"required"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Actor resolves the claims into an Actor, normalising the role.
func (c *JWTClaims) Actor() (Actor, bool) {
	if c == nil || c.UserID == "" {
		return Actor{}, false
	}
	role, ok := NormalizeRole(c.Role)
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: c.UserID, Role: role}, true
}
