package domain

import "slices"

// Role is the sole authorization dimension of a user
type Role string

// Known roles
const (
	RoleAdmin    Role = "admin"       // Full access
	RoleEmployee Role = "funcionario" // Shop staff
	RoleClient   Role = "cliente"     // Customer with login access
)

// Roles lists every valid role
var Roles = []Role{RoleAdmin, RoleEmployee, RoleClient}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// IsAuthorized reports whether role may reach a route guarded by allow.
// An empty allow-list admits any authenticated role; it never means public.
func IsAuthorized(role Role, allow []Role) bool {
	if !role.Valid() {
		return false
	}
	if len(allow) == 0 {
		return true
	}
	return slices.Contains(allow, role)
}

// Identity is the caller decoded from a session token
type Identity struct {
	UserID uint   `json:"id"`
	Name   string `json:"nome"`
	Role   Role   `json:"role"`
}

// IsStaff reports whether the caller works at the shop
func (i Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleEmployee
}
