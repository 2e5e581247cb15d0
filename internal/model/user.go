package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// User represents an account allowed to sign in.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	HasPhoto     bool      `json:"has_photo"`
	CreatedAt    time.Time `json:"created_at"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Permissions gate the sections of the application.
const (
	PermDashboard  = "dashboard"
	PermInventory  = "inventory"
	PermCalculator = "calculator"
	PermRepairs    = "otg_repairs"
	PermCustom     = "custom"
	PermAdmin      = "admin"
)

// AllPermissions lists every permission in menu order.
var AllPermissions = []string{PermDashboard, PermInventory, PermCalculator, PermRepairs, PermCustom, PermAdmin}

// DefaultPermissions are granted to new non-admin users.
var DefaultPermissions = []string{PermDashboard, PermInventory, PermCalculator, PermRepairs}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// HasPermission reports whether a user with the given role and permissions
// may access perm. Admins may access everything; unknown roles nothing.
func HasPermission(role string, perms []string, perm string) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleUser:
		return slices.Contains(perms, perm)
	}
	return false
}

// NormalizePermissions drops unknown and duplicate permissions and sorts the
// rest in menu order.
func NormalizePermissions(perms []string) []string {
	out := make([]string, 0, len(perms))
	for _, p := range AllPermissions {
		if slices.Contains(perms, p) {
			out = append(out, p)
		}
	}
	return out
}

// JoinPermissions encodes permissions for storage.
func JoinPermissions(perms []string) string {
	return strings.Join(NormalizePermissions(perms), ",")
}

// SplitPermissions decodes stored permissions.
func SplitPermissions(s string) []string {
	if s == "" {
		return []string{}
	}
	return NormalizePermissions(strings.Split(s, ","))
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
