package types

import "time"

// Role is a user's authorization tier. It determines which records the
// user may see and which actions they may take.
type Role string

const (
	// RoleSuperadmin has full visibility and manages accounts.
	RoleSuperadmin Role = "superadmin"

	// RoleAdmin supervises a set of users and creates tasks for them.
	RoleAdmin Role = "admin"

	// RoleUser works on tasks assigned to them.
	RoleUser Role = "user"
)

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name.
	Username string `json:"username" db:"username"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// FirstName and LastName hold the user's display name.
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	// Role is the user's authorization tier.
	Role Role `json:"role" db:"role"`

	// AssignedAdminID references the admin supervising this user. It is
	// only meaningful when Role is "user"; the referenced account must
	// have role "admin". Superadmins and admins have none.
	AssignedAdminID *int `json:"assigned_admin_id,omitempty" db:"assigned_admin"`

	// IsActive marks whether the account may log in.
	IsActive bool `json:"is_active" db:"is_active"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
