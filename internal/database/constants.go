package database

// User roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Column limits
const (
	// MaxSignNameLength matches the signs.name column (in characters)
	MaxSignNameLength = 200

	// MaxUsernameLength matches the users.username column
	MaxUsernameLength = 150
)

// ValidRole reports whether role is one of the known user roles.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleAdmin
}
