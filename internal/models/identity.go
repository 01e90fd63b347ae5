package models

// Roles a caller may hold
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Identity represents the authenticated caller of an API request
type Identity struct {
	StudentID string
	Role      string
	Email     string
	Name      string
}

// IsStudent checks if progress is tracked and gated for this caller
func (i *Identity) IsStudent() bool {
	return i.Role == RoleStudent
}

// IsStaff checks if the caller may read other students' data
func (i *Identity) IsStaff() bool {
	return i.Role == RoleInstructor || i.Role == RoleAdmin
}
