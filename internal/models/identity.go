package models

// Role is the family role attached to an authenticated session. Parents may
// see shared family data (the mortgage); children only their own accounts.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Identity is the already-verified identity supplied by the session
// collaborator. The pipeline trusts it and never re-authenticates.
type Identity struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name,omitempty"`
	Role     Role   `json:"role"`
	FamilyID string `json:"family_id"`
}

// IsParent reports whether the identity may access shared-family data.
func (i Identity) IsParent() bool {
	return i.Role == RoleParent
}
