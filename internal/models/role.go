package models

// Role is the closed set of workflow roles. Capability lookups are static
// tables over this type rather than runtime string maps.
type Role string

const (
	RoleViewer       Role = "viewer"
	RoleEditor       Role = "editor"
	RoleReviewer     Role = "reviewer"
	RoleApprover     Role = "approver"
	RoleBrandManager Role = "brand_manager"
	RoleAdmin        Role = "admin"
	RoleOwner        Role = "owner"
)

var validRoles = map[Role]bool{
	RoleViewer:       true,
	RoleEditor:       true,
	RoleReviewer:     true,
	RoleApprover:     true,
	RoleBrandManager: true,
	RoleAdmin:        true,
	RoleOwner:        true,
}

// IsValid returns true if the role is a known workflow role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
