package model

import "time"

// Role is a web access level. Roles are totally ordered: guest < member < admin.
type Role string

// Roles.
const (
	RoleGuest  Role = "guest"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Rank returns the position of r in the role hierarchy, or -1 for unknown roles.
func (r Role) Rank() int {
	switch r {
	case RoleGuest:
		return 0
	case RoleMember:
		return 1
	case RoleAdmin:
		return 2
	}
	return -1
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// Roles returns all roles from lowest to highest.
func Roles() []Role {
	return []Role{RoleGuest, RoleMember, RoleAdmin}
}

// PermissionRecord is the persisted role assignment and page permission table.
type PermissionRecord struct {
	SchemaVersion   int             `json:"schemaVersion"`
	PagePermissions map[string]Role `json:"pagePermissions"`
	UserRoles       map[string]Role `json:"userRoles"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// DefaultPagePermissions returns the page permission table used for a fresh install.
func DefaultPagePermissions() map[string]Role {
	return map[string]Role{
		"/":                  RoleGuest,
		"/dashboard":         RoleAdmin,
		"/admin/permissions": RoleAdmin,
		"/admin/party":       RoleAdmin,
		"/servers":           RoleMember,
		"/party":             RoleMember,
		"/party/create":      RoleMember,
		"/logs":              RoleAdmin,
		"/settings":          RoleMember,
	}
}

// NewPermissionRecord returns a record with the default page table and no user roles.
func NewPermissionRecord(now time.Time) *PermissionRecord {
	return &PermissionRecord{
		SchemaVersion:   SchemaVersion,
		PagePermissions: DefaultPagePermissions(),
		UserRoles:       make(map[string]Role),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
