// Package authz holds the request identity and the ownership checks applied
// before every mutating operation.
package authz

import "github.com/iliyamo/moviestore/internal/model"

// Identity is the authenticated caller, taken from the access token and
// passed explicitly to handlers and services.
type Identity struct {
	UserID   uint64
	Username string
	Role     model.Role
}

// IsStaff reports whether the caller may use the admin area at all.
func (id Identity) IsStaff() bool {
	return id.Role == model.RoleAdmin || id.Role == model.RoleSuperAdmin
}

// IsSuperAdmin reports whether the caller sees every cinema.
func (id Identity) IsSuperAdmin() bool { return id.Role == model.RoleSuperAdmin }

// OwnerScope returns nil for a superadmin, who sees every cinema, and the
// caller's id otherwise. Listing queries use it as their owner filter.
func (id Identity) OwnerScope() *uint64 {
	if id.IsSuperAdmin() {
		return nil
	}
	uid := id.UserID
	return &uid
}

// CanManageCinema: a superadmin manages every cinema, an admin only the
// cinemas it owns, everyone else none.
func CanManageCinema(id Identity, c *model.Cinema) bool {
	if c == nil {
		return false
	}
	switch id.Role {
	case model.RoleSuperAdmin:
		return true
	case model.RoleAdmin:
		return c.OwnedBy(id.UserID)
	}
	return false
}
