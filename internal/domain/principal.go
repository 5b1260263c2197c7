package domain

// Principal is the authenticated actor of a request. It is built once per
// request and never changes afterwards; callers only get copies of its role
// list and read access to the permission set.
type Principal struct {
	ID    uint
	Name  string
	Email string

	roles       []Role
	permissions map[Permission]struct{}
}

// NewPrincipal builds a principal from a user and the permissions resolved
// for the user's roles.
func NewPrincipal(user User, perms []Permission) *Principal {
	p := &Principal{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		roles:       append([]Role(nil), user.Roles...),
		permissions: make(map[Permission]struct{}, len(perms)),
	}
	for _, perm := range perms {
		p.permissions[perm] = struct{}{}
	}
	return p
}

// Can reports whether the principal holds perm. A nil principal holds nothing.
func (p *Principal) Can(perm Permission) bool {
	if p == nil {
		return false
	}
	_, ok := p.permissions[perm]
	return ok
}

// HasRole reports whether the principal holds role r.
func (p *Principal) HasRole(r Role) bool {
	if p == nil {
		return false
	}
	for _, role := range p.roles {
		if role == r {
			return true
		}
	}
	return false
}

// Roles returns a copy of the principal's roles.
func (p *Principal) Roles() []Role {
	if p == nil {
		return nil
	}
	return append([]Role(nil), p.roles...)
}

// Permissions returns the principal's permissions in canonical order.
func (p *Principal) Permissions() []Permission {
	if p == nil {
		return nil
	}
	out := make([]Permission, 0, len(p.permissions))
	for _, perm := range AllPermissions {
		if _, ok := p.permissions[perm]; ok {
			out = append(out, perm)
		}
	}
	return out
}

// Scope is the role used for data scoping: admin wins over manager, manager
// over employee. An empty Role means the principal holds none of them.
func (p *Principal) Scope() Role {
	switch {
	case p.HasRole(RoleAdmin):
		return RoleAdmin
	case p.HasRole(RoleManager):
		return RoleManager
	case p.HasRole(RoleEmployee):
		return RoleEmployee
	}
	return ""
}
