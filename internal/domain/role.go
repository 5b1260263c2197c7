package domain

// Role is the tag a user holds in the identity store.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Permission is a named capability checked by the policy engine.
type Permission string

const (
	PermCreateProjects     Permission = "create projects"
	PermEditProjects       Permission = "edit projects"
	PermDeleteProjects     Permission = "delete projects"
	PermViewAllProjects    Permission = "view all projects"
	PermCreateTasks        Permission = "create tasks"
	PermAssignTasks        Permission = "assign tasks"
	PermEditAllTasks       Permission = "edit all tasks"
	PermViewAllTasks       Permission = "view all tasks"
	PermViewOwnTasks       Permission = "view own tasks"
	PermEditOwnTasks       Permission = "edit own tasks"
	PermManageUsers        Permission = "manage users"
	PermAssignRoles        Permission = "assign roles"
	PermViewSystemLogs     Permission = "view system logs"
	PermAccessAdminPanel   Permission = "access admin panel"
	PermAccessManagerPanel Permission = "access manager panel"
)

// AllPermissions lists every permission in seeding order.
var AllPermissions = []Permission{
	PermCreateProjects,
	PermEditProjects,
	PermDeleteProjects,
	PermViewAllProjects,
	PermCreateTasks,
	PermAssignTasks,
	PermEditAllTasks,
	PermViewAllTasks,
	PermViewOwnTasks,
	PermEditOwnTasks,
	PermManageUsers,
	PermAssignRoles,
	PermViewSystemLogs,
	PermAccessAdminPanel,
	PermAccessManagerPanel,
}

// RolePermissions is the seeded role table. The identity store is
// populated from it once; at runtime permissions are read back from there.
var RolePermissions = map[Role][]Permission{
	RoleAdmin: AllPermissions,
	RoleManager: {
		PermCreateProjects,
		PermEditProjects,
		PermViewAllProjects,
		PermCreateTasks,
		PermAssignTasks,
		PermEditAllTasks,
		PermViewAllTasks,
		PermAccessManagerPanel,
	},
	RoleEmployee: {
		PermViewAllProjects,
		PermViewOwnTasks,
		PermEditOwnTasks,
	},
}

// PermissionsFor returns the union of the seeded permissions of roles.
func PermissionsFor(roles ...Role) []Permission {
	seen := make(map[Permission]struct{})
	var out []Permission
	for _, r := range roles {
		for _, p := range RolePermissions[r] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
