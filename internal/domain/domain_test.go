package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRolePermissions_Seeded(t *testing.T) {
	assert.Len(t, RolePermissions[RoleAdmin], 15)
	assert.Len(t, RolePermissions[RoleManager], 8)
	assert.ElementsMatch(t,
		[]Permission{PermViewAllProjects, PermViewOwnTasks, PermEditOwnTasks},
		RolePermissions[RoleEmployee])
	assert.NotContains(t, RolePermissions[RoleManager], PermDeleteProjects)
}

func TestPermissionsFor_Union(t *testing.T) {
	perms := PermissionsFor(RoleManager, RoleEmployee)

	assert.Contains(t, perms, PermEditOwnTasks)
	assert.Contains(t, perms, PermAssignTasks)
	// view all projects is held by both and must appear once
	count := 0
	for _, p := range perms {
		if p == PermViewAllProjects {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Empty(t, PermissionsFor())
}

func TestPrincipal(t *testing.T) {
	user := User{ID: 7, Name: "Mona", Roles: []Role{RoleManager}}
	p := NewPrincipal(user, PermissionsFor(user.Roles...))

	assert.True(t, p.Can(PermCreateTasks))
	assert.False(t, p.Can(PermDeleteProjects))
	assert.True(t, p.HasRole(RoleManager))
	assert.Equal(t, RoleManager, p.Scope())

	// callers cannot mutate the principal through returned or input slices
	roles := p.Roles()
	roles[0] = RoleAdmin
	user.Roles[0] = RoleAdmin
	assert.False(t, p.HasRole(RoleAdmin))
}

func TestPrincipal_Nil(t *testing.T) {
	var p *Principal
	assert.False(t, p.Can(PermViewAllProjects))
	assert.False(t, p.HasRole(RoleAdmin))
	assert.Nil(t, p.Roles())
	assert.Equal(t, Role(""), p.Scope())
}

func TestPrincipal_ScopePrecedence(t *testing.T) {
	p := NewPrincipal(User{ID: 1, Roles: []Role{RoleEmployee, RoleAdmin}}, nil)
	assert.Equal(t, RoleAdmin, p.Scope())
}

func TestStatusNormalize(t *testing.T) {
	assert.Equal(t, TaskPending, TaskStatus("").Normalize())
	assert.Equal(t, TaskPending, TaskStatus("blocked").Normalize())
	assert.Equal(t, TaskCompleted, TaskCompleted.Normalize())
	assert.Equal(t, PriorityMedium, Priority("").Normalize())
	assert.Equal(t, PriorityHigh, PriorityHigh.Normalize())
	assert.False(t, ProjectStatus("archived").Valid())
}

func TestErrors_KindMatching(t *testing.T) {
	err := fmt.Errorf("load: %w", Unavailable("list projects", errors.New("dial tcp: refused")))

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Equal(t, "service unavailable", PublicMessage(err))

	nf := NotFound("project %s not found", "p1")
	assert.True(t, errors.Is(nf, ErrNotFound))
	assert.Equal(t, "project p1 not found", PublicMessage(nf))

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal error", PublicMessage(errors.New("boom")))
}
