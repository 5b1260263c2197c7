// Package policy holds the authorization, visibility and aggregation rules.
// Everything here is a pure function of a principal and in-memory data.
package policy

import (
	"sync/atomic"

	"github.com/huangang/taskboard/internal/domain"
)

type Action string

const (
	ActionView    Action = "view"
	ActionViewAny Action = "viewAny"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionAssign  Action = "assign"
)

type Entity string

const (
	EntityProject Entity = "project"
	EntityTask    Entity = "task"
	EntityUser    Entity = "user"
)

// Request describes one authorization question. Only the target matching
// Entity is consulted; it may be nil for create and viewAny.
type Request struct {
	Action  Action
	Entity  Entity
	Project *domain.Project
	Task    *domain.Task
	User    *domain.User
}

// Observer is told about every decision. It must not influence the outcome.
type Observer interface {
	ObserveDecision(entity Entity, action Action, allowed bool)
}

var observer atomic.Pointer[Observer]

// SetObserver installs the decision observer used by Authorize. A nil
// observer removes it.
func SetObserver(o Observer) {
	if o == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&o)
}

// Authorize decides whether p may perform req. A nil principal is denied.
func Authorize(p *domain.Principal, req Request) bool {
	allowed := decide(p, req)
	if o := observer.Load(); o != nil {
		(*o).ObserveDecision(req.Entity, req.Action, allowed)
	}
	return allowed
}

// Allowed is Authorize without notifying the observer. Event fan-out uses it
// so that decision metrics count requests only.
func Allowed(p *domain.Principal, req Request) bool {
	return decide(p, req)
}

// Enforce is Authorize returning domain.ErrPermissionDenied on deny.
func Enforce(p *domain.Principal, req Request) error {
	if Authorize(p, req) {
		return nil
	}
	return domain.Denied("not allowed to %s %s", req.Action, req.Entity)
}

func decide(p *domain.Principal, req Request) bool {
	if p == nil {
		return false
	}
	switch req.Entity {
	case EntityProject:
		return decideProject(p, req.Action, req.Project)
	case EntityTask:
		return decideTask(p, req.Action, req.Task)
	case EntityUser:
		return decideUser(p, req.Action, req.User)
	}
	return false
}

func decideProject(p *domain.Principal, action Action, target *domain.Project) bool {
	switch action {
	case ActionViewAny:
		return p.Can(domain.PermViewAllProjects)
	case ActionView:
		if target == nil {
			return false
		}
		if p.HasRole(domain.RoleAdmin) {
			return true
		}
		if p.HasRole(domain.RoleManager) {
			return target.AssignedManager == p.ID || target.CreatedBy == p.ID
		}
		return p.Can(domain.PermViewAllProjects)
	case ActionCreate:
		return p.Can(domain.PermCreateProjects)
	case ActionUpdate:
		if p.HasRole(domain.RoleAdmin) {
			return true
		}
		if p.HasRole(domain.RoleManager) && p.Can(domain.PermEditProjects) {
			if target == nil {
				return true
			}
			return target.CreatedBy == p.ID || target.AssignedManager == p.ID
		}
		return false
	case ActionDelete:
		return p.HasRole(domain.RoleAdmin) && p.Can(domain.PermDeleteProjects)
	}
	return false
}

func decideTask(p *domain.Principal, action Action, target *domain.Task) bool {
	switch action {
	case ActionViewAny:
		return p.Can(domain.PermViewAllTasks) || p.Can(domain.PermViewOwnTasks)
	case ActionView:
		if target == nil {
			return false
		}
		if p.Can(domain.PermViewAllTasks) {
			return true
		}
		return p.Can(domain.PermViewOwnTasks) && target.AssignedTo == p.ID
	case ActionCreate:
		return p.Can(domain.PermCreateTasks)
	case ActionUpdate:
		if p.Can(domain.PermEditAllTasks) {
			return true
		}
		if p.Can(domain.PermEditOwnTasks) {
			return target == nil || target.AssignedTo == p.ID
		}
		return false
	case ActionDelete:
		return p.Can(domain.PermEditAllTasks)
	case ActionAssign:
		return p.Can(domain.PermAssignTasks)
	}
	return false
}

func decideUser(p *domain.Principal, action Action, target *domain.User) bool {
	switch action {
	case ActionViewAny:
		return p.Can(domain.PermManageUsers)
	case ActionUpdate:
		// role changes on one's own account are refused
		return target != nil && target.ID != p.ID && p.Can(domain.PermAssignRoles)
	case ActionDelete:
		if target == nil || target.ID == p.ID {
			return false
		}
		return p.Can(domain.PermManageUsers) && !target.HasRole(domain.RoleAdmin)
	}
	return false
}
