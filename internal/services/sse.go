package services

import (
	"sync"
	"time"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/policy"
)

const (
	EventProjectCreated = "project.created"
	EventProjectUpdated = "project.updated"
	EventProjectDeleted = "project.deleted"
	EventTaskCreated    = "task.created"
	EventTaskUpdated    = "task.updated"
	EventTaskDeleted    = "task.deleted"
	EventUserRegistered = "user.registered"
	EventUserRole       = "user.role_changed"
	EventUserDeleted    = "user.deleted"
)

// Event is a change notification pushed to SSE subscribers.
type Event struct {
	Type      string          `json:"type"`
	ActorID   uint            `json:"actor_id"`
	Project   *domain.Project `json:"project,omitempty"`
	Task      *domain.Task    `json:"task,omitempty"`
	User      *domain.User    `json:"user,omitempty"`
	Timestamp time.Time       `json:"timestamp"`

	// Parent is the project holding Task and Tasks are the tasks of Project.
	// They only decide who receives the event.
	Parent *domain.Project `json:"-"`
	Tasks  []domain.Task   `json:"-"`
}

// Entity names the kind of document the event is about.
func (e Event) Entity() policy.Entity {
	switch {
	case e.Task != nil:
		return policy.EntityTask
	case e.Project != nil:
		return policy.EntityProject
	default:
		return policy.EntityUser
	}
}

// visibleTo delivers project and task events to subscribers that may view
// the document and would find it in their own project or task list. User
// events go to principals allowed to list users.
func (e Event) visibleTo(p *domain.Principal) bool {
	switch e.Entity() {
	case policy.EntityTask:
		return policy.Allowed(p, policy.Request{Action: policy.ActionView, Entity: policy.EntityTask, Task: e.Task}) &&
			policy.TaskInScope(p, e.Parent, *e.Task)
	case policy.EntityProject:
		return policy.Allowed(p, policy.Request{Action: policy.ActionView, Entity: policy.EntityProject, Project: e.Project}) &&
			policy.ProjectInScope(p, *e.Project, e.Tasks)
	default:
		return policy.Allowed(p, policy.Request{Action: policy.ActionViewAny, Entity: policy.EntityUser})
	}
}

type subscriber struct {
	principal *domain.Principal
	ch        chan Event
}

// SSEHub fans events out to connected clients.
type SSEHub struct {
	clients map[string]*subscriber
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]*subscriber),
	}
}

// Subscribe registers a client acting as p and returns its event channel.
func (h *SSEHub) Subscribe(clientID string, p *domain.Principal) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[clientID]; ok {
		close(old.ch)
	}
	ch := make(chan Event, 100)
	h.clients[clientID] = &subscriber{principal: p, ch: ch}
	return ch
}

func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.clients[clientID]; ok {
		close(sub.ch)
		delete(h.clients, clientID)
	}
}

// Publish delivers event to every subscriber allowed to view it. Slow
// clients with a full buffer miss the event.
func (h *SSEHub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.clients {
		if !event.visibleTo(sub.principal) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
