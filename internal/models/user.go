package models

import (
	"time"

	"github.com/huangang/taskboard/internal/domain"
	"gorm.io/gorm"
)

// User is an account in the identity store.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string         `gorm:"size:255" json:"-"`
	Roles     []Role         `gorm:"many2many:user_roles;" json:"roles"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// ToDomain converts the row; Roles must be preloaded.
func (u User) ToDomain() domain.User {
	roles := make([]domain.Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, domain.Role(r.Name))
	}
	return domain.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
}

// Role groups permissions. Rows are seeded from domain.RolePermissions.
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"-"`
	UpdatedAt   time.Time    `json:"-"`
}

func (Role) TableName() string { return "roles" }

type Permission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Permission) TableName() string { return "permissions" }
