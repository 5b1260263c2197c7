package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/models"
	"github.com/huangang/taskboard/internal/policy"
)

// UserService backs the user administration panel.
type UserService struct {
	db       *gorm.DB
	identity *IdentityService
	activity *ActivityService
}

func NewUserService(db *gorm.DB, identity *IdentityService, activity *ActivityService) *UserService {
	return &UserService{db: db, identity: identity, activity: activity}
}

type UserListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Role     string `form:"role"`
	Search   string `form:"search"`
}

type UserListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []domain.User `json:"items"`
	Roles    []domain.Role `json:"roles"`
}

type UpdateRoleRequest struct {
	Role domain.Role `json:"role" binding:"required"`
}

// List pages through users, newest first.
func (s *UserService) List(ctx context.Context, p *domain.Principal, req *UserListRequest) (*UserListResponse, error) {
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionViewAny, Entity: policy.EntityUser}); err != nil {
		return nil, err
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 15
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if req.Role != "" {
		query = query.Where("users.id IN (?)", s.db.Table("user_roles").
			Select("user_roles.user_id").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.name = ?", req.Role))
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("users.name LIKE ? OR users.email LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Unavailable("count users", err)
	}
	var recs []models.User
	err := query.Preload("Roles").
		Order("users.created_at DESC, users.id DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&recs).Error
	if err != nil {
		return nil, domain.Unavailable("list users", err)
	}

	return &UserListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    toDomainUsers(recs),
		Roles:    []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee},
	}, nil
}

// UpdateRole replaces every role of the user with role.
func (s *UserService) UpdateRole(ctx context.Context, p *domain.Principal, id uint, role domain.Role, meta RequestMeta) (*domain.User, error) {
	target, err := s.identity.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionUpdate, Entity: policy.EntityUser, User: target}); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.Invalid("role must be one of admin, manager, employee")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Role
		if err := tx.Where("name = ?", string(role)).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.InvalidReference("role %s is not seeded", role)
			}
			return domain.Unavailable("load role", err)
		}
		user := models.User{ID: id}
		if err := tx.Model(&user).Association("Roles").Replace([]models.Role{r}); err != nil {
			return domain.Unavailable("assign role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.identity.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, Event{Type: EventUserRole, ActorID: p.ID, User: updated}, meta)
	return updated, nil
}

// Delete removes a user. Admins and the caller cannot be deleted.
func (s *UserService) Delete(ctx context.Context, p *domain.Principal, id uint, meta RequestMeta) error {
	target, err := s.identity.FindUser(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Enforce(p, policy.Request{Action: policy.ActionDelete, Entity: policy.EntityUser, User: target}); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{ID: id}
		if err := tx.Model(&user).Association("Roles").Clear(); err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return domain.Unavailable("delete user", err)
	}
	s.activity.Record(ctx, Event{Type: EventUserDeleted, ActorID: p.ID, User: target}, meta)
	return nil
}
