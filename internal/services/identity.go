package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/models"
)

// IdentityService reads users, roles and permissions from the relational
// store. Every store failure is reported as domain.ErrUnavailable.
type IdentityService struct {
	db *gorm.DB
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{db: db}
}

func (s *IdentityService) findRecord(ctx context.Context, id uint, preload string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload(preload).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("user %d not found", id)
		}
		return nil, domain.Unavailable("find user", err)
	}
	return &user, nil
}

// FindUser returns the user with its roles.
func (s *IdentityService) FindUser(ctx context.Context, id uint) (*domain.User, error) {
	rec, err := s.findRecord(ctx, id, "Roles")
	if err != nil {
		return nil, err
	}
	u := rec.ToDomain()
	return &u, nil
}

func (s *IdentityService) withRole(ctx context.Context, role domain.Role) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", string(role))
}

// UsersWithRole lists the holders of role ordered by id.
func (s *IdentityService) UsersWithRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var recs []models.User
	err := s.withRole(ctx, role).
		Preload("Roles").
		Order("users.id").
		Find(&recs).Error
	if err != nil {
		return nil, domain.Unavailable("list users by role", err)
	}
	return toDomainUsers(recs), nil
}

// PrincipalPermissions is the union of the permissions granted to the
// user's roles.
func (s *IdentityService) PrincipalPermissions(ctx context.Context, userID uint) ([]domain.Permission, error) {
	rec, err := s.findRecord(ctx, userID, "Roles.Permissions")
	if err != nil {
		return nil, err
	}
	return permissionsOf(rec), nil
}

// ResolvePrincipal loads the user and builds its immutable principal.
func (s *IdentityService) ResolvePrincipal(ctx context.Context, userID uint) (*domain.Principal, error) {
	rec, err := s.findRecord(ctx, userID, "Roles.Permissions")
	if err != nil {
		return nil, err
	}
	return domain.NewPrincipal(rec.ToDomain(), permissionsOf(rec)), nil
}

// Directory returns every user ordered by id.
func (s *IdentityService) Directory(ctx context.Context) ([]domain.User, error) {
	var recs []models.User
	if err := s.db.WithContext(ctx).Preload("Roles").Order("id").Find(&recs).Error; err != nil {
		return nil, domain.Unavailable("list users", err)
	}
	return toDomainUsers(recs), nil
}

// Headcount counts all users and the employees among them.
func (s *IdentityService) Headcount(ctx context.Context) (domain.Headcount, error) {
	var hc domain.Headcount
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&hc.TotalUsers).Error; err != nil {
		return hc, domain.Unavailable("count users", err)
	}
	if err := s.withRole(ctx, domain.RoleEmployee).Distinct("users.id").Count(&hc.Employees).Error; err != nil {
		return hc, domain.Unavailable("count employees", err)
	}
	return hc, nil
}

// RequireRole checks that id names an existing user holding role. A missing
// user or a missing role is an invalid reference.
func (s *IdentityService) RequireRole(ctx context.Context, id uint, role domain.Role) error {
	user, err := s.FindUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.InvalidReference("user %d does not exist", id)
	}
	if err != nil {
		return err
	}
	if !user.HasRole(role) {
		return domain.InvalidReference("user %d is not a %s", id, role)
	}
	return nil
}

func permissionsOf(rec *models.User) []domain.Permission {
	seen := make(map[string]bool)
	var perms []domain.Permission
	for _, r := range rec.Roles {
		for _, p := range r.Permissions {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			perms = append(perms, domain.Permission(p.Name))
		}
	}
	return perms
}

func toDomainUsers(recs []models.User) []domain.User {
	users := make([]domain.User, 0, len(recs))
	for _, r := range recs {
		users = append(users, r.ToDomain())
	}
	return users
}
