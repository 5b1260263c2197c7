package models

import (
	"errors"
	"fmt"

	"github.com/huangang/taskboard/internal/config"
	"github.com/huangang/taskboard/internal/domain"
	"github.com/huangang/taskboard/internal/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the identity store described by cfg.
func Open(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// unique violations surface as gorm.ErrDuplicatedKey on every driver
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// InitDB opens the identity store and keeps it as the package default.
func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg, logger.Warn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Permission{},
		&Role{},
		&User{},
		&ActivityLog{},
		&SchedulerLock{},
	)
}

// SeedRoles makes the roles and permissions tables match
// domain.RolePermissions. It is safe to run repeatedly.
func SeedRoles(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		perms := make(map[domain.Permission]Permission, len(domain.AllPermissions))
		for _, name := range domain.AllPermissions {
			p := Permission{Name: string(name)}
			if err := tx.Where(Permission{Name: string(name)}).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("seed permission %q: %w", name, err)
			}
			perms[name] = p
		}

		for _, roleName := range []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee} {
			role := Role{Name: string(roleName)}
			if err := tx.Where(Role{Name: string(roleName)}).FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("seed role %q: %w", roleName, err)
			}
			granted := make([]Permission, 0, len(domain.RolePermissions[roleName]))
			for _, name := range domain.RolePermissions[roleName] {
				granted = append(granted, perms[name])
			}
			if err := tx.Model(&role).Association("Permissions").Replace(granted); err != nil {
				return fmt.Errorf("grant permissions to %q: %w", roleName, err)
			}
		}
		return nil
	})
}

// SeedAdmin creates the configured admin account unless a user holding the
// admin role already exists.
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig) (bool, error) {
	var count int64
	err := db.Model(&User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", string(domain.RoleAdmin)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	var adminRole Role
	if err := db.Where("name = ?", string(domain.RoleAdmin)).First(&adminRole).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, errors.New("roles are not seeded")
		}
		return false, err
	}

	hashed, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return false, err
	}
	admin := User{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: hashed,
		Roles:    []Role{adminRole},
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}

// OpenInMemory returns a migrated and seeded sqlite database living in
// memory. A single connection keeps every query on the same database.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, logger.Silent)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	if err := SeedRoles(db); err != nil {
		return nil, err
	}
	return db, nil
}
