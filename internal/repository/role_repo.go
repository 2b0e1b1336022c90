package repository

import (
	"context"

	"github.com/yourdudeken/eventtik/internal/models"
	"gorm.io/gorm"
)

// RoleRepository reads role assignments written by the identity provider.
type RoleRepository interface {
	FindRole(ctx context.Context, userID string) (models.Role, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// FindRole returns the user's most privileged role, or RoleNone.
func (r *roleRepository) FindRole(ctx context.Context, userID string) (models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role", &roles).Error
	if err != nil {
		return models.RoleNone, err
	}
	return models.Highest(roles...), nil
}
