package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blockify-backend/internal/models"
	"blockify-backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExists = errors.New("username already exists")
	ErrOptimisticLock    = errors.New("data has been modified by another user, please refresh and try again")
)

// UserUpdate carries the fields an admin may change; nil fields are left alone.
type UserUpdate struct {
	Password *string
	Role     *string
	IsActive *bool
}

// FindUsers retrieves a paginated list of users.
func (s *IdentityService) FindUsers(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)
	offset := (page - 1) * limit

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := s.db.WithContext(ctx).Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CreateUser registers an account; orders are owned by customer accounts.
func (s *IdentityService) CreateUser(ctx context.Context, username, password, role string) (models.User, error) {
	username = strings.TrimSpace(username)
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		Username: username,
		Password: string(hashed),
		Role:     role,
		IsActive: true,
		Version:  1,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrUserAlreadyExists
		}
		return models.User{}, err
	}
	return user, nil
}

// UpdateUser applies upd under a version check and drops the cached copy, so a
// deactivated user is rejected on the next request.
func (s *IdentityService) UpdateUser(ctx context.Context, id uint, upd UserUpdate, operatorID uint) (models.User, error) {
	updates := make(map[string]interface{})
	if upd.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, err
		}
		updates["password"] = string(hashed)
	}
	if upd.Role != nil {
		updates["role"] = *upd.Role
	}
	if upd.IsActive != nil {
		updates["is_active"] = *upd.IsActive
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		currentVersion := user.Version
		updates["version"] = currentVersion + 1
		result := tx.Model(&user).Where("version = ?", currentVersion).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOptimisticLock
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return models.User{}, err
	}

	if s.redis != nil {
		s.redis.Del(ctx, fmt.Sprintf("user:%d", id))
	}
	delete(updates, "password")
	logger.Log.Info("user updated",
		zap.Uint("user_id", id),
		zap.Uint("operator_id", operatorID),
		zap.Any("fields", updates),
	)
	return user, nil
}
