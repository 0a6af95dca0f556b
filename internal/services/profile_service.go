package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidRole      = errors.New("invalid role: must be admin, moderator, uploader, or user")
	ErrSelfRoleChange   = errors.New("cannot change your own role")
	ErrInvalidProfile   = errors.New("display name must be 1-100 characters")
	ErrInvalidAvatarURL = errors.New("avatar_url must be an https URL")
)

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" || len(name) > 100 {
			return nil, ErrInvalidProfile
		}
		updates["display_name"] = name
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		if avatar != "" && !strings.HasPrefix(avatar, "https://") {
			return nil, ErrInvalidAvatarURL
		}
		updates["avatar_url"] = avatar
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update profile: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return s.Get(ctx, userID)
}

func (s *ProfileService) List(ctx context.Context, search string, limit, offset int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := s.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetRole stores a new role. Owner is configuration only and cannot be assigned.
func (s *ProfileService) SetRole(ctx context.Context, actor authz.Identity, userID uuid.UUID, role string) (*models.User, error) {
	r, ok := authz.ParseRole(role)
	if !ok || r == authz.RoleOwner {
		return nil, ErrInvalidRole
	}
	if actor.UserID == userID {
		return nil, ErrSelfRoleChange
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role", string(r))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.Get(ctx, userID)
}

// StoredRole implements authz.RoleSource against the profiles table.
func (s *ProfileService) StoredRole(ctx context.Context, userID uuid.UUID, _ string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "role").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", authz.ErrUnknownSubject
	}
	if err != nil {
		return "", fmt.Errorf("load stored role: %w", err)
	}
	return user.Role, nil
}
