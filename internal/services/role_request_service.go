package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidRequestedRole = errors.New("requested_role must be uploader or moderator")
	ErrRoleAlreadyHeld      = errors.New("you already have this role or a higher one")
	ErrDuplicateRoleRequest = errors.New("you already have a pending request for this role")
)

type RoleRequestService struct {
	db     *gorm.DB
	filter *ContentFilter
}

func NewRoleRequestService(db *gorm.DB, filter *ContentFilter) *RoleRequestService {
	return &RoleRequestService{db: db, filter: filter}
}

// Create files a pending elevation request for the caller.
func (s *RoleRequestService) Create(ctx context.Context, actor authz.Identity, req *dto.CreateRoleRequest) (*models.RoleRequest, error) {
	role, ok := authz.ParseRole(req.RequestedRole)
	if !ok || (role != authz.RoleUploader && role != authz.RoleModerator) {
		return nil, ErrInvalidRequestedRole
	}
	if actor.Role.Rank() >= role.Rank() {
		return nil, ErrRoleAlreadyHeld
	}
	reason := strings.TrimSpace(req.Reason)
	if err := checkText(s.filter, "reason", reason); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var pending int64
	if err := db.Model(&models.RoleRequest{}).
		Where("user_id = ? AND requested_role = ? AND status = ?", actor.UserID, string(role), models.RequestPending).
		Count(&pending).Error; err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, ErrDuplicateRoleRequest
	}

	request := models.RoleRequest{
		UserID:        actor.UserID,
		RequestedRole: string(role),
		Reason:        reason,
		Status:        models.RequestPending,
	}
	if err := db.Omit("User").Create(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRoleRequest
		}
		return nil, fmt.Errorf("failed to create role request: %w", err)
	}

	slog.Info("role requested", "action", "role_request_create", "user_id", actor.UserID.String(), "role", request.RequestedRole)
	return &request, nil
}

func (s *RoleRequestService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.RoleRequest, error) {
	var requests []models.RoleRequest
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *RoleRequestService) List(ctx context.Context, status string, limit, offset int) ([]models.RoleRequest, int64, error) {
	var requests []models.RoleRequest
	var total int64

	query := s.db.WithContext(ctx).Model(&models.RoleRequest{}).Scopes(models.WithStatus(status))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("User").Order("created_at ASC").Scopes(models.Page(limit, offset)).Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Review approves or rejects a pending request. Approval updates the request
// and the requester's stored role in one transaction; a requester who already
// holds a higher role keeps it.
func (s *RoleRequestService) Review(ctx context.Context, actor authz.Identity, requestID uuid.UUID, req *dto.ReviewRequest) (*models.RoleRequest, error) {
	if !actor.Can(authz.PermManageUsers) {
		return nil, ErrForbidden
	}
	var status string
	switch req.Action {
	case "approve":
		status = models.RequestApproved
	case "reject":
		status = models.RequestRejected
	default:
		return nil, ErrInvalidAction
	}

	var request models.RoleRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":      status,
			"reviewed_by": actor.UserID,
			"reviewed_at": now,
		}
		if status == models.RequestRejected {
			updates["rejection_reason"] = strings.TrimSpace(req.RejectionReason)
		}
		result := tx.Model(&models.RoleRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestPending).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRequestNotPending
		}

		if status == models.RequestApproved {
			var user models.User
			if err := tx.Select("id", "role").First(&user, "id = ?", request.UserID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return err
			}
			current, _ := authz.ParseRole(user.Role)
			requested := authz.Role(request.RequestedRole)
			if current.Rank() < requested.Rank() {
				if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("role", string(requested)).Error; err != nil {
					return err
				}
			}
		}

		return tx.Preload("User").First(&request, "id = ?", requestID).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrRequestNotPending), errors.Is(err, ErrUserNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("failed to review role request: %w", err)
	}

	slog.Info("role request reviewed", "action", "role_request_"+req.Action, "user_id", actor.UserID.String(),
		"target_user_id", request.UserID.String(), "role", request.RequestedRole)
	return &request, nil
}
