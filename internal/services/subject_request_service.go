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
	"github.com/t4zn/medicaps-sub001/internal/curriculum"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubjectExists         = errors.New("subject already exists")
	ErrInvalidSubjectRequest = errors.New("program, year, branch and subject_name are required")
)

type SubjectRequestService struct {
	db       *gorm.DB
	registry *curriculum.Registry
	filter   *ContentFilter
}

func NewSubjectRequestService(db *gorm.DB, registry *curriculum.Registry, filter *ContentFilter) *SubjectRequestService {
	return &SubjectRequestService{db: db, registry: registry, filter: filter}
}

// Create records a subject proposal. Callers allowed to manage subject
// requests have theirs approved on the spot.
func (s *SubjectRequestService) Create(ctx context.Context, actor authz.Identity, req *dto.CreateSubjectRequest) (*models.SubjectRequest, error) {
	subject := curriculum.Normalize(curriculum.Subject{
		Program: req.Program,
		Year:    req.Year,
		Branch:  req.Branch,
		Name:    req.SubjectName,
	})
	if subject.Program == "" || subject.Year == "" || subject.Branch == "" || subject.Slug == "" || len(subject.Name) > 150 {
		return nil, ErrInvalidSubjectRequest
	}
	if err := checkText(s.filter, "subject_name", subject.Name); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if err := checkText(s.filter, "reason", reason); err != nil {
		return nil, err
	}
	if s.registry.Exists(subject.Program, subject.Year, subject.Branch, subject.Slug) {
		return nil, ErrSubjectExists
	}

	request := models.SubjectRequest{
		RequesterID: actor.UserID,
		Program:     subject.Program,
		Year:        subject.Year,
		Branch:      subject.Branch,
		SubjectName: subject.Name,
		Reason:      reason,
		Status:      models.RequestPending,
	}

	autoApprove := actor.Can(authz.PermManageSubjectRequests)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if autoApprove {
			now := time.Now()
			request.Status = models.RequestApproved
			request.ReviewedBy = &actor.UserID
			request.ReviewedAt = &now
			if err := insertSubject(tx, subject, actor.UserID); err != nil {
				return err
			}
		}
		return tx.Create(&request).Error
	})
	if err != nil {
		if errors.Is(err, ErrSubjectExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create subject request: %w", err)
	}
	if autoApprove {
		s.registry.Add(subject)
	}

	slog.Info("subject requested", "action", "subject_request_create", "user_id", actor.UserID.String(),
		"subject", subject.Program+"/"+subject.Year+"/"+subject.Branch+"/"+subject.Slug, "status", request.Status)
	return &request, nil
}

func (s *SubjectRequestService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.SubjectRequest, error) {
	var requests []models.SubjectRequest
	if err := s.db.WithContext(ctx).Where("requester_id = ?", userID).Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *SubjectRequestService) List(ctx context.Context, status string, limit, offset int) ([]models.SubjectRequest, int64, error) {
	var requests []models.SubjectRequest
	var total int64

	query := s.db.WithContext(ctx).Model(&models.SubjectRequest{}).Scopes(models.WithStatus(status))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at ASC").Scopes(models.Page(limit, offset)).Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Review approves or rejects a pending request. Approval persists the subject
// and publishes it to the registry once the transaction commits.
func (s *SubjectRequestService) Review(ctx context.Context, actor authz.Identity, requestID uuid.UUID, req *dto.ReviewRequest) (*models.SubjectRequest, error) {
	if !actor.Can(authz.PermManageSubjectRequests) {
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

	var request models.SubjectRequest
	var subject curriculum.Subject
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
		result := tx.Model(&models.SubjectRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestPending).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRequestNotPending
		}

		if status == models.RequestApproved {
			subject = curriculum.Normalize(curriculum.Subject{
				Program: request.Program,
				Year:    request.Year,
				Branch:  request.Branch,
				Name:    request.SubjectName,
			})
			if err := insertSubject(tx, subject, actor.UserID); err != nil && !errors.Is(err, ErrSubjectExists) {
				return err
			}
		}
		return tx.First(&request, "id = ?", requestID).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrRequestNotPending):
			return nil, err
		}
		return nil, fmt.Errorf("failed to review subject request: %w", err)
	}
	if status == models.RequestApproved {
		s.registry.Add(subject)
	}

	slog.Info("subject request reviewed", "action", "subject_request_"+req.Action, "user_id", actor.UserID.String(),
		"subject", request.Program+"/"+request.Year+"/"+request.Branch+"/"+request.SubjectName)
	return &request, nil
}

// SyncRegistry loads subjects added at runtime into the registry. It returns
// how many were new to the registry.
func (s *SubjectRequestService) SyncRegistry(ctx context.Context) (int, error) {
	var subjects []models.Subject
	if err := s.db.WithContext(ctx).Find(&subjects).Error; err != nil {
		return 0, fmt.Errorf("failed to load subjects: %w", err)
	}
	added := 0
	for _, row := range subjects {
		if s.registry.Add(curriculum.Subject{Program: row.Program, Year: row.Year, Branch: row.Branch, Name: row.Name}) {
			added++
		}
	}
	return added, nil
}

func insertSubject(tx *gorm.DB, subject curriculum.Subject, addedBy uuid.UUID) error {
	row := models.Subject{
		Program: subject.Program,
		Year:    subject.Year,
		Branch:  subject.Branch,
		Slug:    subject.Slug,
		Name:    subject.Name,
		AddedBy: addedBy,
	}
	// ON CONFLICT keeps a racing approval from aborting the surrounding transaction.
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "program"}, {Name: "year"}, {Name: "branch"}, {Name: "slug"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrSubjectExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubjectExists
	}
	return nil
}
