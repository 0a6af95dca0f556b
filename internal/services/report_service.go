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
	ErrReportNotFound      = errors.New("report not found")
	ErrReportNotPending    = errors.New("report has already been reviewed")
	ErrDuplicateReport     = errors.New("you already have a pending report for this file")
	ErrInvalidReportStatus = errors.New("invalid status: must be resolved or dismissed")
	ErrReasonRequired      = errors.New("reason is required")
)

type ReportService struct {
	db     *gorm.DB
	filter *ContentFilter
}

func NewReportService(db *gorm.DB, filter *ContentFilter) *ReportService {
	return &ReportService{db: db, filter: filter}
}

func (s *ReportService) Create(ctx context.Context, reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	details := strings.TrimSpace(req.Details)
	if err := checkText(s.filter, "details", details); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := db.Select("id").First(&models.File{}, "id = ?", req.FileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	var pending int64
	if err := db.Model(&models.Report{}).
		Where("file_id = ? AND reporter_id = ? AND status = ?", req.FileID, reporterID, models.ReportPending).
		Count(&pending).Error; err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, ErrDuplicateReport
	}

	report := models.Report{
		FileID:     req.FileID,
		ReporterID: reporterID,
		Reason:     reason,
		Details:    details,
		Status:     models.ReportPending,
	}
	if err := db.Create(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateReport
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	slog.Info("report created", "action", "report_create", "file_id", req.FileID.String(), "user_id", reporterID.String())
	return &report, nil
}

func (s *ReportService) List(ctx context.Context, status string, limit, offset int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Report{}).Scopes(models.WithStatus(status))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Scopes(models.Page(limit, offset)).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// Resolve annotates a pending report. The reported file is left untouched.
func (s *ReportService) Resolve(ctx context.Context, actor authz.Identity, reportID uuid.UUID, req *dto.ResolveReportRequest) (*models.Report, error) {
	if !actor.Can(authz.PermModerateContent) {
		return nil, ErrForbidden
	}
	if req.Status != models.ReportResolved && req.Status != models.ReportDismissed {
		return nil, ErrInvalidReportStatus
	}

	db := s.db.WithContext(ctx)
	now := time.Now()
	result := db.Model(&models.Report{}).
		Where("id = ? AND status = ?", reportID, models.ReportPending).
		Updates(map[string]interface{}{
			"status":      req.Status,
			"admin_note":  strings.TrimSpace(req.AdminNote),
			"reviewed_by": actor.UserID,
			"reviewed_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to resolve report: %w", result.Error)
	}

	var report models.Report
	if err := db.First(&report, "id = ?", reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, ErrReportNotPending
	}

	slog.Info("report reviewed", "action", "report_"+req.Status, "file_id", report.FileID.String(), "user_id", actor.UserID.String())
	return &report, nil
}
