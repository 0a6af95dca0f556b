package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/curriculum"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"github.com/t4zn/medicaps-sub001/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrFileAlreadyApproved = errors.New("file is already approved")
	ErrInvalidCategory     = errors.New("invalid category: must be notes, pyq, or formula_sheet")
	ErrUnknownSubject      = errors.New("unknown program, year, branch, or subject")
	ErrInvalidTitle        = errors.New("title must be 3-200 characters")
	ErrNotPDF              = errors.New("only PDF files are accepted")
	ErrFileTooLarge        = errors.New("file exceeds the upload size limit")
	ErrEmptyFile           = errors.New("file is empty")
)

// Upload is the raw document accompanying an upload request.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

type FileService struct {
	db       *gorm.DB
	store    storage.FileStorage
	registry *curriculum.Registry
	filter   *ContentFilter
	maxBytes int64
}

func NewFileService(db *gorm.DB, store storage.FileStorage, registry *curriculum.Registry, filter *ContentFilter, maxBytes int64) *FileService {
	return &FileService{
		db:       db,
		store:    store,
		registry: registry,
		filter:   filter,
		maxBytes: maxBytes,
	}
}

// Upload stores the document and creates its record. Uploads by roles with
// canUploadWithoutApproval are published immediately; all others wait for review.
func (s *FileService) Upload(ctx context.Context, actor authz.Identity, req *dto.UploadFileRequest, up Upload) (*models.File, error) {
	title := strings.TrimSpace(req.Title)
	if len(title) < 3 || len(title) > 200 {
		return nil, ErrInvalidTitle
	}
	description := strings.TrimSpace(req.Description)
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if !models.ValidCategory(category) {
		return nil, ErrInvalidCategory
	}
	subject, ok := s.registry.Lookup(req.Program, req.Year, req.Branch, req.Subject)
	if !ok {
		return nil, ErrUnknownSubject
	}
	if err := checkText(s.filter, "title", title); err != nil {
		return nil, err
	}
	if err := checkText(s.filter, "description", description); err != nil {
		return nil, err
	}

	data, err := s.readPDF(up)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	key := storage.ObjectKey(subject.Program, subject.Year, subject.Branch, subject.Slug, id, up.FileName)
	url, err := s.store.Upload(ctx, key, "application/pdf", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := models.File{
		ID:          id,
		UploaderID:  actor.UserID,
		Title:       title,
		Description: description,
		Category:    category,
		Program:     subject.Program,
		Year:        subject.Year,
		Branch:      subject.Branch,
		Subject:     subject.Slug,
		FileName:    path.Base(up.FileName),
		ContentType: "application/pdf",
		Size:        int64(len(data)),
		StorageKey:  key,
		URL:         url,
	}
	if actor.Can(authz.PermUploadWithoutApproval) {
		now := time.Now()
		file.Approved = true
		file.ApprovedBy = &actor.UserID
		file.ApprovedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			slog.Warn("orphaned storage object after failed insert", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	slog.Info("file uploaded", "action", "file_upload", "file_id", file.ID.String(), "user_id", actor.UserID.String(), "approved", file.Approved)
	return &file, nil
}

func (s *FileService) readPDF(up Upload) ([]byte, error) {
	if strings.ToLower(path.Ext(up.FileName)) != ".pdf" {
		return nil, ErrNotPDF
	}
	if up.ContentType != "" && up.ContentType != "application/pdf" && up.ContentType != "application/octet-stream" {
		return nil, ErrNotPDF
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	return data, nil
}

// List returns approved files matching the filter with their vote counts.
func (s *FileService) List(ctx context.Context, f dto.FileFilter) ([]dto.FileResponse, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.File{}).Scopes(models.PublishedFiles)
	if f.Program != "" {
		query = query.Where("program = ?", curriculum.Slugify(f.Program))
	}
	if f.Year != "" {
		query = query.Where("year = ?", curriculum.Slugify(f.Year))
	}
	if f.Branch != "" {
		query = query.Where("branch = ?", curriculum.Slugify(f.Branch))
	}
	if f.Subject != "" {
		query = query.Where("subject = ?", curriculum.Slugify(f.Subject))
	}
	if f.Category != "" {
		query = query.Where("category = ?", strings.ToLower(f.Category))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var files []models.File
	if err := query.Order("created_at DESC").Scopes(models.Page(f.Limit, f.Offset)).Find(&files).Error; err != nil {
		return nil, 0, err
	}

	out, err := s.withVoteCounts(ctx, files)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListForReview lists files by approval state: "pending", "approved" or "" for all.
func (s *FileService) ListForReview(ctx context.Context, status string, limit, offset int) ([]models.File, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.File{})
	switch status {
	case "pending":
		query = query.Where("approved = ?", false)
	case "approved":
		query = query.Where("approved = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var files []models.File
	if err := query.Order("created_at ASC").Scopes(models.Page(limit, offset)).Find(&files).Error; err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// Get returns an approved file.
func (s *FileService) Get(ctx context.Context, id uuid.UUID) (*dto.FileResponse, error) {
	var file models.File
	if err := s.db.WithContext(ctx).Scopes(models.PublishedFiles).First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	out, err := s.withVoteCounts(ctx, []models.File{file})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *FileService) Approve(ctx context.Context, actor authz.Identity, id uuid.UUID) (*models.File, error) {
	if !canModerateFiles(actor) {
		return nil, ErrForbidden
	}

	db := s.db.WithContext(ctx)
	now := time.Now()
	result := db.Model(&models.File{}).
		Where("id = ? AND approved = ?", id, false).
		Updates(map[string]interface{}{
			"approved":    true,
			"approved_by": actor.UserID,
			"approved_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to approve file: %w", result.Error)
	}

	var file models.File
	if err := db.First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, ErrFileAlreadyApproved
	}

	slog.Info("file approved", "action", "file_approve", "file_id", id.String(), "user_id", actor.UserID.String())
	return &file, nil
}

// Reject removes a file. The storage delete is best effort: a failure is
// logged and the record is deleted anyway.
func (s *FileService) Reject(ctx context.Context, actor authz.Identity, id uuid.UUID) error {
	if !canModerateFiles(actor) {
		return ErrForbidden
	}

	db := s.db.WithContext(ctx)
	var file models.File
	if err := db.First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	if err := s.store.Delete(ctx, file.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		slog.Warn("storage delete failed, removing file record anyway",
			"action", "file_reject", "file_id", id.String(), "key", file.StorageKey, "error", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", id).Delete(&models.Bookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", id).Delete(&models.Report{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.File{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	slog.Info("file rejected", "action", "file_reject", "file_id", id.String(), "user_id", actor.UserID.String(), "was_approved", file.Approved)
	return nil
}

// RecordDownload bumps the counter of an approved file and returns its URL.
func (s *FileService) RecordDownload(ctx context.Context, id uuid.UUID) (*dto.DownloadResponse, error) {
	db := s.db.WithContext(ctx)
	result := db.Model(&models.File{}).
		Where("id = ? AND approved = ?", id, true).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to record download: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrFileNotFound
	}

	var file models.File
	if err := db.Select("id", "url", "download_count").First(&file, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dto.DownloadResponse{URL: file.URL, DownloadCount: file.DownloadCount}, nil
}

type voteCountRow struct {
	FileID   uuid.UUID
	VoteType string
	Count    int64
}

func (s *FileService) withVoteCounts(ctx context.Context, files []models.File) ([]dto.FileResponse, error) {
	out := make([]dto.FileResponse, len(files))
	if len(files) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(files))
	index := make(map[uuid.UUID]int, len(files))
	for i, f := range files {
		ids[i] = f.ID
		index[f.ID] = i
		out[i] = dto.FileResponse{File: f}
	}

	var rows []voteCountRow
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Select("file_id, vote_type, COUNT(*) AS count").
		Where("file_id IN ?", ids).
		Group("file_id, vote_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	for _, r := range rows {
		i, ok := index[r.FileID]
		if !ok {
			continue
		}
		switch r.VoteType {
		case models.VoteUp:
			out[i].UpVotes = r.Count
		case models.VoteDown:
			out[i].DownVotes = r.Count
		}
	}
	return out, nil
}

func canModerateFiles(actor authz.Identity) bool {
	return actor.Can(authz.PermDeleteFiles) || actor.Can(authz.PermAccessAdminPanel)
}
