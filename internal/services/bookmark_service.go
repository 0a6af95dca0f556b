package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookmarkService struct {
	db *gorm.DB
}

func NewBookmarkService(db *gorm.DB) *BookmarkService {
	return &BookmarkService{db: db}
}

// Toggle adds the bookmark when absent and removes it when present. It
// reports whether the file is bookmarked afterwards.
func (s *BookmarkService) Toggle(ctx context.Context, userID, fileID uuid.UUID) (bool, error) {
	var bookmarked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(models.PublishedFiles).Select("id").First(&models.File{}, "id = ?", fileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFileNotFound
			}
			return err
		}

		result := tx.Where("file_id = ? AND user_id = ?", fileID, userID).Delete(&models.Bookmark{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		if err := insertBookmark(tx, fileID, userID); err != nil {
			return err
		}
		bookmarked = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, err
		}
		return false, fmt.Errorf("failed to toggle bookmark: %w", err)
	}
	return bookmarked, nil
}

// insertBookmark treats a concurrent insert of the same pair as success. The
// conflict is absorbed by ON CONFLICT so Postgres does not abort the transaction.
func insertBookmark(tx *gorm.DB, fileID, userID uuid.UUID) error {
	bookmark := models.Bookmark{FileID: fileID, UserID: userID}
	return tx.Omit("File").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&bookmark).Error
}

// List returns the user's bookmarks on approved files, newest first.
func (s *BookmarkService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Bookmark, int64, error) {
	var bookmarks []models.Bookmark
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Bookmark{}).
		Joins("JOIN files ON files.id = bookmarks.file_id AND files.approved = ?", true).
		Where("bookmarks.user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("File").Order("bookmarks.created_at DESC").Scopes(models.Page(limit, offset)).Find(&bookmarks).Error; err != nil {
		return nil, 0, err
	}
	return bookmarks, total, nil
}
