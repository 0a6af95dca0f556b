package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CategoryNotes        = "notes"
	CategoryPYQ          = "pyq"
	CategoryFormulaSheet = "formula_sheet"
)

// File is an uploaded study document. It is hidden from public listings
// until Approved is set.
type File struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UploaderID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"uploader_id"`
	Title         string     `gorm:"not null;size:200" json:"title"`
	Description   string     `gorm:"size:1000" json:"description,omitempty"`
	Category      string     `gorm:"not null;size:30;index" json:"category"`
	Program       string     `gorm:"not null;size:100;index:idx_files_classification,priority:1" json:"program"`
	Year          string     `gorm:"not null;size:20;index:idx_files_classification,priority:2" json:"year"`
	Branch        string     `gorm:"not null;size:100;index:idx_files_classification,priority:3" json:"branch"`
	Subject       string     `gorm:"not null;size:150;index:idx_files_classification,priority:4" json:"subject"`
	FileName      string     `gorm:"not null;size:255" json:"file_name"`
	ContentType   string     `gorm:"size:100" json:"content_type"`
	Size          int64      `json:"size"`
	StorageKey    string     `gorm:"not null;size:500" json:"-"`
	URL           string     `gorm:"not null;size:1000" json:"url"`
	Approved      bool       `gorm:"not null;default:false;index" json:"approved"`
	ApprovedBy    *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	DownloadCount int64      `gorm:"not null;default:0" json:"download_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func ValidCategory(c string) bool {
	switch c {
	case CategoryNotes, CategoryPYQ, CategoryFormulaSheet:
		return true
	}
	return false
}
