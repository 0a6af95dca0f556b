package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subject persists curriculum entries added at runtime through approved
// subject requests. The seed curriculum lives in the curriculum file.
type Subject struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Program   string    `gorm:"not null;size:100;uniqueIndex:idx_subjects_path,priority:1" json:"program"`
	Year      string    `gorm:"not null;size:20;uniqueIndex:idx_subjects_path,priority:2" json:"year"`
	Branch    string    `gorm:"not null;size:100;uniqueIndex:idx_subjects_path,priority:3" json:"branch"`
	Slug      string    `gorm:"not null;size:150;uniqueIndex:idx_subjects_path,priority:4" json:"slug"`
	Name      string    `gorm:"not null;size:150" json:"name"`
	AddedBy   uuid.UUID `gorm:"type:uuid" json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (Subject) TableName() string {
	return "subjects"
}
