package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// Report flags a file for moderator review. Only one pending report may exist
// per (file, reporter); resolved and dismissed ones do not count.
type Report struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FileID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_reports_pending,where:status = 'pending'" json:"file_id"`
	ReporterID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_reports_pending" json:"reporter_id"`
	Reason     string     `gorm:"not null;size:500" json:"reason"`
	Details    string     `gorm:"size:2000" json:"details,omitempty"`
	Status     string     `gorm:"not null;default:'pending';size:20;index" json:"status"`
	AdminNote  string     `gorm:"size:1000" json:"admin_note,omitempty"`
	ReviewedBy *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
