package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// RoleRequest asks for elevation to uploader or moderator.
type RoleRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_role_requests_pending,where:status = 'pending'" json:"user_id"`
	RequestedRole   string     `gorm:"not null;size:20;uniqueIndex:idx_role_requests_pending" json:"requested_role"`
	Reason          string     `gorm:"size:1000" json:"reason"`
	Status          string     `gorm:"not null;default:'pending';size:20;index" json:"status"`
	RejectionReason string     `gorm:"size:1000" json:"rejection_reason,omitempty"`
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	User            User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *RoleRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SubjectRequest proposes a new subject for the curriculum tree.
type SubjectRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"requester_id"`
	Program         string     `gorm:"not null;size:100" json:"program"`
	Year            string     `gorm:"not null;size:20" json:"year"`
	Branch          string     `gorm:"not null;size:100" json:"branch"`
	SubjectName     string     `gorm:"not null;size:150" json:"subject_name"`
	Reason          string     `gorm:"size:1000" json:"reason,omitempty"`
	Status          string     `gorm:"not null;default:'pending';size:20;index" json:"status"`
	RejectionReason string     `gorm:"size:1000" json:"rejection_reason,omitempty"`
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (r *SubjectRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
