package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the profile record. Role holds the stored role only; owner status
// comes from configuration and is never persisted here.
//
// Email allow-lists only apply once EmailVerified is set. VerifyTokenHash is
// the sha256 of the outstanding verification token and is cleared on use.
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password        string         `gorm:"not null" json:"-"`
	DisplayName     string         `gorm:"size:100" json:"display_name"`
	AvatarURL       string         `gorm:"size:500" json:"avatar_url"`
	Role            string         `gorm:"size:20;not null;default:'user'" json:"role"`
	EmailVerified   bool           `gorm:"not null;default:false" json:"email_verified"`
	VerifyTokenHash string         `gorm:"size:64;index" json:"-"`
	VerifyExpiresAt *time.Time     `json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
