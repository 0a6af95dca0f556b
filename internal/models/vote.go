package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VoteUp   = "up"
	VoteDown = "down"
)

// Vote is unique per (file, user).
type Vote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FileID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_file_user,priority:1" json:"file_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_file_user,priority:2;index" json:"user_id"`
	VoteType  string    `gorm:"not null;size:10" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Bookmark is unique per (file, user); its existence is the whole state.
type Bookmark struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FileID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmarks_file_user,priority:1" json:"file_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmarks_file_user,priority:2;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	File      File      `gorm:"foreignKey:FileID" json:"file"`
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
