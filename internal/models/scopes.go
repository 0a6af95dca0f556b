package models

import "gorm.io/gorm"

// PublishedFiles limits a files query to approved rows.
func PublishedFiles(db *gorm.DB) *gorm.DB {
	return db.Where("approved = ?", true)
}

// WithStatus filters by status; an empty status matches everything.
func WithStatus(status string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("status = ?", status)
	}
}

// Page applies limit/offset paging.
func Page(limit, offset int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(limit).Offset(offset)
	}
}
