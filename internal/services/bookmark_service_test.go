package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/database/dbtest"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"gorm.io/gorm"
)

func TestBookmarkToggle(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewBookmarkService(db)
	ctx := context.Background()
	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	file := createFile(t, db, user.UserID, true)
	other := createFile(t, db, user.UserID, true)

	for i, want := range []bool{true, false, true} {
		got, err := svc.Toggle(ctx, user.UserID, file.ID)
		if err != nil {
			t.Fatalf("Toggle #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("Toggle #%d = %v, want %v", i, got, want)
		}
	}
	if _, err := svc.Toggle(ctx, user.UserID, other.ID); err != nil {
		t.Fatalf("Toggle other: %v", err)
	}

	list, total, err := svc.List(ctx, user.UserID, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("List = %d/%d, want 2/2", len(list), total)
	}
	for _, b := range list {
		if b.File.ID != b.FileID {
			t.Fatalf("bookmark %s not preloaded with its file", b.ID)
		}
	}

	if _, err := svc.Toggle(ctx, user.UserID, uuid.New()); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("Toggle missing file = %v, want ErrFileNotFound", err)
	}
}

func TestInsertBookmarkAbsorbsDuplicate(t *testing.T) {
	db := dbtest.Open(t)
	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	file := createFile(t, db, user.UserID, true)

	// A second insert of the same pair stands in for a concurrent toggle.
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := insertBookmark(tx, file.ID, user.UserID); err != nil {
			return err
		}
		return insertBookmark(tx, file.ID, user.UserID)
	})
	if err != nil {
		t.Fatalf("duplicate insert = %v, want nil", err)
	}

	var rows int64
	db.Model(&models.Bookmark{}).Where("file_id = ? AND user_id = ?", file.ID, user.UserID).Count(&rows)
	if rows != 1 {
		t.Fatalf("bookmark rows = %d, want 1", rows)
	}
}
