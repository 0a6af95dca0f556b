package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/curriculum"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"gorm.io/gorm"
)

var errStorageDown = errors.New("storage unavailable")

// memStorage is an in-memory storage.FileStorage whose deletes can be made to fail.
type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failPut   bool
	failDel   bool
	deleteLog []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return "", errStorageDown
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLog = append(m.deleteLog, key)
	if m.failDel {
		return errStorageDown
	}
	delete(m.objects, key)
	return nil
}

func (m *memStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func testRegistry(t *testing.T) *curriculum.Registry {
	t.Helper()
	r := curriculum.NewRegistry()
	for _, s := range []curriculum.Subject{
		{Program: "btech", Year: "2", Branch: "cse", Name: "Data Structures"},
		{Program: "btech", Year: "2", Branch: "cse", Name: "Discrete Mathematics"},
		{Program: "btech", Year: "1", Branch: "common", Name: "Engineering Physics"},
	} {
		if !r.Add(s) {
			t.Fatalf("seed subject %q rejected", s.Name)
		}
	}
	return r
}

func createUser(t *testing.T, db *gorm.DB, email string, role authz.Role) authz.Identity {
	t.Helper()
	user := models.User{Email: email, Password: "x", DisplayName: email, Role: string(role), EmailVerified: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return authz.Identity{UserID: user.ID, Email: user.Email, EmailVerified: true, Role: role}
}

func createFile(t *testing.T, db *gorm.DB, uploader uuid.UUID, approved bool) models.File {
	t.Helper()
	file := models.File{
		UploaderID: uploader,
		Title:      "Unit 1 notes",
		Category:   models.CategoryNotes,
		Program:    "btech",
		Year:       "2",
		Branch:     "cse",
		Subject:    "data-structures",
		FileName:   "unit1.pdf",
		StorageKey: "btech/2/cse/data-structures/" + uuid.NewString() + ".pdf",
		URL:        "https://cdn.test/file.pdf",
	}
	if err := db.Create(&file).Error; err != nil {
		t.Fatalf("create file: %v", err)
	}
	if approved {
		now := time.Now()
		if err := db.Model(&file).Updates(map[string]interface{}{"approved": true, "approved_at": now}).Error; err != nil {
			t.Fatalf("approve file: %v", err)
		}
		file.Approved = true
	}
	return file
}
