package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/database/dbtest"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/models"
)

const testMaxBytes = 1 << 10

func pdfUpload(name string) Upload {
	return Upload{
		FileName:    name,
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.7\nhello"),
	}
}

func uploadRequest() *dto.UploadFileRequest {
	return &dto.UploadFileRequest{
		Title:    "Trees and graphs",
		Category: "notes",
		Program:  "BTech",
		Year:     "2",
		Branch:   "CSE",
		Subject:  "Data Structures",
	}
}

func TestUploadApprovalFollowsRole(t *testing.T) {
	db := dbtest.Open(t)
	store := newMemStorage()
	svc := NewFileService(db, store, testRegistry(t), NewContentFilter(), testMaxBytes)
	ctx := context.Background()

	tests := []struct {
		role authz.Role
		want bool
	}{
		{authz.RoleUser, false},
		{authz.RoleUploader, true},
		{authz.RoleModerator, true},
		{authz.RoleAdmin, true},
	}
	for _, tt := range tests {
		actor := createUser(t, db, string(tt.role)+"@medicaps.ac.in", tt.role)
		file, err := svc.Upload(ctx, actor, uploadRequest(), pdfUpload("Trees.PDF"))
		if err != nil {
			t.Fatalf("Upload as %s: %v", tt.role, err)
		}
		if file.Approved != tt.want {
			t.Errorf("Upload as %s: approved = %v, want %v", tt.role, file.Approved, tt.want)
		}
		if file.Subject != "data-structures" || file.Program != "btech" || file.Branch != "cse" {
			t.Errorf("classification = %s/%s/%s, want btech/cse/data-structures", file.Program, file.Branch, file.Subject)
		}
		if !store.has(file.StorageKey) {
			t.Errorf("object %s not stored", file.StorageKey)
		}
	}
}

func TestUploadValidation(t *testing.T) {
	db := dbtest.Open(t)
	store := newMemStorage()
	svc := NewFileService(db, store, testRegistry(t), NewContentFilter(), testMaxBytes)
	actor := createUser(t, db, "a@medicaps.ac.in", authz.RoleUser)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*dto.UploadFileRequest, *Upload)
		want   error
	}{
		{"bad category", func(r *dto.UploadFileRequest, _ *Upload) { r.Category = "slides" }, ErrInvalidCategory},
		{"unknown subject", func(r *dto.UploadFileRequest, _ *Upload) { r.Subject = "Compilers" }, ErrUnknownSubject},
		{"short title", func(r *dto.UploadFileRequest, _ *Upload) { r.Title = "ab" }, ErrInvalidTitle},
		{"not a pdf name", func(_ *dto.UploadFileRequest, u *Upload) { u.FileName = "notes.docx" }, ErrNotPDF},
		{"not a pdf body", func(_ *dto.UploadFileRequest, u *Upload) { u.Body = strings.NewReader("plain text") }, ErrNotPDF},
		{"empty", func(_ *dto.UploadFileRequest, u *Upload) { u.Body = strings.NewReader("") }, ErrEmptyFile},
		{"too large", func(_ *dto.UploadFileRequest, u *Upload) {
			u.Body = strings.NewReader("%PDF-" + strings.Repeat("x", testMaxBytes))
		}, ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadRequest()
			up := pdfUpload("notes.pdf")
			tt.mutate(req, &up)
			if _, err := svc.Upload(ctx, actor, req, up); !errors.Is(err, tt.want) {
				t.Fatalf("Upload error = %v, want %v", err, tt.want)
			}
		})
	}

	req := uploadRequest()
	req.Description = "visit www.example.com for more"
	_, err := svc.Upload(ctx, actor, req, pdfUpload("notes.pdf"))
	var rejected *ContentRejectedError
	if !errors.As(err, &rejected) || rejected.Field != "description" || rejected.Reason != ReasonURL {
		t.Fatalf("Upload with link = %v, want content rejection on description", err)
	}

	if len(store.objects) != 0 {
		t.Fatalf("stored %d objects for rejected uploads, want 0", len(store.objects))
	}
}

func TestUploadStorageFailure(t *testing.T) {
	db := dbtest.Open(t)
	store := newMemStorage()
	store.failPut = true
	svc := NewFileService(db, store, testRegistry(t), NewContentFilter(), testMaxBytes)
	actor := createUser(t, db, "a@medicaps.ac.in", authz.RoleUploader)

	if _, err := svc.Upload(context.Background(), actor, uploadRequest(), pdfUpload("x.pdf")); !errors.Is(err, errStorageDown) {
		t.Fatalf("Upload error = %v, want storage error", err)
	}
	var count int64
	db.Model(&models.File{}).Count(&count)
	if count != 0 {
		t.Fatalf("files = %d, want 0", count)
	}
}

func TestListOnlyApprovedWithVotes(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewFileService(db, newMemStorage(), testRegistry(t), NewContentFilter(), testMaxBytes)
	votes := NewVoteService(db)
	ctx := context.Background()

	owner := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	voter := createUser(t, db, "v@medicaps.ac.in", authz.RoleUser)
	approved := createFile(t, db, owner.UserID, true)
	createFile(t, db, owner.UserID, false)

	if _, err := votes.Toggle(ctx, voter.UserID, approved.ID, models.VoteUp); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := votes.Toggle(ctx, owner.UserID, approved.ID, models.VoteDown); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	files, total, err := svc.List(ctx, dto.FileFilter{Program: "BTech", Branch: "cse", Limit: 20})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(files) != 1 {
		t.Fatalf("List returned %d/%d files, want 1/1", len(files), total)
	}
	if files[0].ID != approved.ID || files[0].UpVotes != 1 || files[0].DownVotes != 1 {
		t.Fatalf("List[0] = %s up=%d down=%d, want %s up=1 down=1", files[0].ID, files[0].UpVotes, files[0].DownVotes, approved.ID)
	}

	pending, total, err := svc.ListForReview(ctx, "pending", 20, 0)
	if err != nil {
		t.Fatalf("ListForReview: %v", err)
	}
	if total != 1 || pending[0].Approved {
		t.Fatalf("ListForReview(pending) = %d files, want 1 unapproved", total)
	}
}

func TestApprove(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewFileService(db, newMemStorage(), testRegistry(t), NewContentFilter(), testMaxBytes)
	ctx := context.Background()

	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	uploader := createUser(t, db, "up@medicaps.ac.in", authz.RoleUploader)
	mod := createUser(t, db, "mod@medicaps.ac.in", authz.RoleModerator)
	file := createFile(t, db, user.UserID, false)

	if _, err := svc.Get(ctx, file.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("Get pending = %v, want ErrFileNotFound", err)
	}
	if _, err := svc.Approve(ctx, uploader, file.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Approve by uploader = %v, want ErrForbidden", err)
	}

	got, err := svc.Approve(ctx, mod, file.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if !got.Approved || got.ApprovedBy == nil || *got.ApprovedBy != mod.UserID {
		t.Fatalf("Approve = approved %v by %v, want approved by %s", got.Approved, got.ApprovedBy, mod.UserID)
	}
	if _, err := svc.Get(ctx, file.ID); err != nil {
		t.Fatalf("Get approved: %v", err)
	}
	if _, err := svc.Approve(ctx, mod, file.ID); !errors.Is(err, ErrFileAlreadyApproved) {
		t.Fatalf("second Approve = %v, want ErrFileAlreadyApproved", err)
	}
}

func TestRejectDeletesRowEvenWhenStorageFails(t *testing.T) {
	db := dbtest.Open(t)
	store := newMemStorage()
	store.failDel = true
	svc := NewFileService(db, store, testRegistry(t), NewContentFilter(), testMaxBytes)
	ctx := context.Background()

	admin := createUser(t, db, "admin@medicaps.ac.in", authz.RoleAdmin)
	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	file := createFile(t, db, user.UserID, true)

	if _, err := NewVoteService(db).Toggle(ctx, user.UserID, file.ID, models.VoteUp); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := NewBookmarkService(db).Toggle(ctx, user.UserID, file.ID); err != nil {
		t.Fatalf("bookmark: %v", err)
	}
	if _, err := NewReportService(db, NewContentFilter()).Create(ctx, user.UserID, &dto.CreateReportRequest{FileID: file.ID, Reason: "wrong subject"}); err != nil {
		t.Fatalf("report: %v", err)
	}

	if err := svc.Reject(ctx, admin, file.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if len(store.deleteLog) != 1 || store.deleteLog[0] != file.StorageKey {
		t.Fatalf("storage deletes = %v, want [%s]", store.deleteLog, file.StorageKey)
	}

	for name, model := range map[string]interface{}{
		"files":     &models.File{},
		"votes":     &models.Vote{},
		"bookmarks": &models.Bookmark{},
		"reports":   &models.Report{},
	} {
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if count != 0 {
			t.Errorf("%s = %d after reject, want 0", name, count)
		}
	}

	if err := svc.Reject(ctx, admin, file.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("second Reject = %v, want ErrFileNotFound", err)
	}
}

func TestRejectRequiresPermission(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewFileService(db, newMemStorage(), testRegistry(t), NewContentFilter(), testMaxBytes)
	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUploader)
	file := createFile(t, db, user.UserID, false)

	if err := svc.Reject(context.Background(), user, file.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Reject by uploader = %v, want ErrForbidden", err)
	}
}

func TestRecordDownload(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewFileService(db, newMemStorage(), testRegistry(t), NewContentFilter(), testMaxBytes)
	ctx := context.Background()
	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	approved := createFile(t, db, user.UserID, true)
	pending := createFile(t, db, user.UserID, false)

	for i := 1; i <= 3; i++ {
		got, err := svc.RecordDownload(ctx, approved.ID)
		if err != nil {
			t.Fatalf("RecordDownload: %v", err)
		}
		if got.DownloadCount != int64(i) || got.URL != approved.URL {
			t.Fatalf("RecordDownload = %+v, want count %d url %s", got, i, approved.URL)
		}
	}
	if _, err := svc.RecordDownload(ctx, pending.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("RecordDownload pending = %v, want ErrFileNotFound", err)
	}
}
