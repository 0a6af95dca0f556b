package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/curriculum"
)

var ErrObjectNotFound = errors.New("object not found in storage")

// FileStorage stores uploaded documents and returns the URL students download them from.
type FileStorage interface {
	// Upload writes body under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds program/year/branch/subject/<id>-<file>.pdf.
func ObjectKey(program, year, branch, subject string, id uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := curriculum.Slugify(strings.TrimSuffix(path.Base(fileName), path.Ext(fileName)))
	if base == "" {
		base = "file"
	}
	return path.Join(
		curriculum.Slugify(program),
		curriculum.Slugify(year),
		curriculum.Slugify(branch),
		curriculum.Slugify(subject),
		id.String()+"-"+base+ext,
	)
}
