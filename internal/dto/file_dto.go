package dto

import (
	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/models"
)

// UploadFileRequest carries the multipart form fields of POST /api/files.
type UploadFileRequest struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Program     string `form:"program"`
	Year        string `form:"year"`
	Branch      string `form:"branch"`
	Subject     string `form:"subject"`
}

type FileFilter struct {
	Program  string
	Year     string
	Branch   string
	Subject  string
	Category string
	Search   string
	Limit    int
	Offset   int
}

type FileResponse struct {
	models.File
	UpVotes   int64 `json:"up_votes"`
	DownVotes int64 `json:"down_votes"`
}

type DownloadResponse struct {
	URL           string `json:"url"`
	DownloadCount int64  `json:"download_count"`
}

// VoteRequest ignores any client supplied user id; the caller comes from the token.
type VoteRequest struct {
	FileID   uuid.UUID `json:"fileId"`
	VoteType string    `json:"voteType"`
}

type VoteResponse struct {
	UpVotes   int64   `json:"upVotes"`
	DownVotes int64   `json:"downVotes"`
	UserVote  *string `json:"userVote"`
}

type BookmarkRequest struct {
	FileID uuid.UUID `json:"fileId"`
}

type BookmarkResponse struct {
	Bookmarked bool `json:"bookmarked"`
}
