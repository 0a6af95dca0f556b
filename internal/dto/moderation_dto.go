package dto

import "github.com/google/uuid"

type CreateReportRequest struct {
	FileID  uuid.UUID `json:"file_id"`
	Reason  string    `json:"reason"`
	Details string    `json:"details"`
}

type ResolveReportRequest struct {
	Status    string `json:"status"`
	AdminNote string `json:"admin_note"`
}

type CreateRoleRequest struct {
	RequestedRole string `json:"requested_role"`
	Reason        string `json:"reason"`
}

type CreateSubjectRequest struct {
	Program     string `json:"program"`
	Year        string `json:"year"`
	Branch      string `json:"branch"`
	SubjectName string `json:"subject_name"`
	Reason      string `json:"reason"`
}

// ReviewRequest is shared by role and subject request reviews.
type ReviewRequest struct {
	Action          string `json:"action"`
	RejectionReason string `json:"rejection_reason"`
}
