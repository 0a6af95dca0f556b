package services

import "errors"

var (
	ErrForbidden         = errors.New("insufficient permissions")
	ErrInvalidAction     = errors.New("invalid action: must be approve or reject")
	ErrRequestNotFound   = errors.New("request not found")
	ErrRequestNotPending = errors.New("request has already been reviewed")
)

// ContentRejectedError is returned when free text fails the content filter.
type ContentRejectedError struct {
	Field  string
	Reason string
}

func (e *ContentRejectedError) Error() string {
	return e.Field + ": " + RejectionMessage(e.Reason)
}

func checkText(f *ContentFilter, field, text string) error {
	if ok, reason := f.Check(text); !ok {
		return &ContentRejectedError{Field: field, Reason: reason}
	}
	return nil
}

// ErrConcurrentVote means another request inserted the same vote first.
var ErrConcurrentVote = errors.New("vote changed concurrently, retry")
