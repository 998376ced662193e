package domain

import "time"

// ApprovalStatus represents the lifecycle state of an approval request
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalEdited   ApprovalStatus = "edited"
	ApprovalTimeout  ApprovalStatus = "timeout"
)

// Terminal reports whether no further transition is permitted from s
func (s ApprovalStatus) Terminal() bool {
	switch s {
	case ApprovalApproved, ApprovalRejected, ApprovalEdited, ApprovalTimeout:
		return true
	}
	return false
}

// ReviewerStatus reports whether s is a decision a reviewer may submit.
// Timeout is reserved for the watchdog.
func (s ApprovalStatus) ReviewerStatus() bool {
	switch s {
	case ApprovalApproved, ApprovalRejected, ApprovalEdited:
		return true
	}
	return false
}

// ApprovalRequest is one durable approval record per (content, platform) pair.
// It is created pending and transitions exactly once to a terminal status.
type ApprovalRequest struct {
	ID         string           `json:"id"`
	Platform   string           `json:"platform"`
	Content    ContentCandidate `json:"content"`
	Score      float64          `json:"score"`
	Status     ApprovalStatus   `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
	DecidedBy  string           `json:"decided_by,omitempty"`
	DecidedAt  *time.Time       `json:"decided_at,omitempty"`
	EditedText string           `json:"edited_text,omitempty"`
}

// Expired reports whether the request passed its deadline at the given time
func (r *ApprovalRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
