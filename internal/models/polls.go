package models

import "time"

// Poll is a single-choice survey. Votes maps user id to the chosen option.
type Poll struct {
	ID        string            `json:"id,omitempty"`
	Question  string            `json:"question" validate:"required"`
	Options   []string          `json:"options" validate:"min=2,dive,required"`
	Votes     map[string]string `json:"votes,omitempty"`
	ClosesAt  *time.Time        `json:"closesAt,omitempty"`
	Active    bool              `json:"active"`
	CreatedAt *time.Time        `json:"createdAt,omitempty"`
}

// HasOption reports whether option is one of the poll options
func (p *Poll) HasOption(option string) bool {
	for _, o := range p.Options {
		if o == option {
			return true
		}
	}
	return false
}

// IsOpen reports whether the poll accepts votes at the given time
func (p *Poll) IsOpen(now time.Time) bool {
	if !p.Active {
		return false
	}
	return p.ClosesAt == nil || now.Before(*p.ClosesAt)
}

// PollResults is the per-option vote count of a poll
type PollResults struct {
	PollID string         `json:"pollId"`
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// Workflow request statuses
const (
	WorkflowPending  = "pending"
	WorkflowApproved = "approved"
	WorkflowRejected = "rejected"
)

// WorkflowRequest is an HR-style request (vacation, equipment, reimbursement...)
type WorkflowRequest struct {
	ID             string                 `json:"id,omitempty"`
	Type           string                 `json:"type" validate:"required"`
	RequesterID    string                 `json:"requesterId"`
	RequesterEmail string                 `json:"requesterEmail,omitempty"`
	Status         string                 `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	Comment        string                 `json:"comment,omitempty"`
	DecidedBy      string                 `json:"decidedBy,omitempty"`
	DecidedAt      *time.Time             `json:"decidedAt,omitempty"`
	CreatedAt      *time.Time             `json:"createdAt,omitempty"`
}
