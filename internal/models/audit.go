package models

import "time"

// Audit event types
const (
	AuditDocumentDownload = "document_download"
	AuditBillingAccess    = "billing_access"
)

// AuditLog is an entry of the audit_logs collection
type AuditLog struct {
	ID        string                 `json:"id,omitempty"`
	EventType string                 `json:"eventType" validate:"required"`
	UserID    string                 `json:"userId"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AuditFilter narrows an audit listing
type AuditFilter struct {
	EventType string
	UserID    string
	Since     *time.Time
	Limit     int
}
