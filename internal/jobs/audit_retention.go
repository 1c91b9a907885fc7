package jobs

import (
	"context"
	"log"
	"time"

	"intranet/internal/services"
)

// AuditRetentionJob deletes audit entries older than the retention window
type AuditRetentionJob struct {
	audit         *services.AuditService
	retentionDays int
	now           func() time.Time
}

// NewAuditRetentionJob creates a retention job. retentionDays <= 0 keeps everything.
func NewAuditRetentionJob(audit *services.AuditService, retentionDays int) *AuditRetentionJob {
	return &AuditRetentionJob{audit: audit, retentionDays: retentionDays, now: time.Now}
}

// Run purges expired audit entries
func (j *AuditRetentionJob) Run(ctx context.Context) error {
	if j.retentionDays <= 0 {
		log.Println("[RETENTION] Audit retention disabled")
		return nil
	}

	cutoff := j.now().UTC().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.audit.Purge(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		log.Printf("🧹 [RETENTION] Deleted %d audit entries older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return nil
}
