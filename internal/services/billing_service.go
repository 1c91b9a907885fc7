package services

import (
	"context"
	"errors"
	"log"
	"time"

	"intranet/internal/models"
	"intranet/pkg/auth"
)

// ErrNotSuperAdmin is returned when the caller is not on the super-admin allowlist
var ErrNotSuperAdmin = errors.New("caller is not a super admin")

// BillingService serves the cloud billing summary to super admins.
// The figures are static; no billing provider is queried.
type BillingService struct {
	config    *PortalConfigService
	audit     *AuditService
	projectID string
	now       func() time.Time
}

// NewBillingService creates a new billing service
func NewBillingService(cfg *PortalConfigService, audit *AuditService, projectID string) *BillingService {
	if projectID == "" {
		projectID = "intranet-portal"
	}
	return &BillingService{
		config:    cfg,
		audit:     audit,
		projectID: projectID,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Summary checks the caller against config/admin superAdminEmails and returns
// the billing summary of the current month
func (s *BillingService) Summary(ctx context.Context, caller *auth.Identity) (*models.BillingSummary, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	if !containsEmail(cfg.SuperAdminEmails, caller.Email) {
		log.Printf("🚫 [BILLING] Denied billing access for %s", caller.Email)
		return nil, ErrNotSuperAdmin
	}

	summary := s.mockSummary()
	log.Printf("💳 [BILLING] Billing summary served to %s (user %s)", caller.Email, caller.ID)

	if s.audit != nil {
		if _, err := s.audit.Record(ctx, models.AuditBillingAccess, caller.ID, map[string]interface{}{
			"email":  caller.Email,
			"period": summary.PeriodStart.Format("2006-01"),
		}); err != nil {
			log.Printf("⚠️  [BILLING] Failed to audit billing access: %v", err)
		}
	}
	return summary, nil
}

func (s *BillingService) mockSummary() *models.BillingSummary {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	services := []models.BillingLine{
		{Service: "Cloud Firestore", Cost: 42.17},
		{Service: "Cloud Storage", Cost: 12.80},
		{Service: "Cloud Functions", Cost: 8.35},
		{Service: "Hosting", Cost: 3.10},
	}
	var total float64
	for _, line := range services {
		total += line.Cost
	}

	return &models.BillingSummary{
		ProjectID:   s.projectID,
		Currency:    "USD",
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0).Add(-time.Second),
		TotalCost:   total,
		Services:    services,
		GeneratedAt: now,
		Source:      "mock",
	}
}
