package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"intranet/internal/models"
	"intranet/internal/store"

	cache "github.com/patrickmn/go-cache"
)

// ErrConfigMissing is returned when the config/admin document does not exist
var ErrConfigMissing = errors.New("portal configuration document is missing")

const portalConfigCacheKey = "admin"

// PortalConfigService reads and writes the config/admin document, keeping a
// short-lived cached copy that is dropped on every change of the config collection
type PortalConfigService struct {
	store        store.Store
	cache        *cache.Cache
	staticAdmins []string
}

// NewPortalConfigService creates the service; staticAdmins come from ADMIN_EMAILS
func NewPortalConfigService(s store.Store, staticAdmins []string) *PortalConfigService {
	return &PortalConfigService{
		store:        s,
		cache:        cache.New(30*time.Second, time.Minute),
		staticAdmins: staticAdmins,
	}
}

// Watch drops the cached document whenever the config collection changes
func (s *PortalConfigService) Watch() (unsubscribe func()) {
	return s.store.Subscribe(models.CollectionConfig, func(snap store.Snapshot) {
		if snap.Op != store.OpInitial {
			s.cache.Delete(portalConfigCacheKey)
		}
	})
}

// Get returns the admin configuration document
func (s *PortalConfigService) Get(ctx context.Context) (*models.PortalConfig, error) {
	if cached, found := s.cache.Get(portalConfigCacheKey); found {
		cfg := cached.(models.PortalConfig)
		return &cfg, nil
	}

	record, err := s.store.Get(ctx, models.CollectionConfig, models.PortalConfigID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConfigMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portal config: %w", err)
	}

	var cfg models.PortalConfig
	if err := models.DecodeRecord(record, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode portal config: %w", err)
	}

	s.cache.Set(portalConfigCacheKey, cfg, cache.DefaultExpiration)
	return &cfg, nil
}

// Put validates and replaces the admin configuration document
func (s *PortalConfigService) Put(ctx context.Context, cfg *models.PortalConfig) error {
	cfg.AdminEmails = normalizeEmails(cfg.AdminEmails)
	cfg.SuperAdminEmails = normalizeEmails(cfg.SuperAdminEmails)

	if err := models.Validate(cfg); err != nil {
		return err
	}

	record, err := models.EncodeRecord(cfg)
	if err != nil {
		return err
	}
	if _, err := s.store.Set(ctx, models.CollectionConfig, models.PortalConfigID, record); err != nil {
		return fmt.Errorf("failed to save portal config: %w", err)
	}

	s.cache.Delete(portalConfigCacheKey)
	log.Printf("⚙️  [CONFIG] Portal config updated: %d admins, %d super admins",
		len(cfg.AdminEmails), len(cfg.SuperAdminEmails))
	return nil
}

// IsAdminEmail reports whether email is an admin by ADMIN_EMAILS or the config document
func (s *PortalConfigService) IsAdminEmail(ctx context.Context, email string) bool {
	if containsEmail(s.staticAdmins, email) {
		return true
	}

	cfg, err := s.Get(ctx)
	if err != nil {
		if !errors.Is(err, ErrConfigMissing) {
			log.Printf("⚠️  [CONFIG] Admin lookup failed: %v", err)
		}
		return false
	}
	return containsEmail(cfg.AdminEmails, email)
}

func containsEmail(list []string, email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range list {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}
