package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "RSS_MAX_ITEMS", "ADMIN_EMAILS", "SCANNER_PATH_PREFIXES"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "3001" {
		t.Errorf("Expected default port 3001, got %s", cfg.Port)
	}
	if cfg.StoreBackend != "local" {
		t.Errorf("Expected local backend, got %s", cfg.StoreBackend)
	}
	if cfg.RSSMaxItems != 20 {
		t.Errorf("Expected 20 RSS items, got %d", cfg.RSSMaxItems)
	}
	if len(cfg.ScannerPathPrefixes) != 1 || cfg.ScannerPathPrefixes[0] != "/api/" {
		t.Errorf("Unexpected scanner prefixes: %v", cfg.ScannerPathPrefixes)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Mongo")
	t.Setenv("ADMIN_EMAILS", " Ana@Corp.example , ,bob@corp.example")
	t.Setenv("RSS_FETCH_TIMEOUT", "3s")
	t.Setenv("RSS_ALLOW_PRIVATE_HOSTS", "true")
	t.Setenv("RSS_MAX_ITEMS", "not-a-number")

	cfg := Load()

	if cfg.StoreBackend != "mongo" {
		t.Errorf("Expected mongo backend, got %s", cfg.StoreBackend)
	}
	if len(cfg.AdminEmails) != 2 {
		t.Fatalf("Expected 2 admin emails, got %v", cfg.AdminEmails)
	}
	if !cfg.IsAdminEmail("ana@corp.example") || !cfg.IsAdminEmail("BOB@corp.example") {
		t.Error("Expected admin emails to match case-insensitively")
	}
	if cfg.IsAdminEmail("eve@corp.example") {
		t.Error("Unexpected admin match")
	}
	if cfg.RSSFetchTimeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %v", cfg.RSSFetchTimeout)
	}
	if !cfg.RSSAllowPrivateHosts {
		t.Error("Expected private hosts to be allowed")
	}
	if cfg.RSSMaxItems != 20 {
		t.Errorf("Invalid int should fall back to default, got %d", cfg.RSSMaxItems)
	}
}

const sampleSettings = `
embeds:
  powerBiReportUrl: https://app.powerbi.com/view?r=abc
  tradingViewSymbols: [BMFBOVESPA:IBOV, FX:USDBRL]
  chatbotUrl: https://chat.example/embed
feeds:
  - https://news.example/rss
seed:
  quickLinks:
    - label: Payroll
      url: https://payroll.example
      order: 1
`

func TestParseSettings(t *testing.T) {
	settings, err := ParseSettings([]byte(sampleSettings))
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}

	if settings.Embeds.PowerBIReportURL != "https://app.powerbi.com/view?r=abc" {
		t.Errorf("Unexpected Power BI URL: %s", settings.Embeds.PowerBIReportURL)
	}
	if len(settings.Embeds.TradingViewSymbols) != 2 {
		t.Errorf("Expected 2 symbols, got %v", settings.Embeds.TradingViewSymbols)
	}
	if len(settings.Feeds) != 1 {
		t.Errorf("Expected 1 feed, got %v", settings.Feeds)
	}

	links := settings.Seed["quickLinks"]
	if len(links) != 1 || links[0]["label"] != "Payroll" {
		t.Errorf("Unexpected seed: %v", settings.Seed)
	}
}

func TestSettingsHolder_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	if err := os.WriteFile(path, []byte(sampleSettings), 0o644); err != nil {
		t.Fatal(err)
	}

	holder, err := NewSettingsHolder(path)
	if err != nil {
		t.Fatalf("NewSettingsHolder: %v", err)
	}

	var notified *PortalSettings
	holder.OnChange(func(s *PortalSettings) { notified = s })

	if err := os.WriteFile(path, []byte("feeds: [https://a.example/rss, https://b.example/rss]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := holder.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got := len(holder.Get().Feeds); got != 2 {
		t.Errorf("Expected 2 feeds after reload, got %d", got)
	}
	if notified == nil || len(notified.Feeds) != 2 {
		t.Error("Expected listener to receive reloaded settings")
	}

	if err := os.WriteFile(path, []byte("feeds: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := holder.Reload(); err == nil {
		t.Error("Expected parse error")
	}
	if got := len(holder.Get().Feeds); got != 2 {
		t.Errorf("Previous settings should survive a failed reload, got %d feeds", got)
	}
}

func TestLoadSettings_EmptyPath(t *testing.T) {
	settings, err := LoadSettings("")
	if err != nil || settings == nil {
		t.Fatalf("Expected empty settings, got %v, %v", settings, err)
	}
}
