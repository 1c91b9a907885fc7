package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// EmbedSettings configures the third-party dashboards shown in the portal
type EmbedSettings struct {
	PowerBIReportURL    string   `yaml:"powerBiReportUrl" json:"powerBiReportUrl"`
	TradingViewSymbols  []string `yaml:"tradingViewSymbols" json:"tradingViewSymbols"`
	GoogleCalendarID    string   `yaml:"googleCalendarId" json:"googleCalendarId"`
	GoogleDriveFolderID string   `yaml:"googleDriveFolderId" json:"googleDriveFolderId"`
	ChatbotURL          string   `yaml:"chatbotUrl" json:"chatbotUrl"`
	CRMURL              string   `yaml:"crmUrl" json:"crmUrl"`
}

// PortalSettings is the YAML file referenced by PORTAL_SETTINGS_FILE
type PortalSettings struct {
	Embeds EmbedSettings `yaml:"embeds" json:"embeds"`

	// Feeds are the default RSS feeds shown on the home page
	Feeds []string `yaml:"feeds" json:"feeds"`

	// Seed maps collection name to records inserted when the collection is empty
	Seed map[string][]map[string]interface{} `yaml:"seed" json:"-"`
}

// ParseSettings decodes portal settings YAML
func ParseSettings(data []byte) (*PortalSettings, error) {
	var settings PortalSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse portal settings: %w", err)
	}
	return &settings, nil
}

// LoadSettings reads portal settings from a YAML file. An empty path yields empty settings.
func LoadSettings(path string) (*PortalSettings, error) {
	if path == "" {
		return &PortalSettings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portal settings: %w", err)
	}
	return ParseSettings(data)
}

// SettingsHolder keeps the current portal settings and reloads them when the file changes
type SettingsHolder struct {
	mu        sync.RWMutex
	path      string
	current   *PortalSettings
	listeners []func(*PortalSettings)
}

// NewSettingsHolder loads the settings file once
func NewSettingsHolder(path string) (*SettingsHolder, error) {
	settings, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	return &SettingsHolder{path: path, current: settings}, nil
}

// Get returns the current settings
func (h *SettingsHolder) Get() *PortalSettings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnChange registers a callback invoked after every successful reload
func (h *SettingsHolder) OnChange(fn func(*PortalSettings)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload re-reads the settings file. The previous settings stay in place on error.
func (h *SettingsHolder) Reload() error {
	settings, err := LoadSettings(h.path)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.current = settings
	listeners := append([]func(*PortalSettings){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(settings)
	}
	return nil
}

// Watch reloads the settings whenever the file is written, until ctx is done.
func (h *SettingsHolder) Watch(ctx context.Context) error {
	if h.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(h.path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to resolve %s: %w", h.path, err)
	}

	// Watching the directory survives editors that replace the file
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	log.Printf("👁️  [SETTINGS] Watching %s for changes", h.path)

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		filename := filepath.Base(absPath)

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := h.Reload(); err != nil {
						log.Printf("❌ [SETTINGS] Reload failed: %v", err)
						return
					}
					log.Printf("🔄 [SETTINGS] Reloaded %s", h.path)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  [SETTINGS] Watcher error: %v", err)
			}
		}
	}()

	return nil
}
