package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"intranet/internal/config"
	"intranet/internal/middleware"
	"intranet/internal/models"
	"intranet/internal/services"
	"intranet/internal/store"
	"intranet/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

type testEnv struct {
	app  *fiber.App
	deps *Dependencies
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })

	tokens, err := auth.NewTokenService("handlers-test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token service: %v", err)
	}

	settings, err := config.NewSettingsHolder("")
	if err != nil {
		t.Fatalf("Failed to create settings: %v", err)
	}

	cfg := &config.Config{
		Environment:          "testing",
		RSSMaxItems:          20,
		RSSFetchTimeout:      5 * time.Second,
		RSSCacheTTL:          time.Minute,
		RSSMaxConcurrency:    4,
		RSSMaxBodyBytes:      1 << 20,
		RSSAllowPrivateHosts: true,
		RSSRespectRobots:     false,
	}

	locker := services.NewKeyedMutex()
	portalConfig := services.NewPortalConfigService(s, nil)
	audit := services.NewAuditService(s)
	collections := services.NewCollectionService(s)

	limits := middleware.DefaultRateLimitConfig()
	limits.GlobalAPIMax = 10000
	limits.PublicReadMax = 10000
	limits.AuthenticatedMax = 10000

	deps := &Dependencies{
		Config:       cfg,
		Settings:     settings,
		Store:        s,
		Tokens:       tokens,
		RateLimits:   limits,
		PortalConfig: portalConfig,
		Users:        services.NewUserService(s, tokens, portalConfig),
		Collections:  collections,
		Fab:          services.NewFabService(s, locker),
		Feeds:        services.NewFeedService(cfg),
		Billing:      services.NewBillingService(portalConfig, audit, "test-project"),
		Audit:        audit,
		Polls:        services.NewPollService(s, locker),
		Workflows:    services.NewWorkflowService(s, locker),
		Content:      services.NewContentService(s),
		Export:       services.NewExportService(s),
	}

	app := fiber.New()
	RegisterRoutes(app, deps)
	return &testEnv{app: app, deps: deps}
}

func (e *testEnv) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	pair, err := e.deps.Tokens.Issue(id)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return pair.AccessToken
}

func (e *testEnv) userToken(t *testing.T) string {
	return e.token(t, auth.Identity{ID: "user-1", Email: "user@example.com", Role: "user"})
}

func (e *testEnv) adminToken(t *testing.T) string {
	return e.token(t, auth.Identity{ID: "admin-1", Email: "admin@example.com", Role: "admin"})
}

// do sends a request with an optional bearer token and JSON body
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, 10000)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func putRecord(t *testing.T, s store.Store, collection, id string, v interface{}) {
	t.Helper()
	record, err := models.EncodeRecord(v)
	if err != nil {
		t.Fatalf("Failed to encode record: %v", err)
	}
	delete(record, "id")
	if _, err := s.Set(context.Background(), collection, id, record); err != nil {
		t.Fatalf("Failed to store record: %v", err)
	}
}
