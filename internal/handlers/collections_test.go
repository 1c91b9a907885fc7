package handlers

import (
	"context"
	"net/http/httptest"
	"testing"

	"intranet/internal/models"
	"intranet/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

func identity(id, email, role string) auth.Identity {
	return auth.Identity{ID: id, Email: email, Role: role}
}

func TestCollections_AddThenList(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)

	resp := env.do(t, "POST", "/api/collections/labs", admin, map[string]interface{}{
		"title":       "Go basics",
		"description": "Intro course",
		"order":       1,
	})
	expectStatus(t, resp, fiber.StatusCreated)

	var created map[string]interface{}
	decodeJSON(t, resp, &created)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("Expected generated id, got %v", created)
	}

	resp = env.do(t, "GET", "/api/collections/labs", env.userToken(t), nil)
	expectStatus(t, resp, fiber.StatusOK)

	var records []map[string]interface{}
	decodeJSON(t, resp, &records)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got["id"] != id || got["title"] != "Go basics" || got["description"] != "Intro course" || got["order"] != float64(1) {
		t.Errorf("Round trip mismatch: %v", got)
	}
}

func TestCollections_WriteAccess(t *testing.T) {
	env := newTestEnv(t)
	user := env.userToken(t)

	resp := env.do(t, "POST", "/api/collections/news", user, map[string]interface{}{"title": "x", "date": "2025-01-01"})
	expectStatus(t, resp, fiber.StatusForbidden)

	resp = env.do(t, "POST", "/api/collections/workflows", user, map[string]interface{}{"type": "vacation"})
	expectStatus(t, resp, fiber.StatusCreated)

	var created map[string]interface{}
	decodeJSON(t, resp, &created)
	if created["requesterId"] != "user-1" || created["status"] != models.WorkflowPending {
		t.Errorf("Unexpected workflow: %v", created)
	}

	id, _ := created["id"].(string)
	resp = env.do(t, "PATCH", "/api/collections/workflows/"+id, user, map[string]interface{}{"status": "approved"})
	expectStatus(t, resp, fiber.StatusForbidden)
}

func TestCollections_Errors(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown collection", "GET", "/api/collections/users", nil, fiber.StatusNotFound},
		{"missing record", "GET", "/api/collections/news/nope", nil, fiber.StatusNotFound},
		{"invalid payload", "POST", "/api/collections/quickLinks", map[string]interface{}{"label": "x", "url": "nope"}, fiber.StatusBadRequest},
		{"delete missing", "DELETE", "/api/collections/news/nope", nil, fiber.StatusNotFound},
		{"no token", "GET", "/api/collections/news", nil, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := admin
			if tt.name == "no token" {
				token = ""
			}
			resp := env.do(t, tt.method, tt.path, token, tt.body)
			expectStatus(t, resp, tt.want)
		})
	}
}

func TestCollections_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	putRecord(t, env.deps.Store, models.CollectionEvents, "offsite", models.Event{Title: "Offsite"})
	if err := env.deps.Store.Update(context.Background(), models.CollectionEvents, "offsite", map[string]interface{}{"date": "2025-09-01"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	resp := env.do(t, "PATCH", "/api/collections/events/offsite", admin, map[string]interface{}{"location": "Lisbon"})
	expectStatus(t, resp, fiber.StatusOK)

	var updated map[string]interface{}
	decodeJSON(t, resp, &updated)
	if updated["location"] != "Lisbon" || updated["title"] != "Offsite" {
		t.Errorf("Unexpected update result: %v", updated)
	}

	resp = env.do(t, "DELETE", "/api/collections/events/offsite", admin, nil)
	expectStatus(t, resp, fiber.StatusNoContent)
}

func TestCollections_ReadPolicy(t *testing.T) {
	env := newTestEnv(t)
	user := env.userToken(t)
	admin := env.adminToken(t)

	putRecord(t, env.deps.Store, models.CollectionPolls, "p1", models.Poll{
		Question: "Lunch?", Options: []string{"A", "B"}, Active: true,
		Votes: map[string]string{"user-1": "A", "user-2": "B"},
	})
	putRecord(t, env.deps.Store, models.CollectionWorkflows, "w1", models.WorkflowRequest{Type: "vacation", RequesterID: "user-1", Status: "pending"})
	putRecord(t, env.deps.Store, models.CollectionWorkflows, "w2", models.WorkflowRequest{Type: "expense", RequesterID: "user-2", Status: "pending"})
	putRecord(t, env.deps.Store, models.CollectionFabMessages, "user-2", models.FabMessage{UserID: "user-2", Status: models.FabStatusIdle})

	t.Run("poll votes trimmed to the caller", func(t *testing.T) {
		resp := env.do(t, "GET", "/api/collections/polls/p1", user, nil)
		expectStatus(t, resp, fiber.StatusOK)

		var poll models.Poll
		decodeJSON(t, resp, &poll)
		if len(poll.Votes) != 1 || poll.Votes["user-1"] != "A" {
			t.Errorf("Expected only the caller's vote, got %v", poll.Votes)
		}

		resp = env.do(t, "GET", "/api/collections/polls", admin, nil)
		expectStatus(t, resp, fiber.StatusOK)
		var polls []models.Poll
		decodeJSON(t, resp, &polls)
		if len(polls) != 1 || len(polls[0].Votes) != 2 {
			t.Errorf("Expected admins to see every vote, got %+v", polls)
		}
	})

	t.Run("workflows limited to the requester", func(t *testing.T) {
		resp := env.do(t, "GET", "/api/collections/workflows", user, nil)
		expectStatus(t, resp, fiber.StatusOK)

		var records []map[string]interface{}
		decodeJSON(t, resp, &records)
		if len(records) != 1 || records[0]["id"] != "w1" {
			t.Errorf("Expected only w1, got %v", records)
		}

		resp = env.do(t, "GET", "/api/collections/workflows/w2", user, nil)
		expectStatus(t, resp, fiber.StatusNotFound)

		resp = env.do(t, "GET", "/api/collections/workflows", admin, nil)
		expectStatus(t, resp, fiber.StatusOK)
		decodeJSON(t, resp, &records)
		if len(records) != 2 {
			t.Errorf("Expected admins to see 2 workflows, got %d", len(records))
		}
	})

	t.Run("fab messages are admin only", func(t *testing.T) {
		resp := env.do(t, "GET", "/api/collections/idleFabMessages", user, nil)
		expectStatus(t, resp, fiber.StatusForbidden)

		resp = env.do(t, "GET", "/api/collections/idleFabMessages/user-2", user, nil)
		expectStatus(t, resp, fiber.StatusForbidden)

		resp = env.do(t, "GET", "/api/collections/idleFabMessages", admin, nil)
		expectStatus(t, resp, fiber.StatusOK)
	})

	t.Run("websocket subscription to fab messages is admin only", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ws/collections/idleFabMessages?token="+user, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		req.Header.Set("Sec-WebSocket-Version", "13")
		req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

		resp, err := env.app.Test(req, 10000)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		expectStatus(t, resp, fiber.StatusForbidden)
	})
}
