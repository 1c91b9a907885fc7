package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"intranet/internal/store"
)

func changePayload(t *testing.T, change CollectionChange) []byte {
	t.Helper()
	data, err := json.Marshal(change)
	if err != nil {
		t.Fatalf("Failed to encode change: %v", err)
	}
	return data
}

func TestPubSubService_HandleMessage(t *testing.T) {
	hub := store.NewHub(func(ctx context.Context, collection string) ([]store.Record, error) {
		return []store.Record{{"id": "n1", "title": "Hello"}}, nil
	})
	defer hub.Close()

	svc := NewPubSubService(nil, "instance-a")
	defer svc.cancel()
	svc.Attach(hub)

	ops := make(chan string, 8)
	unsubscribe := hub.Subscribe("news", func(snap store.Snapshot) {
		ops <- snap.Op
	})
	defer unsubscribe()

	select {
	case op := <-ops:
		if op != store.OpInitial {
			t.Fatalf("Expected initial snapshot, got %s", op)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the initial snapshot")
	}

	tests := []struct {
		name    string
		channel string
		payload []byte
		bumps   bool
	}{
		{
			name:    "own announcement is ignored",
			channel: CollectionChannel("news"),
			payload: changePayload(t, CollectionChange{Collection: "news", Op: "add", InstanceID: "instance-a"}),
		},
		{
			name:    "malformed payload is ignored",
			channel: CollectionChannel("news"),
			payload: []byte("{not json"),
		},
		{
			name:    "remote change refreshes",
			channel: CollectionChannel("news"),
			payload: changePayload(t, CollectionChange{Collection: "news", Op: "update", RecordID: "n1", InstanceID: "instance-b"}),
			bumps:   true,
		},
		{
			name:    "collection taken from channel",
			channel: CollectionChannel("news"),
			payload: changePayload(t, CollectionChange{Op: "delete", InstanceID: "instance-b"}),
			bumps:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := hub.Seq("news")
			svc.handleMessage(tt.channel, tt.payload)
			after := hub.Seq("news")

			if !tt.bumps {
				if after != before {
					t.Errorf("Expected seq to stay at %d, got %d", before, after)
				}
				return
			}
			if after != before+1 {
				t.Fatalf("Expected seq %d, got %d", before+1, after)
			}
			select {
			case op := <-ops:
				if op != store.OpRemote {
					t.Errorf("Expected op %s, got %s", store.OpRemote, op)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Timed out waiting for the remote snapshot")
			}
		})
	}
}

func TestCollectionChannel(t *testing.T) {
	if got := CollectionChannel("polls"); got != "portal:collections:polls" {
		t.Errorf("Expected portal:collections:polls, got %s", got)
	}
}
