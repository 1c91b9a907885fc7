package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"intranet/internal/store"

	"github.com/redis/go-redis/v9"
)

const collectionChannelPrefix = "portal:collections:"

// PubSubService relays store changes between server instances over Redis.
// It implements store.Relay.
type PubSubService struct {
	redis      *RedisService
	pubsub     *redis.PubSub
	instanceID string

	mu   sync.RWMutex
	hubs []*store.Hub

	ctx    context.Context
	cancel context.CancelFunc
}

// CollectionChange is the message published for every local write
type CollectionChange struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	RecordID   string    `json:"recordId,omitempty"`
	InstanceID string    `json:"instanceId"`
	At         time.Time `json:"at"`
}

// NewPubSubService creates a new pub/sub relay
func NewPubSubService(redisService *RedisService, instanceID string) *PubSubService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PubSubService{
		redis:      redisService,
		instanceID: instanceID,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// CollectionChannel returns the Redis channel carrying changes of a collection
func CollectionChannel(collection string) string {
	return collectionChannelPrefix + collection
}

// Attach makes hub announce its writes through this relay and receive remote ones
func (s *PubSubService) Attach(hub *store.Hub) {
	s.mu.Lock()
	s.hubs = append(s.hubs, hub)
	s.mu.Unlock()

	hub.SetRelay(s)
}

// Announce implements store.Relay
func (s *PubSubService) Announce(ctx context.Context, collection, op, id string) error {
	data, err := json.Marshal(&CollectionChange{
		Collection: collection,
		Op:         op,
		RecordID:   id,
		InstanceID: s.instanceID,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	return s.redis.Publish(ctx, CollectionChannel(collection), data)
}

// Start begins listening for changes from other instances
func (s *PubSubService) Start() error {
	s.pubsub = s.redis.PSubscribe(s.ctx, collectionChannelPrefix+"*")

	if _, err := s.pubsub.Receive(s.ctx); err != nil {
		return fmt.Errorf("failed to subscribe to collection changes: %w", err)
	}

	go s.processMessages()

	log.Printf("✅ [PUBSUB] Started listening for collection changes (instance: %s)", s.instanceID)
	return nil
}

func (s *PubSubService) processMessages() {
	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleMessage(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (s *PubSubService) handleMessage(channel string, payload []byte) {
	var change CollectionChange
	if err := json.Unmarshal(payload, &change); err != nil {
		log.Printf("⚠️ [PUBSUB] Failed to unmarshal message: %v", err)
		return
	}

	// Our own writes were already published locally
	if change.InstanceID == s.instanceID {
		return
	}

	collection := strings.TrimPrefix(channel, collectionChannelPrefix)
	if change.Collection != "" {
		collection = change.Collection
	}

	s.mu.RLock()
	hubs := append([]*store.Hub(nil), s.hubs...)
	s.mu.RUnlock()

	for _, hub := range hubs {
		hub.Refresh(s.ctx, collection, store.OpRemote)
	}
}

// Stop stops the pub/sub relay
func (s *PubSubService) Stop() error {
	s.cancel()
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
