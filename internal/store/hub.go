package store

import (
	"context"
	"log"
	"sync"
	"time"
)

// Lister returns the current content of a collection
type Lister func(ctx context.Context, collection string) ([]Record, error)

// Relay announces local changes to other instances
type Relay interface {
	Announce(ctx context.Context, collection, op, id string) error
}

// Hub is the change feed shared by all backends. Snapshot sequence numbers are
// assigned while holding the collection lock, so snapshots are produced in
// write order and never regress for a subscriber.
type Hub struct {
	list Lister

	mu     sync.Mutex
	topics map[string]*topic
	relay  Relay
	nextID uint64
}

type topic struct {
	mu   sync.Mutex
	seq  uint64
	subs map[uint64]*subscriber
}

// subscriber holds at most one pending snapshot; newer snapshots replace it
type subscriber struct {
	onChange func(Snapshot)

	mu       sync.Mutex
	pending  *Snapshot
	lastSeq  uint64
	signal   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub that reads collections through list
func NewHub(list Lister) *Hub {
	return &Hub{
		list:   list,
		topics: make(map[string]*topic),
	}
}

// SetRelay installs the cross-instance relay
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = relay
}

func (h *Hub) topic(collection string) *topic {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[collection]
	if !ok {
		t = &topic{subs: make(map[uint64]*subscriber)}
		h.topics[collection] = t
	}
	return t
}

// Subscribe registers onChange for a collection and queues the current snapshot
func (h *Hub) Subscribe(collection string, onChange func(Snapshot)) func() {
	sub := &subscriber{
		onChange: onChange,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.mu.Unlock()

	t := h.topic(collection)

	t.mu.Lock()
	t.subs[id] = sub
	records, err := h.list(context.Background(), collection)
	if err != nil {
		log.Printf("⚠️  [STORE] Initial snapshot of %s failed: %v", collection, err)
	} else {
		sub.offer(&Snapshot{Collection: collection, Records: records, Seq: t.seq, Op: OpInitial, At: time.Now().UTC()})
	}
	t.mu.Unlock()

	go sub.run()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
		sub.stop()
	}
}

// Notify is called by backends after a successful local write
func (h *Hub) Notify(ctx context.Context, collection, op, id string) {
	h.mu.Lock()
	relay := h.relay
	h.mu.Unlock()

	if relay != nil {
		if err := relay.Announce(ctx, collection, op, id); err != nil {
			log.Printf("⚠️  [STORE] Failed to announce %s on %s: %v", op, collection, err)
		}
	}
	h.publish(ctx, collection, op, id)
}

// Refresh re-reads a collection changed elsewhere (another instance or an
// external file edit) and notifies local subscribers without relaying.
func (h *Hub) Refresh(ctx context.Context, collection, op string) {
	h.publish(ctx, collection, op, "")
}

func (h *Hub) publish(ctx context.Context, collection, op, id string) {
	t := h.topic(collection)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	if len(t.subs) == 0 {
		return
	}

	records, err := h.list(context.WithoutCancel(ctx), collection)
	if err != nil {
		log.Printf("⚠️  [STORE] Snapshot of %s after %s failed: %v", collection, op, err)
		return
	}

	snap := &Snapshot{Collection: collection, Records: records, Seq: t.seq, Op: op, ID: id, At: time.Now().UTC()}
	for _, sub := range t.subs {
		sub.offer(snap)
	}
}

// Seq returns the current sequence number of a collection
func (h *Hub) Seq(collection string) uint64 {
	t := h.topic(collection)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// SubscriberCount returns the number of live subscriptions on a collection
func (h *Hub) SubscriberCount(collection string) int {
	t := h.topic(collection)
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close cancels every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	topics := make([]*topic, 0, len(h.topics))
	for _, t := range h.topics {
		topics = append(topics, t)
	}
	h.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		for id, sub := range t.subs {
			sub.stop()
			delete(t.subs, id)
		}
		t.mu.Unlock()
	}
}

func (s *subscriber) offer(snap *Snapshot) {
	s.mu.Lock()
	if s.pending == nil || snap.Seq >= s.pending.Seq {
		s.pending = snap
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		s.mu.Lock()
		snap := s.pending
		s.pending = nil
		if snap != nil && snap.Seq < s.lastSeq {
			snap = nil
		}
		if snap != nil {
			s.lastSeq = snap.Seq
		}
		s.mu.Unlock()

		if snap == nil {
			continue
		}

		select {
		case <-s.done:
			return
		default:
		}
		s.deliver(*snap)
	}
}

func (s *subscriber) deliver(snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [STORE] Subscriber for %s panicked: %v", snap.Collection, r)
		}
	}()
	s.onChange(snap)
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
