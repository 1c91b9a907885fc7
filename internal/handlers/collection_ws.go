package handlers

import (
	"log"
	"sync"
	"time"

	"intranet/internal/models"
	"intranet/internal/services"
	"intranet/internal/store"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CollectionWSHandler streams collection snapshots over WebSocket
type CollectionWSHandler struct {
	store        store.Store
	portalConfig *services.PortalConfigService
}

// NewCollectionWSHandler creates a new collection subscription handler
func NewCollectionWSHandler(s store.Store, portalConfig *services.PortalConfigService) *CollectionWSHandler {
	return &CollectionWSHandler{store: s, portalConfig: portalConfig}
}

// ServerMessage is a message sent to subscribers
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Upgrade rejects non-WebSocket requests, unknown collections and callers
// who may not read the collection before the upgrade
func (h *CollectionWSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	def, ok := models.LookupCollection(c.Params("name"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown collection"})
	}
	viewer := callerViewer(c, h.portalConfig)
	if !services.CanRead(def, viewer) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}
	c.Locals("viewer_admin", viewer.Admin)
	c.Locals("allowed", true)
	return c.Next()
}

// Handle is the WebSocket handler for /ws/collections/:name
func (h *CollectionWSHandler) Handle(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		log.Printf("[COLLECTION-WS] Connection rejected: missing user_id")
		c.WriteJSON(ServerMessage{Type: "error", Data: map[string]string{"message": "unauthorized"}})
		return
	}

	collection := c.Params("name")
	def, _ := models.LookupCollection(collection)
	admin, _ := c.Locals("viewer_admin").(bool)
	viewer := services.Viewer{ID: userID, Admin: admin}
	connID := uuid.New().String()
	log.Printf("🔌 [COLLECTION-WS] %s subscribed to %s (user: %s)", connID, collection, userID)

	metrics := services.GetMetrics()
	metrics.RecordWebSocketConnect()

	writeChan := make(chan ServerMessage, 16)
	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(done) }) }

	// Serializes snapshot writes and protocol pings
	var writeMu sync.Mutex

	go func() {
		defer closeDone()
		for {
			select {
			case <-done:
				return
			case msg := <-writeChan:
				writeMu.Lock()
				err := c.WriteJSON(msg)
				writeMu.Unlock()
				if err != nil {
					log.Printf("[COLLECTION-WS] Write error for %s: %v", connID, err)
					return
				}
				metrics.RecordWebSocketMessage(msg.Type, "outbound")
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				writeMu.Lock()
				err := c.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	unsubscribe := h.store.Subscribe(collection, func(snap store.Snapshot) {
		snap.Records = services.VisibleRecords(def, snap.Records, viewer)
		select {
		case writeChan <- ServerMessage{Type: "snapshot", Data: snap}:
		case <-done:
		}
	})

	defer func() {
		unsubscribe()
		closeDone()
		metrics.RecordWebSocketDisconnect()
		log.Printf("🔌 [COLLECTION-WS] %s closed", connID)
	}()

	// Reads only detect the close; clients do not send commands
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[COLLECTION-WS] Read error for %s: %v", connID, err)
			}
			return
		}
		metrics.RecordWebSocketMessage("client", "inbound")
	}
}
