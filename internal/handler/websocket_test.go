package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/events"
	"github.com/vyrodovalexey/catalog-service/internal/model"
)

func newTestWebSocketServer(t *testing.T) (*WebSocketHandler, *events.Broker, string) {
	t.Helper()

	broker := events.NewBroker(events.DefaultBufferSize, zap.NewNop())
	handler := NewWebSocketHandler(broker, zap.NewNop())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(func() {
		handler.CloseAllConnections()
		server.Close()
	})

	return handler, broker, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewWebSocketHandler(t *testing.T) {
	// Arrange
	broker := events.NewBroker(1, zap.NewNop())

	// Act
	handler := NewWebSocketHandler(broker, zap.NewNop())

	// Assert
	if handler == nil {
		t.Fatal("NewWebSocketHandler() returned nil")
	}
	if handler.clients == nil {
		t.Error("clients map should be initialized")
	}
	if handler.source == nil {
		t.Error("source should not be nil")
	}
}

func TestWebSocketHandler_RegisterRoutes(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(events.NewBroker(1, zap.NewNop()), zap.NewNop())
	router := mux.NewRouter()

	// Act
	handler.RegisterRoutes(router)

	// Assert - upgrade fails on a plain request but the route exists
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code == http.StatusNotFound {
		t.Error("Route /ws not found")
	}
}

func TestWebSocketHandler_StreamsEvents(t *testing.T) {
	// Arrange
	handler, broker, wsURL := newTestWebSocketServer(t)
	conn := dial(t, wsURL)
	waitFor(t, "subscription", func() bool { return broker.Subscribers() == 1 && handler.Clients() == 1 })

	// Act
	broker.Publish(model.NewItemEvent(model.EventItemCreated, model.Item{ID: 6, Name: "Tablet"}))
	broker.Publish(model.NewItemDeletedEvent(3))

	// Assert
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var created model.ItemEvent
	if err := conn.ReadJSON(&created); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if created.Type != model.EventItemCreated || created.ItemID != 6 {
		t.Errorf("event = %+v, want item.created for 6", created)
	}
	if created.Item == nil || created.Item.Name != "Tablet" {
		t.Errorf("event item = %+v, want Tablet", created.Item)
	}

	var deleted model.ItemEvent
	if err := conn.ReadJSON(&deleted); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if deleted.Type != model.EventItemDeleted || deleted.ItemID != 3 || deleted.Item != nil {
		t.Errorf("event = %+v, want item.deleted for 3", deleted)
	}
}

func TestWebSocketHandler_MultipleClients(t *testing.T) {
	// Arrange
	handler, broker, wsURL := newTestWebSocketServer(t)
	conns := []*websocket.Conn{dial(t, wsURL), dial(t, wsURL), dial(t, wsURL)}
	waitFor(t, "subscriptions", func() bool { return broker.Subscribers() == len(conns) })

	// Act
	broker.Publish(model.NewItemEvent(model.EventItemStockUpdated, model.Item{ID: 1, Stock: 3}))

	// Assert
	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event model.ItemEvent
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("client %d: ReadJSON() error = %v", i, err)
		}
		if event.Type != model.EventItemStockUpdated {
			t.Errorf("client %d: type = %s, want %s", i, event.Type, model.EventItemStockUpdated)
		}
	}
	if handler.Clients() != len(conns) {
		t.Errorf("Clients() = %d, want %d", handler.Clients(), len(conns))
	}
}

func TestWebSocketHandler_ClientDisconnectUnsubscribes(t *testing.T) {
	// Arrange
	handler, broker, wsURL := newTestWebSocketServer(t)
	conn := dial(t, wsURL)
	waitFor(t, "subscription", func() bool { return broker.Subscribers() == 1 })

	// Act
	_ = conn.Close()

	// Assert
	waitFor(t, "unsubscribe", func() bool { return broker.Subscribers() == 0 && handler.Clients() == 0 })
}

func TestWebSocketHandler_ClientSendsMessage(t *testing.T) {
	// Arrange
	handler, broker, wsURL := newTestWebSocketServer(t)
	conn := dial(t, wsURL)
	waitFor(t, "subscription", func() bool { return broker.Subscribers() == 1 })

	// Act
	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	broker.Publish(model.NewItemDeletedEvent(1))

	// Assert - inbound messages are ignored and the feed keeps flowing
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event model.ItemEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if handler.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", handler.Clients())
	}
}

func TestWebSocketHandler_CloseAllConnections(t *testing.T) {
	// Arrange
	handler, broker, wsURL := newTestWebSocketServer(t)
	conns := []*websocket.Conn{dial(t, wsURL), dial(t, wsURL)}
	waitFor(t, "subscriptions", func() bool { return broker.Subscribers() == len(conns) })

	// Act
	handler.CloseAllConnections()

	// Assert
	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, _, err := conn.ReadMessage()
		if err == nil {
			t.Errorf("client %d: connection should be closed", i)
		}
	}
	if handler.Clients() != 0 {
		t.Errorf("Clients() = %d, want 0", handler.Clients())
	}
	if broker.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", broker.Subscribers())
	}
}

func TestWebSocketHandler_BrokerCloseEndsStream(t *testing.T) {
	// Arrange
	_, broker, wsURL := newTestWebSocketServer(t)
	conn := dial(t, wsURL)
	waitFor(t, "subscription", func() bool { return broker.Subscribers() == 1 })

	// Act
	broker.Close()

	// Assert
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage() error = %v, want normal closure", err)
	}
}

func TestWebSocketHandler_CloseAllConnections_Empty(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(events.NewBroker(1, zap.NewNop()), zap.NewNop())

	// Act - no clients connected
	handler.CloseAllConnections()

	// Assert
	if handler.Clients() != 0 {
		t.Errorf("Clients() = %d, want 0", handler.Clients())
	}
}

func TestWebSocketHandler_InvalidUpgrade(t *testing.T) {
	// Arrange
	broker := events.NewBroker(1, zap.NewNop())
	handler := NewWebSocketHandler(broker, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rr := httptest.NewRecorder()

	// Act
	handler.HandleWebSocket(rr, req)

	// Assert
	if rr.Code == http.StatusSwitchingProtocols {
		t.Error("Should not upgrade non-WebSocket request")
	}
	if broker.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0 after failed upgrade", broker.Subscribers())
	}
}

func TestWebSocketConstants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod (%v) must be shorter than pongWait (%v)", pingPeriod, pongWait)
	}
	if writeWait <= 0 || maxMessageSize <= 0 {
		t.Error("writeWait and maxMessageSize must be positive")
	}
}
