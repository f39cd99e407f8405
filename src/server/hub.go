package server

import (
	"net/http"

	"volume-dashboard/src/metrics"
	"volume-dashboard/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			metrics.SetWSClients(len(s.clients))
			// Send current state on connect
			s.stateMutex.RLock()
			if s.snapshot != nil {
				client.send <- s.snapshot
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				metrics.SetWSClients(len(s.clients))
			}

		case snapshot := <-s.broadcast:
			s.UpdateSnapshot(snapshot)

			s.stateMutex.RLock()
			current := s.snapshot
			s.stateMutex.RUnlock()

			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- current:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
					metrics.SetWSClients(len(s.clients))
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateSnapshot replaces the held snapshot. An error-only snapshot (failed
// cycle) keeps the previous rows so the table stays populated while the
// failure message is shown.
func (s *DashboardServer) UpdateSnapshot(snapshot *models.MSnapshot) {
	if snapshot == nil {
		return
	}

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	if snapshot.Error != "" && len(snapshot.TopVolume24h) == 0 {
		merged := *s.snapshot
		merged.Type = "UPDATE"
		merged.GeneratedAt = snapshot.GeneratedAt
		merged.Error = snapshot.Error
		s.snapshot = &merged
		return
	}

	s.snapshot = snapshot
}

// -----------------------------------------------------------------------------

// Broadcast queues a snapshot for state update + fan-out to all clients.
func (s *DashboardServer) Broadcast(snapshot *models.MSnapshot) {
	if snapshot == nil {
		return
	}

	select {
	case s.broadcast <- snapshot:
	default:
		// Queue full: drop the oldest pending snapshot in favor of the new
		// one; clients only ever want the latest table anyway.
		select {
		case <-s.broadcast:
		default:
		}
		s.broadcast <- snapshot
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("failed to upgrade websocket", zap.Error(err))
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MSnapshot, 8),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage serves subscribe commands: the client names a view
// and row count and gets a snapshot trimmed to it.
func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	cmd, err := parseSubscribe(message)
	if err != nil {
		s.Logger.Info("bad client command, disconnecting", zap.Error(err))
		client.conn.Close()
		return
	}
	if cmd == nil {
		return
	}

	s.stateMutex.RLock()
	response := s.viewResponse(cmd)
	s.stateMutex.RUnlock()

	// Non-blocking send; the hub loop prunes slow clients on broadcast
	select {
	case client.send <- response:
	default:
	}
}

// -----------------------------------------------------------------------------

// viewResponse trims the held snapshot to the requested view. Caller holds
// the state read lock.
func (s *DashboardServer) viewResponse(cmd *models.MSubscribeCommand) *models.MSnapshot {
	limit := cmd.Limit
	if limit <= 0 {
		limit = s.Config.Exchange.DefaultLimit
	}
	if limit > s.Config.Exchange.MaxLimit {
		limit = s.Config.Exchange.MaxLimit
	}

	response := &models.MSnapshot{
		Type:                  "INITIAL",
		GeneratedAt:           s.snapshot.GeneratedAt,
		MoversThresholdUsed:   s.snapshot.MoversThresholdUsed,
		MoversThresholdBumped: s.snapshot.MoversThresholdBumped,
		Metrics:               s.snapshot.Metrics,
		Error:                 s.snapshot.Error,
		TopVolume24h:          []models.MMarketRow{},
		TopVolume7d:           []models.MMarketRow{},
		Movers:                []models.MMarketRow{},
	}

	switch cmd.View {
	case "movers":
		response.Movers = truncateRows(s.snapshot.Movers, limit)
	default:
		if cmd.Period == "7d" {
			response.TopVolume7d = truncateRows(s.snapshot.TopVolume7d, limit)
		} else {
			response.TopVolume24h = truncateRows(s.snapshot.TopVolume24h, limit)
		}
	}

	return response
}
