package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pagecraft/builder-core/internal/auth"
	"github.com/pagecraft/builder-core/internal/infrastructure/config"
	"github.com/pagecraft/builder-core/internal/profile"
	"github.com/pagecraft/builder-core/internal/realtime"
	"github.com/pagecraft/builder-core/internal/template"
)

// Realtime message types.
const (
	WSTypeUpdateTemplateData = "update_template_data"

	// wsSendBufferSize is the per-client outbound message buffer size,
	// used when config leaves send_buffer_size unset.
	wsSendBufferSize = 256
)

// Exact response strings for update results. Clients match on these.
const (
	wsUpdateSuccess      = `{"success": "Template updated successfully."}`
	wsErrDataRequired    = `{"error": "Data is required to update the template."}`
	wsErrNoPermission    = `{"error": "You do not have permission to update this template."}`
	wsErrTemplateMissing = `{"error": "Template not found."}`
)

// realtimeMessage is an inbound client message on the realtime channel.
// templateId arrives as either a JSON string or a bare number, so it is
// kept raw and normalized on use.
type realtimeMessage struct {
	Type         string          `json:"type"`
	TemplateID   json.RawMessage `json:"templateId"`
	TemplateData json.RawMessage `json:"templateData"`
}

// templateID returns the templateId field as a string, whatever JSON type
// the client sent it as.
func (m realtimeMessage) templateID() string {
	raw := bytes.TrimSpace(m.TemplateID)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// wsClient is one realtime connection. It implements realtime.Transport
// so the session registry can close it on supersession or shutdown.
type wsClient struct {
	server *Server
	conn   *websocket.Conn
	connID string
	user   *auth.User
	send   chan []byte

	closeOnce sync.Once
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// ConnID returns the connection's unique identifier.
func (c *wsClient) ConnID() string {
	return c.connID
}

// Close tears the connection down. Safe to call more than once; the
// registry calls it when a newer handshake supersedes this session.
func (c *wsClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.send)
	})
	return c.conn.Close()
}

// handleRealtime upgrades the HTTP connection to a realtime WebSocket
// session. Identity comes from the user_id path segment, verified against
// the store before the upgrade so an unknown user gets a plain 404.
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("resolving realtime user failed", "user_id", userID, "error", err)
		writeInternalError(w, "failed to open realtime session")
		return
	}

	// Presence lives on the profile, so a user row without one cannot
	// hold a session.
	if _, err := s.profiles.GetByUserID(r.Context(), userID); err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("resolving realtime profile failed", "user_id", userID, "error", err)
		writeInternalError(w, "failed to open realtime session")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	bufSize := s.wsCfg.SendBufferSize
	if bufSize <= 0 {
		bufSize = wsSendBufferSize
	}

	client := &wsClient{
		server: s,
		conn:   conn,
		connID: "conn-" + uuid.NewString()[:8],
		user:   user,
		send:   make(chan []byte, bufSize),
	}

	if err := s.sessions.Register(r.Context(), user.ID, client); err != nil {
		// Reject policy, or the profile vanished between the handshake
		// check and registration.
		s.logger.Info("realtime session refused", "user_id", user.ID, "error", err)
		reason := "session already active"
		if errors.Is(err, realtime.ErrUnknownUser) {
			reason = "unknown user"
		}
		//nolint:errcheck // Best-effort close message before teardown
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
		client.Close() //nolint:errcheck // connection is being discarded
		return
	}

	s.logger.Info("realtime session opened", "user_id", user.ID, "conn_id", client.connID)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection and processes
// them one at a time. Serial processing per connection plus the
// coordinator's per-template lock gives a single-writer guarantee.
func (c *wsClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		// ErrNotActive means a newer connection superseded this one; its
		// deregistration is not ours to perform.
		err := c.server.sessions.Deregister(context.Background(), c.user.ID, c.connID)
		if err != nil && !errors.Is(err, realtime.ErrNotActive) {
			c.server.logger.Debug("deregister on close", "user_id", c.user.ID, "error", err)
		}
		c.Close() //nolint:errcheck // teardown path
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Warn("websocket read error", "user_id", c.user.ID, "error", err)
			} else {
				c.server.logger.Debug("websocket closed", "user_id", c.user.ID, "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes queued messages to the WebSocket connection and keeps
// it alive with protocol-level pings.
func (c *wsClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Close() shut the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches an inbound message. Only update_template_data
// triggers any action; every other type, and unparseable input, is
// silently ignored.
func (c *wsClient) handleMessage(data []byte) {
	var msg realtimeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.server.logger.Debug("ignoring malformed realtime message", "user_id", c.user.ID)
		return
	}

	switch msg.Type {
	case WSTypeUpdateTemplateData:
		c.handleTemplateUpdate(msg)
	default:
		c.server.logger.Debug("ignoring realtime message", "user_id", c.user.ID, "type", msg.Type)
	}
}

// handleTemplateUpdate runs one payload write through the coordinator
// and answers with exactly one result message.
func (c *wsClient) handleTemplateUpdate(msg realtimeMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	templateID := msg.templateID()
	updated, err := c.server.coordinator.ApplyUpdate(ctx, template.UpdateRequest{
		TemplateID:  templateID,
		ActorID:     c.user.ID,
		BypassOwner: c.user.Role == auth.RoleAdmin,
		Payload:     msg.TemplateData,
	})
	if err != nil {
		switch {
		case errors.Is(err, template.ErrEmptyPayload), errors.Is(err, template.ErrInvalidPayload):
			c.trySend([]byte(wsErrDataRequired))
		case errors.Is(err, template.ErrNotOwner):
			c.trySend([]byte(wsErrNoPermission))
		case errors.Is(err, template.ErrTemplateNotFound):
			c.trySend([]byte(wsErrTemplateMissing))
		default:
			c.server.logger.Error("realtime template update failed",
				"user_id", c.user.ID, "template_id", templateID, "error", err)
			c.trySend([]byte(`{"error": "Template update failed."}`))
		}
		return
	}

	c.trySend([]byte(wsUpdateSuccess))
	c.server.publishTemplateUpdate(updated.ID, c.user.ID, "realtime", len(msg.TemplateData))
}

// trySend attempts to queue data for the write pump. It silently handles
// closed channels (connection superseded during processing) and full
// buffers (slow client).
func (c *wsClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}
