package session

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/tarea-editor/pkg/http/errors"
	ws "github.com/gokatarajesh/tarea-editor/pkg/http/ws"
)

// WSHandler streams session state, notifications and the operator's audio processing
// results over a WebSocket.
type WSHandler struct {
	manager  *Manager
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(manager *Manager, hub *ws.Hub, upgrader websocket.Upgrader, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		manager:  manager,
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "session_ws").Logger(),
	}
}

// ServeHTTP handles GET /ws/sessions/{id}
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	operator := operatorOf(r)
	s, err := h.manager.Get(r.Context(), r.PathValue("id"), operator)
	if err != nil {
		respondError(w, err)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn := ws.NewConnection(raw, h.logger)
	h.hub.Register(conn, SessionTopic(s.ID()), OperatorTopic(operator))
	go conn.WritePump()

	if msg, err := ws.NewMessage(ws.TypeSessionState, s.Snapshot()); err == nil {
		_ = conn.Send(msg)
	}

	conn.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypePing:
			return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		default:
			return conn.Send(ws.NewErrorMessage(httperrors.ErrCodeUnknownMessageType,
				"Unsupported message type "+msg.Type, msg.RequestID))
		}
	})
	h.hub.Unregister(conn)
}
