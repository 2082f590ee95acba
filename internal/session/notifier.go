package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/tarea-editor/internal/editor"
	ws "github.com/gokatarajesh/tarea-editor/pkg/http/ws"
)

// Publisher fans messages out to WebSocket subscribers. *ws.Hub implements it.
type Publisher interface {
	Publish(topic string, msg ws.Message) error
	CloseTopic(topic string)
}

// SessionTopic carries state and notifications of one session.
func SessionTopic(sessionID string) string { return "session:" + sessionID }

// OperatorTopic carries messages not bound to a session, such as audio processing results.
func OperatorTopic(operator string) string { return "operator:" + operator }

// HubNotifier turns editor notifications into WebSocket messages on the session topic.
type HubNotifier struct {
	publisher Publisher
	logger    zerolog.Logger
}

func NewHubNotifier(publisher Publisher, logger zerolog.Logger) *HubNotifier {
	return &HubNotifier{publisher: publisher, logger: logger.With().Str("component", "session_notifier").Logger()}
}

func (n *HubNotifier) Notify(_ context.Context, sessionID string, note editor.Notification) {
	msg, err := ws.NewMessage(ws.TypeNotification, note)
	if err != nil {
		n.logger.Error().Err(err).Msg("encode notification")
		return
	}
	if err := n.publisher.Publish(SessionTopic(sessionID), msg); err != nil {
		n.logger.Warn().Err(err).Str("session_id", sessionID).Msg("publish notification failed")
	}
}
