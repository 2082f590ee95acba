package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypeSessionState    = "session_state"
	TypeNotification    = "notification"
	TypeSessionClosed   = "session_closed"
	TypeAudioProcessing = "audio_processing"
	TypeError           = "error"
	TypePong            = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a message of the given type.
func NewMessage(msgType string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// SessionClosedPayload tells subscribers that the editor session ended.
type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
}

// AudioProcessingPayload reports the terminal state of an audio transcoding task.
type AudioProcessingPayload struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Polls  int    `json:"polls"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage builds an error reply, optionally tied to the request it answers.
func NewErrorMessage(code, message, requestID string) Message {
	raw, _ := json.Marshal(ErrorPayload{Code: code, Message: message})
	return Message{Type: TypeError, Payload: raw, RequestID: requestID}
}
