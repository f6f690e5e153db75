package ws

import (
	"encoding/json"
	"time"

	"sockchat/internal/domain"
)

// Envelope is the wire frame in both directions: a named event plus its
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound event names.
const (
	evUserJoin    = "user_join"
	evJoinRoom    = "join_room"
	evLeaveRoom   = "leave_room"
	evSendMessage = "send_message"
	evSendPrivate = "send_private_message"
	evTyping      = "typing"
	evReaction    = "message_reaction"
	evMessageRead = "message_read"
	evFileUpload  = "file_upload"
)

// Inbound payloads.

type userJoinPayload struct {
	Username string `json:"username"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type sendMessagePayload struct {
	Content string `json:"content"`
	Message string `json:"message"` // legacy alias for content
	Room    string `json:"room"`
	Type    string `json:"type"`
	FileURL string `json:"file_url"`
}

type privateMessagePayload struct {
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
}

type typingPayload struct {
	IsTyping bool `json:"is_typing"`
}

type reactionPayload struct {
	MessageID int64  `json:"message_id"`
	Reaction  string `json:"reaction"`
}

type messageReadPayload struct {
	MessageID int64  `json:"message_id"`
	Room      string `json:"room"`
}

type fileUploadPayload struct {
	Filename string `json:"filename"`
	FileURL  string `json:"file_url"`
	Room     string `json:"room"`
}

// Outbound payloads.

type userEventPayload struct {
	Username string `json:"username"`
	ID       int64  `json:"id"`
}

type roomEventPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type messagePayload struct {
	ID          int64              `json:"id"`
	Sender      string             `json:"sender"`
	SenderID    int64              `json:"sender_id"`
	Message     string             `json:"message"`
	Timestamp   time.Time          `json:"timestamp"`
	Reactions   map[string][]int64 `json:"reactions"`
	ReadBy      []int64            `json:"read_by"`
	Type        string             `json:"type"`
	FileURL     *string            `json:"file_url,omitempty"`
	Room        *string            `json:"room,omitempty"`
	RecipientID *int64             `json:"recipient_id,omitempty"`
}

type reactionEventPayload struct {
	MessageID int64              `json:"message_id"`
	Reactions map[string][]int64 `json:"reactions"`
}

type readReceiptPayload struct {
	MessageID int64   `json:"message_id"`
	ReadBy    []int64 `json:"read_by"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type outEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func event(name string, data any) outEvent {
	return outEvent{Event: name, Data: data}
}

func messageToWire(m *domain.Message) messagePayload {
	return messagePayload{
		ID:          m.ID,
		Sender:      m.SenderName,
		SenderID:    m.SenderID,
		Message:     m.Content,
		Timestamp:   m.CreatedAt,
		Reactions:   m.Reactions,
		ReadBy:      m.ReadBy,
		Type:        m.Type,
		FileURL:     m.FileURL,
		Room:        m.Room,
		RecipientID: m.RecipientID,
	}
}

func messagesToWire(msgs []*domain.Message) []messagePayload {
	out := make([]messagePayload, len(msgs))
	for i, m := range msgs {
		out[i] = messageToWire(m)
	}
	return out
}
