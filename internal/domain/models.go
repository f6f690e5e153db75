package domain

import "time"

// User represents an application user. ConnectionID holds the transport
// session id of the user's most recent live connection; a newer connection
// for the same username supersedes it (last-bind-wins).
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	IsOnline     bool      `db:"is_online" json:"is_online"`
	ConnectionID string    `db:"connection_id" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastSeen     time.Time `db:"last_seen" json:"last_seen"`
}

// Message types.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// Message represents a single chat message. Exactly one of Room and
// RecipientID is set: room messages carry Room, direct messages carry
// RecipientID.
type Message struct {
	ID          int64              `db:"id" json:"id"`
	SenderID    int64              `db:"sender_id" json:"sender_id"`
	SenderName  string             `db:"sender_name" json:"sender_name"`
	Content     string             `db:"content" json:"content"`
	Room        *string            `db:"room" json:"room,omitempty"`
	RecipientID *int64             `db:"recipient_id" json:"recipient_id,omitempty"`
	Type        string             `db:"type" json:"type"`
	FileURL     *string            `db:"file_url" json:"file_url,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	Reactions   map[string][]int64 `db:"reactions" json:"reactions"`
	ReadBy      []int64            `db:"read_by" json:"read_by"`
}

// AddReaction records userID under the given symbol. Returns false when the
// user already reacted with that symbol, so re-applying has no effect.
func (m *Message) AddReaction(symbol string, userID int64) bool {
	if m.Reactions == nil {
		m.Reactions = make(map[string][]int64)
	}
	for _, id := range m.Reactions[symbol] {
		if id == userID {
			return false
		}
	}
	m.Reactions[symbol] = append(m.Reactions[symbol], userID)
	return true
}

// MarkReadBy adds userID to the read set. Returns false when already present.
func (m *Message) MarkReadBy(userID int64) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, userID)
	return true
}
