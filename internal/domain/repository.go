package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// FindOrCreate resolves the user with the given username, creating the
	// record on first sight. Usernames are unique.
	FindOrCreate(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	ListOnline(ctx context.Context) ([]*User, error)
	// SetOnline marks the user online and records connectionID as its active
	// connection, replacing any previous one.
	SetOnline(ctx context.Context, id int64, connectionID string) error
	// SetOfflineByConnection marks offline the user whose active connection is
	// connectionID and stamps last_seen. Returns nil when no user holds that
	// connection (a newer session already superseded it, or it never bound).
	SetOfflineByConnection(ctx context.Context, connectionID string) (*User, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	// ListByRoom returns room messages newest-first.
	ListByRoom(ctx context.Context, room string, limit, offset int) ([]*Message, error)
	// ListPublic returns all non-direct messages newest-first.
	ListPublic(ctx context.Context, limit, offset int) ([]*Message, error)
	// AddReaction records the reaction, ignoring duplicates, and returns the
	// updated message.
	AddReaction(ctx context.Context, messageID, userID int64, symbol string) (*Message, error)
	// MarkRead adds userID to the message read set, ignoring duplicates, and
	// returns the updated message.
	MarkRead(ctx context.Context, messageID, userID int64) (*Message, error)
}
