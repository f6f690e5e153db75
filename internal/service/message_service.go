package service

import (
	"context"
	"fmt"

	"sockchat/internal/domain"
)

const maxContentRunes = 5000

// MessageService provides message persistence operations: creation for both
// room and direct messages, history pages, reactions and read receipts.
type MessageService struct {
	messages domain.MessageRepository
	users    domain.UserRepository

	DefaultRoom  string
	HistoryLimit int
}

func NewMessageService(
	messages domain.MessageRepository,
	users domain.UserRepository,
	defaultRoom string,
	historyLimit int,
) *MessageService {
	return &MessageService{
		messages:     messages,
		users:        users,
		DefaultRoom:  defaultRoom,
		HistoryLimit: historyLimit,
	}
}

type MessageCreateInput struct {
	Content     string
	Room        string
	RecipientID *int64
	Type        string
	FileURL     *string
}

// CreateMessage validates and persists a message. Room messages default to
// the service's default room; direct messages carry RecipientID and no room.
func (s *MessageService) CreateMessage(
	ctx context.Context,
	in MessageCreateInput,
	sender *domain.User,
) (*domain.Message, error) {
	if in.Content == "" && (in.FileURL == nil || *in.FileURL == "") {
		return nil, fmt.Errorf("%w: message content cannot be empty", domain.ErrInvalidInput)
	}
	if len([]rune(in.Content)) > maxContentRunes {
		return nil, fmt.Errorf("%w: message content exceeds %d characters", domain.ErrInvalidInput, maxContentRunes)
	}

	msgType := in.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if msgType != domain.MessageTypeText && msgType != domain.MessageTypeFile {
		return nil, fmt.Errorf("%w: unknown message type %q", domain.ErrInvalidInput, in.Type)
	}

	msg := &domain.Message{
		SenderID:   sender.ID,
		SenderName: sender.Username,
		Content:    in.Content,
		Type:       msgType,
		FileURL:    in.FileURL,
		Reactions:  make(map[string][]int64),
		ReadBy:     []int64{},
	}

	if in.RecipientID != nil {
		if _, err := s.users.GetByID(ctx, *in.RecipientID); err != nil {
			return nil, fmt.Errorf("resolve recipient: %w", err)
		}
		msg.RecipientID = in.RecipientID
	} else {
		room := in.Room
		if room == "" {
			room = s.DefaultRoom
		}
		msg.Room = &room
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// RoomHistory returns a page of room messages in chronological order.
func (s *MessageService) RoomHistory(ctx context.Context, room string, limit, offset int) ([]*domain.Message, error) {
	if limit <= 0 || limit > s.HistoryLimit {
		limit = s.HistoryLimit
	}
	msgs, err := s.messages.ListByRoom(ctx, room, limit, offset)
	if err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

// PublicFeed returns a page of all non-direct messages in chronological order.
func (s *MessageService) PublicFeed(ctx context.Context, limit, offset int) ([]*domain.Message, error) {
	if limit <= 0 || limit > s.HistoryLimit {
		limit = s.HistoryLimit
	}
	msgs, err := s.messages.ListPublic(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

func (s *MessageService) AddReaction(ctx context.Context, messageID, userID int64, symbol string) (*domain.Message, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: reaction symbol required", domain.ErrInvalidInput)
	}
	return s.messages.AddReaction(ctx, messageID, userID, symbol)
}

func (s *MessageService) MarkRead(ctx context.Context, messageID, userID int64) (*domain.Message, error) {
	return s.messages.MarkRead(ctx, messageID, userID)
}

// OfflineMembers filters the given user ids down to those currently offline,
// for best-effort notification of room members that missed a message.
func (s *MessageService) OfflineMembers(ctx context.Context, userIDs []int64) ([]*domain.User, error) {
	var offline []*domain.User
	for _, id := range userIDs {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve member %d: %w", id, err)
		}
		if !u.IsOnline {
			offline = append(offline, u)
		}
	}
	return offline, nil
}

// Reverse to chronological order (repo returns DESC).
func reverse(msgs []*domain.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
