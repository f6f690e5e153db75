package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"sockchat/internal/domain"
	"sockchat/internal/service"
)

// Broadcaster is the fan-out surface the event router writes to. *Hub is the
// production implementation; tests substitute a recorder.
type Broadcaster interface {
	Send(connID string, v any)
	BroadcastAll(v any)
	BroadcastToUsers(userIDs []int64, v any)
	BroadcastToUsersExcept(userIDs []int64, exceptConnID string, v any)
	BindUser(connID string, userID int64)
}

var _ Broadcaster = (*Hub)(nil)

type handlerFunc func(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error

// EventRouter is the single entry point for every inbound event. It resolves
// the acting user before doing anything else, applies the domain mutation and
// computes the fan-out for the resulting outbound events.
//
// Store failures are contained per event: logged, reported to the
// originating connection as an error event, and never allowed to touch other
// connections' state. In-memory state is mutated only after persistence
// succeeds for events that persist anything.
type EventRouter struct {
	hub      Broadcaster
	registry *Registry
	rooms    *RoomTable
	typing   *TypingSet
	messages *service.MessageService

	handlers map[string]handlerFunc
}

func NewEventRouter(
	hub Broadcaster,
	registry *Registry,
	rooms *RoomTable,
	typing *TypingSet,
	messages *service.MessageService,
) *EventRouter {
	r := &EventRouter{
		hub:      hub,
		registry: registry,
		rooms:    rooms,
		typing:   typing,
		messages: messages,
	}
	r.handlers = map[string]handlerFunc{
		evUserJoin:    r.handleUserJoin,
		evJoinRoom:    r.handleJoinRoom,
		evLeaveRoom:   r.handleLeaveRoom,
		evSendMessage: r.handleSendMessage,
		evSendPrivate: r.handleSendPrivate,
		evTyping:      r.handleTyping,
		evReaction:    r.handleReaction,
		evMessageRead: r.handleMessageRead,
		evFileUpload:  r.handleFileUpload,
	}
	return r
}

// Dispatch routes one inbound event. Events from unbound connections are
// rejected before any side effect, except user_join which performs the bind.
func (r *EventRouter) Dispatch(ctx context.Context, connID string, env Envelope) {
	h, ok := r.handlers[env.Event]
	if !ok {
		log.Printf("ws: unknown event %q from %s", env.Event, connID)
		return
	}
	eventsTotal.WithLabelValues(env.Event).Inc()

	var user *domain.User
	if env.Event != evUserJoin {
		u, bound := r.registry.Resolve(connID)
		if !bound {
			eventErrorsTotal.WithLabelValues(env.Event).Inc()
			r.hub.Send(connID, event("error", errorPayload{Message: "not joined"}))
			return
		}
		user = u
	}

	if err := h(ctx, connID, user, env.Data); err != nil {
		eventErrorsTotal.WithLabelValues(env.Event).Inc()
		log.Printf("ws: %s from %s: %v", env.Event, connID, err)
		r.hub.Send(connID, event("error", errorPayload{Message: clientMessage(env.Event, err)}))
	}
}

// clientMessage maps an internal error to the generic message surfaced to
// the originating connection.
func clientMessage(eventName string, err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid payload"
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrConflict):
		return "already joined"
	default:
		return "failed to process " + eventName
	}
}

func (r *EventRouter) handleUserJoin(ctx context.Context, connID string, _ *domain.User, data json.RawMessage) error {
	if _, bound := r.registry.Resolve(connID); bound {
		return fmt.Errorf("%w: connection already bound", domain.ErrConflict)
	}

	var p userJoinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Username == "" {
		// The original client sends the username as a bare string.
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: username required", domain.ErrInvalidInput)
		}
		p.Username = s
	}

	user, err := r.registry.Bind(ctx, connID, p.Username)
	if err != nil {
		return err
	}
	r.hub.BindUser(connID, user.ID)

	online, err := r.registry.ListOnline(ctx)
	if err != nil {
		return fmt.Errorf("list online: %w", err)
	}
	r.hub.BroadcastAll(event("user_list", online))
	r.hub.BroadcastAll(event("user_joined", userEventPayload{Username: user.Username, ID: user.ID}))
	log.Printf("ws: %s joined the chat", user.Username)
	return nil
}

func (r *EventRouter) handleJoinRoom(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		return fmt.Errorf("%w: room required", domain.ErrInvalidInput)
	}

	// Membership mutation completes before any store call, so concurrent
	// events never observe it half-done.
	prevRoom, prior := r.rooms.Join(connID, user.ID, p.Room)
	if prevRoom != "" && prevRoom != p.Room {
		r.hub.BroadcastToUsersExcept(r.rooms.MembersOf(prevRoom), connID,
			event("user_left_room", roomEventPayload{Username: user.Username, Room: prevRoom}))
	}

	r.hub.BroadcastToUsersExcept(prior, connID,
		event("user_joined_room", roomEventPayload{Username: user.Username, Room: p.Room}))

	history, err := r.messages.RoomHistory(ctx, p.Room, 0, 0)
	if err != nil {
		return fmt.Errorf("room history: %w", err)
	}
	r.hub.Send(connID, event("room_messages", messagesToWire(history)))
	return nil
}

func (r *EventRouter) handleLeaveRoom(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		return fmt.Errorf("%w: room required", domain.ErrInvalidInput)
	}

	// Leaving a room the connection never joined is a no-op.
	if !r.rooms.Leave(connID, user.ID, p.Room) {
		return nil
	}
	r.hub.BroadcastToUsersExcept(r.rooms.MembersOf(p.Room), connID,
		event("user_left_room", roomEventPayload{Username: user.Username, Room: p.Room}))
	return nil
}

func (r *EventRouter) handleSendMessage(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: malformed message payload", domain.ErrInvalidInput)
	}
	content := p.Content
	if content == "" {
		content = p.Message
	}
	var fileURL *string
	if p.FileURL != "" {
		fileURL = &p.FileURL
	}

	// Persist first; receive_message goes out only once the row exists.
	msg, err := r.messages.CreateMessage(ctx, service.MessageCreateInput{
		Content: content,
		Room:    p.Room,
		Type:    p.Type,
		FileURL: fileURL,
	}, user)
	if err != nil {
		return err
	}

	members := r.rooms.MembersOf(*msg.Room)
	r.hub.BroadcastToUsers(members, event("receive_message", messageToWire(msg)))
	r.notifyOffline(ctx, members, *msg.Room)
	return nil
}

func (r *EventRouter) handleSendPrivate(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error {
	var p privateMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RecipientID == 0 {
		return fmt.Errorf("%w: recipient required", domain.ErrInvalidInput)
	}

	msg, err := r.messages.CreateMessage(ctx, service.MessageCreateInput{
		Content:     p.Content,
		RecipientID: &p.RecipientID,
	}, user)
	if err != nil {
		return err
	}

	// Direct fan-out: only the sender's and recipient's connections.
	r.hub.BroadcastToUsers([]int64{user.ID, p.RecipientID}, event("receive_message", messageToWire(msg)))
	return nil
}

func (r *EventRouter) handleTyping(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		// The original client sends a bare boolean.
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("%w: malformed typing payload", domain.ErrInvalidInput)
		}
		p.IsTyping = b
	}

	snapshot := r.typing.Set(connID, TypingEntry{UserID: user.ID, Username: user.Username}, p.IsTyping)
	r.hub.BroadcastAll(event("typing_users", snapshot))
	return nil
}

func (r *EventRouter) handleReaction(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error {
	var p reactionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == 0 {
		return fmt.Errorf("%w: message id required", domain.ErrInvalidInput)
	}

	msg, err := r.messages.AddReaction(ctx, p.MessageID, user.ID, p.Reaction)
	if err != nil {
		return err
	}
	r.hub.BroadcastAll(event("message_reaction", reactionEventPayload{
		MessageID: msg.ID,
		Reactions: msg.Reactions,
	}))
	return nil
}

func (r *EventRouter) handleMessageRead(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error {
	var p messageReadPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == 0 {
		return fmt.Errorf("%w: message id required", domain.ErrInvalidInput)
	}

	msg, err := r.messages.MarkRead(ctx, p.MessageID, user.ID)
	if err != nil {
		return err
	}
	r.hub.BroadcastToUsers(r.rooms.MembersOf(p.Room), event("message_read_receipt", readReceiptPayload{
		MessageID: msg.ID,
		ReadBy:    msg.ReadBy,
	}))
	return nil
}

func (r *EventRouter) handleFileUpload(ctx context.Context, connID string, user *domain.User, data json.RawMessage) error {
	var p fileUploadPayload
	if err := json.Unmarshal(data, &p); err != nil || p.FileURL == "" {
		return fmt.Errorf("%w: file url required", domain.ErrInvalidInput)
	}

	msg, err := r.messages.CreateMessage(ctx, service.MessageCreateInput{
		Content: p.Filename,
		Room:    p.Room,
		Type:    domain.MessageTypeFile,
		FileURL: &p.FileURL,
	}, user)
	if err != nil {
		return err
	}

	r.hub.BroadcastToUsers(r.rooms.MembersOf(*msg.Room), event("receive_message", messageToWire(msg)))
	return nil
}

// HandleDisconnect runs the transport-driven cleanup: presence, membership,
// then registry, each broadcast from a snapshot taken after the mutation.
// This is the final event for the connection.
func (r *EventRouter) HandleDisconnect(ctx context.Context, connID string) {
	snapshot := r.typing.Clear(connID)

	user, _ := r.registry.Resolve(connID)
	room, _, left := r.rooms.DropConnection(connID)
	if left && user != nil {
		r.hub.BroadcastToUsers(r.rooms.MembersOf(room),
			event("user_left_room", roomEventPayload{Username: user.Username, Room: room}))
	}

	prior, err := r.registry.Unbind(ctx, connID)
	if err != nil {
		log.Printf("ws: set offline for %s: %v", connID, err)
	}
	if prior != nil {
		log.Printf("ws: %s left the chat", prior.Username)
		r.hub.BroadcastAll(event("user_left", userEventPayload{Username: prior.Username, ID: prior.ID}))
	}

	online, err := r.registry.ListOnline(ctx)
	if err != nil {
		log.Printf("ws: list online after disconnect of %s: %v", connID, err)
	} else {
		r.hub.BroadcastAll(event("user_list", online))
	}
	r.hub.BroadcastAll(event("typing_users", snapshot))
}

// notifyOffline is a best-effort hook for members that missed a room
// message; delivery is just a log line until a push channel exists.
func (r *EventRouter) notifyOffline(ctx context.Context, memberIDs []int64, room string) {
	offline, err := r.messages.OfflineMembers(ctx, memberIDs)
	if err != nil {
		log.Printf("ws: offline member scan for %s: %v", room, err)
		return
	}
	for _, u := range offline {
		log.Printf("ws: notification for %s: new message in %s", u.Username, room)
	}
}
