package ws

import (
	"context"
	"sync"

	"sockchat/internal/domain"
	"sockchat/internal/service"
)

// Registry is the single source of truth for which connection belongs to
// which user. Resolve is served from memory; the store is touched only on
// bind and unbind.
type Registry struct {
	mu     sync.RWMutex
	users  *service.UserService
	byConn map[string]*domain.User
}

func NewRegistry(users *service.UserService) *Registry {
	return &Registry{
		users:  users,
		byConn: make(map[string]*domain.User),
	}
}

// Bind resolves or creates the user for the given username, marks it online
// on this connection and caches the association. A username already online
// on another connection is simply rebound: the newest connection wins, which
// is how a reconnect replaces a stale session.
func (r *Registry) Bind(ctx context.Context, connID, username string) (*domain.User, error) {
	u, err := r.users.FindOrCreate(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := r.users.SetOnline(ctx, u.ID, connID); err != nil {
		return nil, err
	}
	u.IsOnline = true
	u.ConnectionID = connID

	r.mu.Lock()
	r.byConn[connID] = u
	r.mu.Unlock()
	return u, nil
}

// Resolve returns the user bound to the connection, if any. Never blocks on
// persistence.
func (r *Registry) Resolve(connID string) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byConn[connID]
	return u, ok
}

// Unbind clears the connection's binding and marks the user offline unless a
// newer connection already superseded this one. The returned user is non-nil
// only when this connection was still the user's active session, so callers
// announce a departure only for users who actually went offline. Unbinding an
// unknown or already-unbound connection is a no-op returning (nil, nil).
func (r *Registry) Unbind(ctx context.Context, connID string) (*domain.User, error) {
	r.mu.Lock()
	_, ok := r.byConn[connID]
	delete(r.byConn, connID)
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}

	// The repo matches only while connID is still the user's active
	// connection; a superseded session comes back nil and the user stays
	// online under the newer connection.
	u, err := r.users.SetOfflineByConnection(ctx, connID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListOnline reads through to the store; the local cache is never treated as
// authoritative for online status.
func (r *Registry) ListOnline(ctx context.Context) ([]*domain.User, error) {
	return r.users.ListOnline(ctx)
}
