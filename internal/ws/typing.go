package ws

import "sync"

// TypingEntry identifies a user currently composing a message.
type TypingEntry struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// TypingSet tracks which connections are currently typing. Entries keep
// insertion order so repeated snapshots render stably.
type TypingSet struct {
	mu      sync.Mutex
	order   []string
	entries map[string]TypingEntry
}

func NewTypingSet() *TypingSet {
	return &TypingSet{entries: make(map[string]TypingEntry)}
}

// Set upserts or deletes the entry for the connection and returns the new
// snapshot. Stopping for an unknown connection is a no-op.
func (t *TypingSet) Set(connID string, entry TypingEntry, typing bool) []TypingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if typing {
		if _, ok := t.entries[connID]; !ok {
			t.order = append(t.order, connID)
		}
		t.entries[connID] = entry
	} else {
		t.removeLocked(connID)
	}
	return t.snapshotLocked()
}

// Clear drops any entry for the connection; called on disconnect.
func (t *TypingSet) Clear(connID string) []TypingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(connID)
	return t.snapshotLocked()
}

// Snapshot returns the typing entries in insertion order.
func (t *TypingSet) Snapshot() []TypingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *TypingSet) removeLocked(connID string) {
	if _, ok := t.entries[connID]; !ok {
		return
	}
	delete(t.entries, connID)
	for i, id := range t.order {
		if id == connID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *TypingSet) snapshotLocked() []TypingEntry {
	out := make([]TypingEntry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id])
	}
	return out
}
