package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypingSetInsertionOrder(t *testing.T) {
	ts := NewTypingSet()

	ts.Set("c1", TypingEntry{UserID: 1, Username: "alice"}, true)
	ts.Set("c2", TypingEntry{UserID: 2, Username: "bob"}, true)
	ts.Set("c3", TypingEntry{UserID: 3, Username: "carol"}, true)

	// Re-setting an existing entry keeps its position.
	snap := ts.Set("c1", TypingEntry{UserID: 1, Username: "alice"}, true)
	assert.Equal(t, []TypingEntry{
		{UserID: 1, Username: "alice"},
		{UserID: 2, Username: "bob"},
		{UserID: 3, Username: "carol"},
	}, snap)
}

func TestTypingStopRemovesEntry(t *testing.T) {
	ts := NewTypingSet()

	ts.Set("c1", TypingEntry{UserID: 1, Username: "alice"}, true)
	ts.Set("c2", TypingEntry{UserID: 2, Username: "bob"}, true)

	snap := ts.Set("c1", TypingEntry{UserID: 1, Username: "alice"}, false)
	assert.Equal(t, []TypingEntry{{UserID: 2, Username: "bob"}}, snap)

	// Stop for an unknown connection is a no-op.
	snap = ts.Set("c9", TypingEntry{}, false)
	assert.Len(t, snap, 1)
}

func TestTypingClearOnDisconnect(t *testing.T) {
	ts := NewTypingSet()

	ts.Set("c1", TypingEntry{UserID: 1, Username: "alice"}, true)
	snap := ts.Clear("c1")
	assert.Empty(t, snap)

	// Clearing twice is harmless.
	assert.Empty(t, ts.Clear("c1"))
	assert.Empty(t, ts.Snapshot())
}
