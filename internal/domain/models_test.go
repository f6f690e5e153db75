package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddReaction(t *testing.T) {
	m := &Message{}

	assert.True(t, m.AddReaction("👍", 1))
	assert.True(t, m.AddReaction("👍", 2))
	assert.True(t, m.AddReaction("❤️", 1))

	// Re-applying the same triple has no effect.
	assert.False(t, m.AddReaction("👍", 1))

	assert.Equal(t, []int64{1, 2}, m.Reactions["👍"])
	assert.Equal(t, []int64{1}, m.Reactions["❤️"])
}

func TestMarkReadBy(t *testing.T) {
	m := &Message{}

	assert.True(t, m.MarkReadBy(7))
	assert.False(t, m.MarkReadBy(7))
	assert.True(t, m.MarkReadBy(9))

	assert.Equal(t, []int64{7, 9}, m.ReadBy)
}
