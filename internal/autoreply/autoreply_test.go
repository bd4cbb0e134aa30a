package autoreply

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
)

func newTestBank(t *testing.T) *Bank {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, &logger)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hi!! Where ARE you?", "hi   where are you"},
		{"  price? ", "price"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestMatch(t *testing.T) {
	b := newTestBank(t)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, []string{"price", "how much"}, "Room A is 500, Room B is 800."))
	require.NoError(t, b.Add(ctx, []string{"location"}, "We are at the main campus."))

	tests := []struct {
		name, text, want string
		ok               bool
	}{
		{"keyword with punctuation", "What's the PRICE?", "Room A is 500, Room B is 800.", true},
		{"multi-word pattern", "how much for a room", "Room A is 500, Room B is 800.", true},
		{"second rule", "where is your location", "We are at the main campus.", true},
		{"whole words only", "priceless artifacts", "", false},
		{"no match", "do you have parking", "", false},
		{"empty text", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, ok, err := b.Match(ctx, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, answer)
		})
	}
}

func TestFirstRuleWins(t *testing.T) {
	b := newTestBank(t)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, []string{"hello"}, "first"))
	require.NoError(t, b.Add(ctx, []string{"hello"}, "second"))

	answer, ok, err := b.Match(ctx, "hello there")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", answer)
}

func TestAddValidation(t *testing.T) {
	b := newTestBank(t)
	ctx := context.Background()

	assert.Error(t, b.Add(ctx, []string{"  ", "..."}, "answer"))
	assert.Error(t, b.Add(ctx, []string{"hi"}, "   "))
}

func TestAllAndClear(t *testing.T) {
	b := newTestBank(t)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, []string{"Hi", "HELLO!"}, "greetings"))
	rules, err := b.All(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"hi", "hello"}, rules[0].Patterns, "patterns are normalized on the way in")
	assert.Equal(t, "greetings", rules[0].Answer)

	require.NoError(t, b.Clear(ctx))
	rules, err = b.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
