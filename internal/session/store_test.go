package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, &logger)
}

func TestConsumeSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, models.SessionAdminReply, 1, 42, 3, 10*time.Minute))

	active, err := s.IsActive(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.True(t, active)

	subject, err := s.CurrentSubject(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), subject)

	want := []ConsumeResult{SessionContinues, SessionContinues, SessionClosed}
	for i, expected := range want {
		result, err := s.Consume(ctx, models.SessionAdminReply, 1)
		require.NoError(t, err)
		assert.Equal(t, expected, result, "consume #%d", i+1)
	}

	// After close the session is gone.
	active, err = s.IsActive(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.False(t, active)

	result, err := s.Consume(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.Equal(t, SessionClosed, result)

	_, err = s.CurrentSubject(ctx, models.SessionAdminReply, 1)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestStartReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, models.SessionAdminReply, 1, 42, 1, 10*time.Minute))
	result, err := s.Consume(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.Equal(t, SessionClosed, result)

	// A fresh window for the same admin replaces the spent one.
	require.NoError(t, s.Start(ctx, models.SessionAdminReply, 1, 77, 2, 10*time.Minute))

	subject, err := s.CurrentSubject(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(77), subject)

	result, err = s.Consume(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.Equal(t, SessionContinues, result)
}

func TestTTLExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, models.SessionRating, 5, 9, 5, -time.Minute))

	// Timed out but not yet deleted: treated as absent.
	active, err := s.IsActive(ctx, models.SessionRating, 5)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = s.CurrentSubject(ctx, models.SessionRating, 5)
	assert.ErrorIs(t, err, database.ErrNotFound)

	// Consume on an expired row deletes it and reports closed.
	result, err := s.Consume(ctx, models.SessionRating, 5)
	require.NoError(t, err)
	assert.Equal(t, SessionClosed, result)
}

func TestKindsDoNotInterfere(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, models.SessionAdminReply, 1, 42, 3, 10*time.Minute))
	require.NoError(t, s.Start(ctx, models.SessionRating, 1, 99, 5, 10*time.Minute))

	result, err := s.Consume(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.Equal(t, SessionContinues, result)

	// The rating window for the same owner is untouched.
	subject, err := s.CurrentSubject(ctx, models.SessionRating, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(99), subject)

	require.NoError(t, s.Stop(ctx, models.SessionRating, 1))
	active, err := s.IsActive(ctx, models.SessionAdminReply, 1)
	require.NoError(t, err)
	assert.True(t, active, "stopping one kind must not touch the other")
}

func TestMute(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Mute(ctx, models.SessionGroupReply, 1, 42, 10*time.Minute))

	// A muted window is present but unusable.
	active, err := s.IsActive(ctx, models.SessionGroupReply, 1)
	require.NoError(t, err)
	assert.False(t, active)

	result, err := s.Consume(ctx, models.SessionGroupReply, 1)
	require.NoError(t, err)
	assert.Equal(t, SessionClosed, result)
}
