// Package session manages short-lived relay and rating windows.
//
// A session is keyed by (kind, owner): one admin can have one reply window,
// one member one rating window, and the kinds never interfere. Expiry is
// lazy, the same way booking holds lapse: a timed-out row counts as absent
// wherever it is read, and is deleted the next time it is touched.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
	"github.com/Mahbub143625/telegram-booking-bot/internal/metrics"
	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
)

// ConsumeResult tells the caller whether to keep relaying.
type ConsumeResult int

const (
	// SessionContinues means the message was within the limit.
	SessionContinues ConsumeResult = iota
	// SessionClosed means the limit or TTL was hit (or no session exists);
	// the session is gone and the caller should surface that.
	SessionClosed
)

func (r ConsumeResult) String() string {
	if r == SessionClosed {
		return "closed"
	}
	return "continues"
}

// Store persists sessions in the shared sqlite database so every front-end
// process sees the same windows.
type Store struct {
	db     *database.DB
	logger *zerolog.Logger
}

func New(db *database.DB, logger *zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Start opens a session, replacing any existing one of the same kind for the
// same owner.
func (s *Store) Start(ctx context.Context, kind string, ownerID, subjectID int64, maxUses int, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (kind, owner_id, subject_id, remaining, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, owner_id) DO UPDATE SET
			subject_id = excluded.subject_id,
			remaining = excluded.remaining,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		kind, ownerID, subjectID, maxUses, now.Add(ttl), now,
	)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	metrics.IncSessionOpened(kind)
	s.logger.Debug().Str("kind", kind).Int64("owner", ownerID).
		Int64("subject", subjectID).Int("max_uses", maxUses).Msg("session started")
	return nil
}

// Mute opens a zero-use session: the window exists (blocking auto-forwards
// and keeping the subject pinned) but nothing can be relayed through it.
func (s *Store) Mute(ctx context.Context, kind string, ownerID, subjectID int64, ttl time.Duration) error {
	return s.Start(ctx, kind, ownerID, subjectID, 0, ttl)
}

// Stop deletes a session outright.
func (s *Store) Stop(ctx context.Context, kind string, ownerID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE kind = ? AND owner_id = ?", kind, ownerID)
	if err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	return nil
}

// get returns the stored row regardless of liveness, nil when absent.
func (s *Store) get(ctx context.Context, kind string, ownerID int64) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, owner_id, subject_id, remaining, expires_at, created_at
		FROM sessions WHERE kind = ? AND owner_id = ?`,
		kind, ownerID,
	).Scan(&sess.Kind, &sess.OwnerID, &sess.SubjectID, &sess.Remaining, &sess.ExpiresAt, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// IsActive reports whether a usable session exists: uses left and TTL not
// elapsed. A timed-out row is treated as absent even before deletion.
func (s *Store) IsActive(ctx context.Context, kind string, ownerID int64) (bool, error) {
	sess, err := s.get(ctx, kind, ownerID)
	if err != nil {
		return false, err
	}
	return sess != nil && sess.Active(time.Now().UTC()), nil
}

// CurrentSubject returns the subject of the active session, or
// database.ErrNotFound when there is none.
func (s *Store) CurrentSubject(ctx context.Context, kind string, ownerID int64) (int64, error) {
	sess, err := s.get(ctx, kind, ownerID)
	if err != nil {
		return 0, err
	}
	if sess == nil || !sess.Active(time.Now().UTC()) {
		return 0, fmt.Errorf("session %s/%d: %w", kind, ownerID, database.ErrNotFound)
	}
	return sess.SubjectID, nil
}

// Consume spends one use. Called once per relayed message. When the last use
// is spent or the TTL has elapsed, the session is deleted and SessionClosed
// is returned so the caller stops relaying and surfaces the limit.
func (s *Store) Consume(ctx context.Context, kind string, ownerID int64) (ConsumeResult, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SessionClosed, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var remaining int
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT remaining, expires_at FROM sessions WHERE kind = ? AND owner_id = ?",
		kind, ownerID,
	).Scan(&remaining, &expiresAt)
	if err == sql.ErrNoRows {
		return SessionClosed, nil
	}
	if err != nil {
		return SessionClosed, fmt.Errorf("get session: %w", err)
	}

	if remaining <= 0 || !expiresAt.After(now) {
		if err := s.deleteTx(ctx, tx, kind, ownerID); err != nil {
			return SessionClosed, err
		}
		return SessionClosed, tx.Commit()
	}

	remaining--
	if remaining == 0 {
		if err := s.deleteTx(ctx, tx, kind, ownerID); err != nil {
			return SessionClosed, err
		}
		if err := tx.Commit(); err != nil {
			return SessionClosed, fmt.Errorf("commit: %w", err)
		}
		return SessionClosed, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET remaining = ? WHERE kind = ? AND owner_id = ?",
		remaining, kind, ownerID,
	)
	if err != nil {
		return SessionClosed, fmt.Errorf("decrement session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return SessionClosed, fmt.Errorf("commit: %w", err)
	}
	return SessionContinues, nil
}

func (s *Store) deleteTx(ctx context.Context, tx *sql.Tx, kind string, ownerID int64) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE kind = ? AND owner_id = ?", kind, ownerID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	metrics.IncSessionClosed(kind)
	return nil
}
