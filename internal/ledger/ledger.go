// Package ledger is the authoritative booking table and its state machine.
//
// The only critical section in the system lives here: the capacity check and
// the pending insert run inside a single immediate sqlite transaction, so two
// front ends racing for the last slot cannot both win.
package ledger

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
	"github.com/Mahbub143625/telegram-booking-bot/internal/metrics"
	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
	"github.com/Mahbub143625/telegram-booking-bot/internal/notify"
)

// Ledger owns booking rows. All mutations go through its methods.
type Ledger struct {
	db     *database.DB
	bus    *notify.Bus
	logger *zerolog.Logger
}

func New(db *database.DB, logger *zerolog.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// UseBus publishes a lifecycle event after every committed transition.
func (l *Ledger) UseBus(bus *notify.Bus) {
	l.bus = bus
}

// publish re-reads the booking so subscribers see the committed row.
func (l *Ledger) publish(ctx context.Context, eventType string, bookingID int64) {
	if l.bus == nil {
		return
	}
	b, err := l.Get(ctx, bookingID)
	if err != nil {
		l.logger.Warn().Err(err).Int64("booking_id", bookingID).
			Str("type", eventType).Msg("skipping event publish")
		return
	}
	l.bus.Publish(notify.Event{Type: eventType, Booking: *b, OccurredAt: time.Now()})
}

// CreateRequest carries everything needed to place a hold.
type CreateRequest struct {
	ServiceID     int64
	ResourceID    int64
	UserID        int64
	UserName      string
	StartsAt      time.Time
	EndsAt        time.Time
	Amount        int64
	PaymentMethod string
	PaymentRef    string
	Hold          time.Duration // how long the pending booking reserves capacity
}

// liveFilter is the SQL mirror of models.Booking.IsLive. Keep the two in
// sync: every capacity and confirmability check must apply the same rule.
const liveFilter = `(status = 'paid' OR (status = 'pending' AND (expires_at IS NULL OR expires_at > ?)))`

// CreatePending atomically checks capacity for the requested interval and
// inserts a pending booking holding the slot until the hold lapses. Returns
// database.ErrCapacityExceeded when the slot filled up between availability
// listing and this call; that is a normal outcome, not a fault.
func (l *Ledger) CreatePending(ctx context.Context, req CreateRequest) (int64, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return 0, fmt.Errorf("booking interval must end after it starts: %w", database.ErrStateConflict)
	}

	now := time.Now().UTC()
	start := req.StartsAt.UTC()
	end := req.EndsAt.UTC()

	var expiresAt any
	if req.Hold != 0 {
		expiresAt = now.Add(req.Hold)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var capacity int
	err = tx.QueryRowContext(ctx,
		"SELECT capacity FROM resources WHERE id = ? AND active = 1", req.ResourceID,
	).Scan(&capacity)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("resource %d: %w", req.ResourceID, database.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get capacity: %w", err)
	}

	var overlapping int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE resource_id = ? AND starts_at < ? AND ends_at > ?
		  AND `+liveFilter,
		req.ResourceID, end, start, now,
	).Scan(&overlapping)
	if err != nil {
		return 0, fmt.Errorf("count overlapping: %w", err)
	}

	if overlapping >= capacity {
		metrics.IncCapacityExceeded()
		return 0, database.ErrCapacityExceeded
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (service_id, resource_id, user_id, user_name,
			starts_at, ends_at, amount, payment_method, payment_ref,
			status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?)`,
		req.ServiceID, req.ResourceID, req.UserID, req.UserName,
		start, end, req.Amount, req.PaymentMethod, nullable(req.PaymentRef),
		expiresAt, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}

	bookingID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	metrics.IncBookingCreated(req.PaymentMethod)
	l.publish(ctx, notify.EventBookingCreated, bookingID)
	l.logger.Info().Int64("booking_id", bookingID).Int64("resource_id", req.ResourceID).
		Time("starts_at", start).Msg("pending booking created")
	return bookingID, nil
}

// CountOverlapping is the read path the availability calculator filters
// candidates with. Same live predicate as CreatePending, without the insert.
func (l *Ledger) CountOverlapping(ctx context.Context, resourceID int64, start, end time.Time) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE resource_id = ? AND starts_at < ? AND ends_at > ?
		  AND `+liveFilter,
		resourceID, end.UTC(), start.UTC(), time.Now().UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count overlapping: %w", err)
	}
	return count, nil
}

// ConfirmResult is the outcome of MarkPaid.
type ConfirmResult int

const (
	// Confirmed means the booking transitioned pending -> paid.
	Confirmed ConfirmResult = iota
	// AlreadyConfirmed means the booking was paid before this call; the
	// stored token is untouched.
	AlreadyConfirmed
	// Rejected means the booking is cancelled or its hold lapsed before
	// the admin confirmed.
	Rejected
)

func (r ConfirmResult) String() string {
	switch r {
	case Confirmed:
		return "confirmed"
	case AlreadyConfirmed:
		return "already_confirmed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// MarkPaid records the admin's payment confirmation and stamps the token.
// Idempotent for already-paid bookings.
func (l *Ledger) MarkPaid(ctx context.Context, bookingID int64, token string) (ConfirmResult, error) {
	now := time.Now().UTC()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Rejected, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	var expiresAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		"SELECT status, expires_at FROM bookings WHERE id = ?", bookingID,
	).Scan(&status, &expiresAt)
	if err == sql.ErrNoRows {
		return Rejected, fmt.Errorf("booking %d: %w", bookingID, database.ErrNotFound)
	}
	if err != nil {
		return Rejected, fmt.Errorf("get booking: %w", err)
	}

	switch {
	case status == models.StatusPaid:
		return AlreadyConfirmed, nil
	case status == models.StatusCancelled:
		return Rejected, nil
	case expiresAt.Valid && !expiresAt.Time.After(now):
		// The hold lapsed; the admin is confirming a stale request.
		return Rejected, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE bookings SET status = 'paid', token = ?, expires_at = NULL WHERE id = ?",
		token, bookingID,
	)
	if err != nil {
		return Rejected, fmt.Errorf("mark paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Rejected, fmt.Errorf("commit: %w", err)
	}

	metrics.IncBookingConfirmed()
	l.publish(ctx, notify.EventBookingConfirmed, bookingID)
	l.logger.Info().Int64("booking_id", bookingID).Msg("booking marked paid")
	return Confirmed, nil
}

// CancelResult is the outcome of Cancel.
type CancelResult int

const (
	Cancelled CancelResult = iota
	AlreadyCancelled
)

func (r CancelResult) String() string {
	if r == AlreadyCancelled {
		return "already_cancelled"
	}
	return "cancelled"
}

// Cancel moves any non-cancelled booking to cancelled, paid included (admin
// override; a refund, if any, is handled outside the ledger). Idempotent.
func (l *Ledger) Cancel(ctx context.Context, bookingID int64) (CancelResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return AlreadyCancelled, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM bookings WHERE id = ?", bookingID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return AlreadyCancelled, fmt.Errorf("booking %d: %w", bookingID, database.ErrNotFound)
	}
	if err != nil {
		return AlreadyCancelled, fmt.Errorf("get booking: %w", err)
	}

	if status == models.StatusCancelled {
		return AlreadyCancelled, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE bookings SET status = 'cancelled' WHERE id = ?", bookingID,
	)
	if err != nil {
		return AlreadyCancelled, fmt.Errorf("cancel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return AlreadyCancelled, fmt.Errorf("commit: %w", err)
	}

	metrics.IncBookingCancelled()
	l.publish(ctx, notify.EventBookingCancelled, bookingID)
	l.logger.Info().Int64("booking_id", bookingID).Str("was", status).Msg("booking cancelled")
	return Cancelled, nil
}

// NewToken generates a short confirmation token the admin reads to the user.
func NewToken() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:4]))
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
