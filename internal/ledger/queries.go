package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
)

const bookingColumns = `id, service_id, resource_id, user_id, COALESCE(user_name, ''),
	starts_at, ends_at, amount, COALESCE(payment_method, ''), payment_ref,
	status, token, expires_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var paymentRef, token sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.ServiceID, &b.ResourceID, &b.UserID, &b.UserName,
		&b.StartsAt, &b.EndsAt, &b.Amount, &b.PaymentMethod, &paymentRef,
		&b.Status, &token, &expiresAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentRef.Valid {
		b.PaymentRef = paymentRef.String
	}
	if token.Valid {
		b.Token = token.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		b.ExpiresAt = &t
	}
	return &b, nil
}

// Get returns a booking by id, database.ErrNotFound when absent.
func (l *Ledger) Get(ctx context.Context, bookingID int64) (*models.Booking, error) {
	row := l.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", bookingID)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("booking %d: %w", bookingID, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListForUser returns the user's bookings, most recent start first.
func (l *Ledger) ListForUser(ctx context.Context, userID int64, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id = ? ORDER BY starts_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ListAll returns a page of all bookings, most recent start first.
func (l *Ledger) ListAll(ctx context.Context, offset, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 15
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings ORDER BY starts_at DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// PaidBooking is a row of the admin dashboard: a paid booking plus its
// service-done flag.
type PaidBooking struct {
	models.Booking
	ServiceDone bool
}

// ListPaid returns a page of paid bookings for the admin dashboard.
func (l *Ledger) ListPaid(ctx context.Context, offset, limit int) ([]PaidBooking, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT b.id, b.service_id, b.resource_id, b.user_id, COALESCE(b.user_name, ''),
		       b.starts_at, b.ends_at, b.amount, COALESCE(b.payment_method, ''), b.payment_ref,
		       b.status, b.token, b.expires_at, b.created_at,
		       COALESCE(m.service_done, 0)
		FROM bookings b
		LEFT JOIN booking_meta m ON m.booking_id = b.id
		WHERE b.status = 'paid'
		ORDER BY b.starts_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list paid: %w", err)
	}
	defer rows.Close()

	var result []PaidBooking
	for rows.Next() {
		var b models.Booking
		var paymentRef, token sql.NullString
		var expiresAt sql.NullTime
		var done bool
		err := rows.Scan(
			&b.ID, &b.ServiceID, &b.ResourceID, &b.UserID, &b.UserName,
			&b.StartsAt, &b.EndsAt, &b.Amount, &b.PaymentMethod, &paymentRef,
			&b.Status, &token, &expiresAt, &b.CreatedAt, &done,
		)
		if err != nil {
			return nil, err
		}
		if paymentRef.Valid {
			b.PaymentRef = paymentRef.String
		}
		if token.Valid {
			b.Token = token.String
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			b.ExpiresAt = &t
		}
		result = append(result, PaidBooking{Booking: b, ServiceDone: done})
	}
	return result, rows.Err()
}

// CountPaid returns the total number of paid bookings, for pagination.
func (l *Ledger) CountPaid(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE status = 'paid'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count paid: %w", err)
	}
	return n, nil
}

// SetServiceDone toggles the dashboard's service-done flag for a booking.
func (l *Ledger) SetServiceDone(ctx context.Context, bookingID int64, done bool) error {
	var exists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE id = ?", bookingID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check booking: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("booking %d: %w", bookingID, database.ErrNotFound)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO booking_meta (booking_id, service_done) VALUES (?, ?)
		ON CONFLICT(booking_id) DO UPDATE SET service_done = excluded.service_done`,
		bookingID, done,
	)
	if err != nil {
		return fmt.Errorf("set service done: %w", err)
	}
	return nil
}
