package models

import "time"

// Booking statuses stored in the bookings table. "expired" is never stored:
// a pending booking whose hold has lapsed is simply no longer live.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Session kinds. Sessions are namespaced by (kind, owner), so an admin reply
// window and a rating window for the same id never collide.
const (
	SessionAdminReply = "admin_reply"
	SessionGroupReply = "group_reply"
	SessionRating     = "rating"
)

// Service is a bookable service: what is offered, for how long, at what price.
type Service struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DurationMin int    `json:"duration_min"`
	Price       int64  `json:"price"` // minor currency units
	StepMin     int    `json:"step_min"`
	Active      bool   `json:"active"`
}

// Resource is a concrete place/person a service is booked on. Capacity is the
// number of live bookings allowed to overlap at any instant.
type Resource struct {
	ID        int64  `json:"id"`
	ServiceID int64  `json:"service_id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	OpenTime  string `json:"open_time"`  // "10:00"
	CloseTime string `json:"close_time"` // "18:00"
	Active    bool   `json:"active"`
}

// Booking is a ledger row.
type Booking struct {
	ID            int64      `json:"id"`
	ServiceID     int64      `json:"service_id"`
	ResourceID    int64      `json:"resource_id"`
	UserID        int64      `json:"user_id"`
	UserName      string     `json:"user_name"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Amount        int64      `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	PaymentRef    string     `json:"payment_ref,omitempty"`
	Status        string     `json:"status"`
	Token         string     `json:"token,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"` // hold deadline, nil once paid
	CreatedAt     time.Time  `json:"created_at"`
}

// IsLive reports whether the booking consumes resource capacity at the given
// instant. Every capacity and confirmability check goes through this predicate
// (or its SQL mirror in the ledger queries); there is no background sweep for
// lapsed holds.
func (b *Booking) IsLive(now time.Time) bool {
	switch b.Status {
	case StatusPaid:
		return true
	case StatusPending:
		return b.ExpiresAt == nil || b.ExpiresAt.After(now)
	default:
		return false
	}
}

// IsExpired reports whether this is a pending booking whose hold has lapsed.
func (b *Booking) IsExpired(now time.Time) bool {
	return b.Status == StatusPending && b.ExpiresAt != nil && !b.ExpiresAt.After(now)
}

// Overlaps checks the booking interval against [start, end) using half-open
// semantics: intervals touching at a boundary do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartsAt.Before(end) && b.EndsAt.After(start)
}

// User is a chat participant known to the bot.
type User struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"` // chat platform id
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

// Session is a use-limited, time-limited relay window between two chat
// participants. Exactly one session exists per (kind, owner).
type Session struct {
	Kind      string    `json:"kind"`
	OwnerID   int64     `json:"owner_id"`
	SubjectID int64     `json:"subject_id"` // target user or booking id
	Remaining int       `json:"remaining"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the session still has uses left and has not timed
// out. A timed-out row is treated as absent even before it is deleted.
func (s *Session) Active(now time.Time) bool {
	return s.Remaining > 0 && s.ExpiresAt.After(now)
}
