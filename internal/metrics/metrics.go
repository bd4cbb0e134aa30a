package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "booking_created_total",
			Help:      "Count of pending bookings created, by payment method.",
		},
		[]string{"method"},
	)

	capacityExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "capacity_exceeded_total",
			Help:      "Count of booking attempts rejected because the slot was full.",
		},
	)

	bookingConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "booking_confirmed_total",
			Help:      "Count of bookings marked paid by admins.",
		},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)

	sessionOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "session_opened_total",
			Help:      "Count of relay/rating sessions opened, by kind.",
		},
		[]string{"kind"},
	)

	sessionClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_bot",
			Name:      "session_closed_total",
			Help:      "Count of sessions closed by use limit or TTL, by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated, capacityExceeded, bookingConfirmed,
			bookingCancelled, sessionOpened, sessionClosed,
		)
	})
}

func IncBookingCreated(method string) {
	bookingCreated.WithLabelValues(method).Inc()
}

func IncCapacityExceeded() {
	capacityExceeded.Inc()
}

func IncBookingConfirmed() {
	bookingConfirmed.Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncSessionOpened(kind string) {
	sessionOpened.WithLabelValues(kind).Inc()
}

func IncSessionClosed(kind string) {
	sessionClosed.WithLabelValues(kind).Inc()
}
