package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Text  string
	Event Event
}

// Sender delivers a message over whatever transport the front end uses.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher subscribes to the bus, renders events and pushes them through a
// rate limiter so a burst of bookings cannot trip flood limits on the chat
// side. Publishing never blocks the ledger: when the queue is full the event
// is dropped and logged.
type Dispatcher struct {
	queue   chan Event
	limiter *rate.Limiter
	sender  Sender
	logger  *zerolog.Logger
}

type DispatcherConfig struct {
	RatePerSecond float64
	Burst         int
	QueueSize     int
}

func NewDispatcher(cfg DispatcherConfig, sender Sender, logger *zerolog.Logger) *Dispatcher {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 25
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Dispatcher{
		queue:   make(chan Event, cfg.QueueSize),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		sender:  sender,
		logger:  logger,
	}
}

// Attach subscribes the dispatcher to all booking lifecycle events on the bus.
func (d *Dispatcher) Attach(bus *Bus) {
	for _, t := range []string{EventBookingCreated, EventBookingConfirmed, EventBookingCancelled} {
		bus.Subscribe(t, d.enqueue)
	}
}

func (d *Dispatcher) enqueue(event Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn().Str("type", event.Type).Int64("booking", event.Booking.ID).
			Msg("notification queue full, dropping event")
		return fmt.Errorf("notification queue full")
	}
}

// Run delivers queued events until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queue:
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
			msg := Message{Text: render(event), Event: event}
			if err := d.sender.Send(ctx, msg); err != nil {
				d.logger.Error().Err(err).Str("type", event.Type).
					Int64("booking", event.Booking.ID).Msg("notification delivery failed")
			}
		}
	}
}

func render(event Event) string {
	b := event.Booking
	when := fmt.Sprintf("%s - %s",
		b.StartsAt.Format("2006-01-02 15:04"), b.EndsAt.Format("15:04"))
	switch event.Type {
	case EventBookingCreated:
		return fmt.Sprintf("New booking request #%d: %s, amount %d (%s), awaiting verification",
			b.ID, when, b.Amount, b.PaymentMethod)
	case EventBookingConfirmed:
		return fmt.Sprintf("Booking #%d confirmed: %s, token %s", b.ID, when, b.Token)
	case EventBookingCancelled:
		return fmt.Sprintf("Booking #%d cancelled (%s)", b.ID, when)
	default:
		return fmt.Sprintf("Booking #%d: %s", b.ID, event.Type)
	}
}
