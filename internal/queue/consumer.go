package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AuditLog appends one JSON line per confirmed reservation.
type AuditLog struct {
	log zerolog.Logger
}

// NewAuditLog writes audit lines to w.
func NewAuditLog(w io.Writer) *AuditLog {
	return &AuditLog{log: zerolog.New(w).With().Timestamp().Logger()}
}

// OpenAuditLog opens (or creates) dir/booking.log for appending.
func OpenAuditLog(dir string) (*AuditLog, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open booking log: %w", err)
	}
	return NewAuditLog(f), f, nil
}

// Handle decodes one delivery body and records it.
func (a *AuditLog) Handle(body []byte) error {
	var ev ReservationConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ReservationID == 0 {
		return errors.New("event without reservation id")
	}
	a.log.Info().
		Uint64("reservation_id", ev.ReservationID).
		Str("username", ev.Username).
		Str("movie", ev.MovieTitle).
		Str("cinema", ev.CinemaName).
		Str("screen", ev.ScreenName).
		Str("date", ev.Date).
		Str("start_at", ev.StartAt).
		Strs("seats", ev.Seats).
		Uint32("total_cents", ev.TotalCents).
		Str("confirmed_at", ev.ConfirmedAt).
		Msg("reservation confirmed")
	return nil
}

// StartReservationConsumer consumes ReservationQueue until ctx is cancelled,
// reconnecting with exponential backoff (capped at 30s) whenever the broker
// goes away. Undecodable messages are rejected without requeue.
func StartReservationConsumer(ctx context.Context, url string, audit *AuditLog) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("reservation consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, audit)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("reservation consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, audit *AuditLog) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("reservation consumer: set qos failed")
	}
	if _, err := ch.QueueDeclare(ReservationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	msgs, err := ch.Consume(ReservationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	log.Info().Str("queue", ReservationQueue).Msg("reservation consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := audit.Handle(d.Body); err != nil {
				log.Error().Err(err).Msg("reservation consumer: rejecting message")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
