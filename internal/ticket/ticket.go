// Package ticket renders the QR code printed on a reservation.
package ticket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/storage"
)

// Subdir is where QR images live below the upload root.
const Subdir = "qrcodes"

// DefaultSize is the QR image edge in pixels when none is configured.
const DefaultSize = 1080

// Data is everything printed in the QR payload.
type Data struct {
	ReservationID uint64
	MovieTitle    string
	CinemaName    string
	ScreenName    string
	Date          time.Time
	StartAt       string
	SeatLabels    string
	TicketPrice   uint32
	Total         uint32
	Username      string
	Phone         string
}

// FromDetail builds ticket data from a joined reservation row.
func FromDetail(d model.ReservationDetail) Data {
	return Data{
		ReservationID: d.ID,
		MovieTitle:    d.MovieTitle,
		CinemaName:    d.CinemaName,
		ScreenName:    d.ScreenName,
		Date:          d.ShowDate,
		StartAt:       d.StartAt,
		SeatLabels:    d.SeatLabels,
		TicketPrice:   d.TicketPrice,
		Total:         d.Total,
		Username:      d.Username,
		Phone:         d.Phone,
	}
}

// Payload is the newline separated "Key: value" text encoded in the QR image.
func Payload(d Data) string {
	screen := d.ScreenName
	if screen == "" {
		screen = "TBA"
	}
	lines := []string{
		"MovieStore Reservation",
		fmt.Sprintf("Reservation ID: %d", d.ReservationID),
		"Movie: " + d.MovieTitle,
		"Cinema: " + d.CinemaName,
		"Screen: " + screen,
		"Date: " + model.FormatDay(d.Date),
		"Time: " + model.ShortClock(d.StartAt),
		"Seats: " + d.SeatLabels,
		"Ticket Price: " + model.FormatCents(d.TicketPrice),
		"Total: " + model.FormatCents(d.Total),
		"Booked By: " + d.Username,
		"Phone: " + d.Phone,
	}
	return strings.Join(lines, "\n")
}

// FileName is the image name used for a reservation.
func FileName(reservationID uint64) string {
	return fmt.Sprintf("reservation-%d.png", reservationID)
}

// Generator writes QR PNGs into the upload store.
type Generator struct {
	store *storage.Store
	size  int
}

// NewGenerator writes QR images of size pixels into store.
func NewGenerator(store *storage.Store, size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{store: store, size: size}
}

// Render writes the QR image for d, replacing any previous one, and returns
// its public URL.
func (g *Generator) Render(ctx context.Context, d Data) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := g.store.Dir(Subdir); err != nil {
		return "", err
	}
	name := FileName(d.ReservationID)
	if err := qrcode.WriteFile(Payload(d), qrcode.Medium, g.size, g.store.Path(Subdir, name)); err != nil {
		return "", fmt.Errorf("write qr for reservation %d: %w", d.ReservationID, err)
	}
	log.Debug().Uint64("reservation_id", d.ReservationID).Str("file", name).Msg("ticket rendered")
	return g.store.URL(Subdir, name), nil
}
