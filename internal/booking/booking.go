// Package booking implements seat availability and reservation creation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/queue"
	"github.com/iliyamo/moviestore/internal/repository"
	"github.com/iliyamo/moviestore/internal/ticket"
)

// MovieFinder loads catalog movies.
type MovieFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
}

// CinemaFinder loads cinemas.
type CinemaFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.Cinema, error)
}

// ScreenFinder loads screens.
type ScreenFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.Screen, error)
}

// ShowtimeFinder matches an occurrence to the showtimes covering it.
type ShowtimeFinder interface {
	FindCovering(ctx context.Context, movieID, cinemaID, screenID uint64, day time.Time, startAt string) ([]model.Showtime, error)
}

// Ledger is the reservation store the booking flow reads and writes.
type Ledger interface {
	SeatLabelsFor(ctx context.Context, screenID uint64, day time.Time, startAt string) ([]string, error)
	CreateWithSeats(ctx context.Context, res *model.Reservation, labels []string) error
	SetQRPath(ctx context.Context, id uint64, path string) error
}

// TicketRenderer produces the QR ticket of a reservation and returns its URL.
type TicketRenderer interface {
	Render(ctx context.Context, d ticket.Data) (string, error)
}

// EventPublisher announces confirmed reservations.
type EventPublisher interface {
	PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

var (
	_ MovieFinder    = (*repository.MovieRepo)(nil)
	_ CinemaFinder   = (*repository.CinemaRepo)(nil)
	_ ScreenFinder   = (*repository.ScreenRepo)(nil)
	_ ShowtimeFinder = (*repository.ShowtimeRepo)(nil)
	_ Ledger         = (*repository.ReservationRepo)(nil)
	_ TicketRenderer = (*ticket.Generator)(nil)
	_ EventPublisher = (*queue.Publisher)(nil)
)

// Request is a booking as submitted by the client. Date is YYYY-MM-DD, Time
// is HH:MM and Seats is a comma separated label list.
type Request struct {
	MovieID  uint64
	CinemaID uint64
	ScreenID uint64
	Date     string
	Time     string
	Seats    string
}

// SeatMap is the seat selection payload of one occurrence.
type SeatMap struct {
	TakenSeats []string `json:"takenSeats"`
	RowsCount  int      `json:"rowsCount"`
	ColsCount  int      `json:"colsCount"`
}

// Service runs the booking flow.
type Service struct {
	movies    MovieFinder
	cinemas   CinemaFinder
	screens   ScreenFinder
	showtimes ShowtimeFinder
	ledger    Ledger
	tickets   TicketRenderer
	events    EventPublisher
	now       func() time.Time
}

// NewService wires the flow. events may be nil, in which case nothing is
// published.
func NewService(movies MovieFinder, cinemas CinemaFinder, screens ScreenFinder, showtimes ShowtimeFinder,
	ledger Ledger, tickets TicketRenderer, events EventPublisher) *Service {
	if movies == nil || cinemas == nil || screens == nil || showtimes == nil || ledger == nil || tickets == nil {
		panic("booking: nil dependency")
	}
	return &Service{
		movies:    movies,
		cinemas:   cinemas,
		screens:   screens,
		showtimes: showtimes,
		ledger:    ledger,
		tickets:   tickets,
		events:    events,
		now:       time.Now,
	}
}

func parseOccurrence(date, clock string) (time.Time, string, error) {
	day, err := model.ParseDay(date)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", repository.ErrValidation, date)
	}
	startAt, err := model.ParseClock(clock)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", repository.ErrValidation, err)
	}
	return day, startAt, nil
}

// TakenSeats returns the labels already reserved for the occurrence
// (screen, day, startAt), deduplicated, in first-seen order.
func (s *Service) TakenSeats(ctx context.Context, screenID uint64, day time.Time, startAt string) ([]string, error) {
	rows, err := s.ledger.SeatLabelsFor(ctx, screenID, day, startAt)
	if err != nil {
		return nil, err
	}
	taken := []string{}
	seen := map[string]bool{}
	for _, raw := range rows {
		for _, l := range model.ParseSeatLabels(raw) {
			if !seen[l] {
				seen[l] = true
				taken = append(taken, l)
			}
		}
	}
	return taken, nil
}

// SeatMap answers the seat picker. An unknown screen or a screen outside
// cinemaID yields an empty map instead of an error.
func (s *Service) SeatMap(ctx context.Context, cinemaID, screenID uint64, date, clock string) (SeatMap, error) {
	empty := SeatMap{TakenSeats: []string{}}
	day, startAt, err := parseOccurrence(date, clock)
	if err != nil {
		return empty, err
	}
	screen, err := s.screens.GetByID(ctx, screenID)
	if errors.Is(err, repository.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return empty, err
	}
	if screen.CinemaID != cinemaID {
		return empty, nil
	}
	taken, err := s.TakenSeats(ctx, screen.ID, day, startAt)
	if err != nil {
		return empty, err
	}
	return SeatMap{TakenSeats: taken, RowsCount: screen.RowsCount, ColsCount: screen.ColsCount}, nil
}

// Book validates req against the catalog and the ledger and records the
// reservation for booker. The request is all-or-nothing: if any seat is
// taken nothing is written. Ticket rendering and event publishing happen
// after the write; their failures are logged and do not undo the booking.
func (s *Service) Book(ctx context.Context, booker *model.User, req Request) (*model.ReservationDetail, error) {
	if booker == nil {
		return nil, repository.ErrForbidden
	}
	day, startAt, err := parseOccurrence(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	movie, err := s.movies.GetByID(ctx, req.MovieID)
	if err != nil {
		return nil, err
	}
	cinema, err := s.cinemas.GetByID(ctx, req.CinemaID)
	if err != nil {
		return nil, err
	}
	screen, err := s.screens.GetByID(ctx, req.ScreenID)
	if err != nil {
		return nil, err
	}
	if screen.CinemaID != cinema.ID {
		return nil, fmt.Errorf("%w: screen does not belong to the selected cinema", repository.ErrValidation)
	}

	matches, err := s.showtimes.FindCovering(ctx, movie.ID, cinema.ID, screen.ID, day, startAt)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: no showtime for %s at %s", repository.ErrShowtimeNotFound,
			model.FormatDay(day), model.ShortClock(startAt))
	case 1:
	default:
		return nil, fmt.Errorf("%w: ambiguous showtime, %d showtimes cover %s at %s", repository.ErrValidation,
			len(matches), model.FormatDay(day), model.ShortClock(startAt))
	}
	show := matches[0]

	labels := model.ParseSeatLabels(req.Seats)
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: select at least one seat", repository.ErrValidation)
	}
	for _, l := range labels {
		if len(l) > model.MaxSeatLabelLen {
			return nil, fmt.Errorf("%w: seat labels are limited to %d bytes", repository.ErrValidation,
				model.MaxSeatLabelLen)
		}
	}
	total, ok := model.MulCents(show.TicketPrice, len(labels))
	if !ok {
		return nil, fmt.Errorf("%w: total for %d seats at %s exceeds the maximum amount", repository.ErrValidation,
			len(labels), model.FormatCents(show.TicketPrice))
	}
	taken, err := s.TakenSeats(ctx, screen.ID, day, startAt)
	if err != nil {
		return nil, err
	}
	for _, l := range taken {
		for _, want := range labels {
			if l == want {
				return nil, repository.ErrSeatTaken
			}
		}
	}

	res := &model.Reservation{
		MovieID:     movie.ID,
		CinemaID:    cinema.ID,
		ScreenID:    screen.ID,
		ShowDate:    day,
		StartAt:     startAt,
		SeatLabels:  model.JoinSeatLabels(labels),
		TicketPrice: show.TicketPrice,
		Total:       total,
		Username:    booker.Username,
		Phone:       booker.Phone,
	}
	if err := s.ledger.CreateWithSeats(ctx, res, labels); err != nil {
		return nil, err
	}
	detail := &model.ReservationDetail{
		Reservation: *res,
		MovieTitle:  movie.Title,
		CinemaName:  cinema.Name,
		ScreenName:  screen.Name,
	}
	log.Info().Uint64("reservation_id", res.ID).Str("username", res.Username).
		Str("seats", res.SeatLabels).Uint32("total_cents", res.Total).Msg("reservation created")

	if err := s.EnsureTicket(ctx, detail); err != nil {
		log.Warn().Err(err).Uint64("reservation_id", res.ID).Msg("ticket not rendered; it will be retried on the dashboard")
	}
	s.publish(ctx, detail, labels)
	return detail, nil
}

// EnsureTicket renders and stores the QR ticket of d when it has none yet.
func (s *Service) EnsureTicket(ctx context.Context, d *model.ReservationDetail) error {
	if d.QRPath != "" {
		return nil
	}
	path, err := s.tickets.Render(ctx, ticket.FromDetail(*d))
	if err != nil {
		return err
	}
	if err := s.ledger.SetQRPath(ctx, d.ID, path); err != nil {
		return err
	}
	d.QRPath = path
	return nil
}

func (s *Service) publish(ctx context.Context, d *model.ReservationDetail, labels []string) {
	if s.events == nil {
		return
	}
	ev := queue.ReservationConfirmedEvent{
		ReservationID: d.ID,
		Username:      d.Username,
		MovieID:       d.MovieID,
		MovieTitle:    d.MovieTitle,
		CinemaID:      d.CinemaID,
		CinemaName:    d.CinemaName,
		ScreenID:      d.ScreenID,
		ScreenName:    d.ScreenName,
		Date:          model.FormatDay(d.ShowDate),
		StartAt:       model.ShortClock(d.StartAt),
		Seats:         labels,
		TotalCents:    d.Total,
		ConfirmedAt:   s.now().UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.PublishReservationConfirmed(pctx, ev); err != nil {
		log.Warn().Err(err).Uint64("reservation_id", d.ID).Msg("publish reservation.confirmed failed")
	}
}
