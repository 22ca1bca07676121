package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/moviestore/internal/model"
)

const reservationColumns = `r.id, r.movie_id, r.cinema_id, r.screen_id, r.show_date, r.start_at, r.seat_labels,
	r.ticket_price_cents, r.total_cents, r.username, r.phone, r.paid, r.checked_in, r.qr_path, r.created_at`

const reservationDetailFrom = ` FROM reservations r
	JOIN movies m ON m.id = r.movie_id
	JOIN cinemas c ON c.id = r.cinema_id
	JOIN screens sc ON sc.id = r.screen_id `

// ReservationRepo is the reservation ledger. Besides the reservation row,
// every booked seat gets a reservation_seats row; the unique key on
// (screen_id, show_date, start_at, seat_label) makes concurrent bookings of
// the same seat fail instead of both succeeding.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns the reservation ledger over db.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// SeatLabelsFor returns the raw seat_labels field of every reservation for
// the occurrence (screen, day, startAt).
func (r *ReservationRepo) SeatLabelsFor(ctx context.Context, screenID uint64, day time.Time, startAt string) ([]string, error) {
	return seatLabelsFor(ctx, r.db, screenID, day, startAt)
}

func seatLabelsFor(ctx context.Context, q querier, screenID uint64, day time.Time, startAt string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT seat_labels FROM reservations WHERE screen_id = ? AND show_date = ? AND start_at = ?",
		screenID, model.FormatDay(day), startAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateWithSeats persists res and one seat row per label in a single
// transaction. The seats already taken for the occurrence are re-read inside
// the transaction; any overlap, or a unique-key violation from a concurrent
// booking, returns ErrSeatTaken and nothing is written.
func (r *ReservationRepo) CreateWithSeats(ctx context.Context, res *model.Reservation, labels []string) (err error) {
	if len(labels) == 0 {
		return fmt.Errorf("%w: select at least one seat", ErrValidation)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer finishTx(tx, &err)

	day := model.FormatDay(res.ShowDate)
	existing, err := seatLabelsFor(ctx, tx, res.ScreenID, res.ShowDate, res.StartAt)
	if err != nil {
		return err
	}
	taken := make(map[string]bool)
	for _, raw := range existing {
		for _, l := range model.ParseSeatLabels(raw) {
			taken[l] = true
		}
	}
	for _, l := range labels {
		if taken[l] {
			return ErrSeatTaken
		}
	}

	const ins = `INSERT INTO reservations (movie_id, cinema_id, screen_id, show_date, start_at, seat_labels,
		ticket_price_cents, total_cents, username, phone, paid, checked_in, qr_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, ins, res.MovieID, res.CinemaID, res.ScreenID, day, res.StartAt,
		res.SeatLabels, res.TicketPrice, res.Total, res.Username, res.Phone, res.Paid, res.CheckedIn, res.QRPath)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO reservation_seats (reservation_id, screen_id, show_date, start_at, seat_label) VALUES ")
	args := make([]any, 0, len(labels)*5)
	for i, l := range labels {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, id, res.ScreenID, day, res.StartAt, l)
	}
	if _, err = tx.ExecContext(ctx, sb.String(), args...); err != nil {
		if isDuplicateKey(err) {
			return ErrSeatTaken
		}
		return err
	}

	got, err := scanReservation(tx.QueryRowContext(ctx, "SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ?", id))
	if err != nil {
		return err
	}
	*res = *got
	return nil
}

func scanReservation(s rowScanner, extra ...any) (*model.Reservation, error) {
	var res model.Reservation
	dest := append([]any{&res.ID, &res.MovieID, &res.CinemaID, &res.ScreenID, &res.ShowDate, &res.StartAt,
		&res.SeatLabels, &res.TicketPrice, &res.Total, &res.Username, &res.Phone, &res.Paid, &res.CheckedIn,
		&res.QRPath, &res.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	res.StartAt = normalizeClock(res.StartAt)
	return &res, nil
}

func (r *ReservationRepo) details(ctx context.Context, where string, args ...any) ([]model.ReservationDetail, error) {
	q := "SELECT " + reservationColumns + ", m.title, c.name, sc.name" + reservationDetailFrom + where +
		" ORDER BY r.show_date DESC, r.start_at DESC, r.id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ReservationDetail
	for rows.Next() {
		var d model.ReservationDetail
		res, err := scanReservation(rows, &d.MovieTitle, &d.CinemaName, &d.ScreenName)
		if err != nil {
			return nil, err
		}
		d.Reservation = *res
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID returns the reservation with its movie, cinema and screen names,
// or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	list, err := r.details(ctx, "WHERE r.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrReservationNotFound
	}
	return &list[0], nil
}

// ListByUsername returns the bookings made by username.
func (r *ReservationRepo) ListByUsername(ctx context.Context, username string) ([]model.ReservationDetail, error) {
	return r.details(ctx, "WHERE r.username = ?", username)
}

// ListAll returns every reservation, latest occurrence first.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]model.ReservationDetail, error) {
	return r.details(ctx, "")
}

// ListByOwner returns the bookings for cinemas owned by ownerID.
func (r *ReservationRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.ReservationDetail, error) {
	return r.details(ctx, "WHERE c.owner_id = ?", ownerID)
}

// SetQRPath records the public URL of the reservation's QR ticket.
func (r *ReservationRepo) SetQRPath(ctx context.Context, id uint64, path string) error {
	return r.update(ctx, "UPDATE reservations SET qr_path = ? WHERE id = ?", path, id)
}

// MarkPaid flags the reservation as paid. Marking it twice is harmless.
func (r *ReservationRepo) MarkPaid(ctx context.Context, id uint64) error {
	return r.update(ctx, "UPDATE reservations SET paid = ? WHERE id = ?", true, id)
}

// MarkCheckedIn flags the reservation as checked in.
func (r *ReservationRepo) MarkCheckedIn(ctx context.Context, id uint64) error {
	return r.update(ctx, "UPDATE reservations SET checked_in = ? WHERE id = ?", true, id)
}

func (r *ReservationRepo) update(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return mustAffect(res, ErrReservationNotFound)
}

// Delete removes a reservation and releases its seats.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer finishTx(tx, &err)

	if _, err = tx.ExecContext(ctx, "DELETE FROM reservation_seats WHERE reservation_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return err
	}
	return mustAffect(res, ErrReservationNotFound)
}

// Count returns the number of reservations, restricted to cinemas owned by
// ownerID when non-nil.
func (r *ReservationRepo) Count(ctx context.Context, ownerID *uint64) (int, error) {
	if ownerID != nil {
		return countRows(ctx, r.db, `SELECT COUNT(*) FROM reservations r JOIN cinemas c ON c.id = r.cinema_id
			WHERE c.owner_id = ?`, *ownerID)
	}
	return countRows(ctx, r.db, "SELECT COUNT(*) FROM reservations")
}
