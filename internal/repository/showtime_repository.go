package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/moviestore/internal/model"
)

const showtimeColumns = `st.id, st.movie_id, st.cinema_id, st.screen_id, st.start_at, st.start_date, st.end_date,
	st.ticket_price_cents, st.created_at`

const showtimeDetailFrom = ` FROM showtimes st
	JOIN movies m ON m.id = st.movie_id
	JOIN cinemas c ON c.id = st.cinema_id
	JOIN screens sc ON sc.id = st.screen_id `

// ShowtimeRepo is the showtime registry.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo returns the showtime registry over db.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

func scanShowtime(s rowScanner, extra ...any) (*model.Showtime, error) {
	var st model.Showtime
	dest := append([]any{&st.ID, &st.MovieID, &st.CinemaID, &st.ScreenID, &st.StartAt, &st.StartDate,
		&st.EndDate, &st.TicketPrice, &st.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	st.StartAt = normalizeClock(st.StartAt)
	return &st, nil
}

// normalizeClock keeps TIME values in HH:MM:SS whatever the driver returns.
func normalizeClock(s string) string {
	if c, err := model.ParseClock(s); err == nil {
		return c
	}
	return s
}

// Create inserts a showtime. A showtime whose (movie, cinema, screen, start
// time) key overlaps the date range of an existing one is rejected with
// ErrConflict so that an occurrence always resolves to a single showtime.
func (r *ShowtimeRepo) Create(ctx context.Context, st *model.Showtime) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer finishTx(tx, &err)

	clash, err := findOverlapping(ctx, tx, st)
	if err != nil {
		return err
	}
	if len(clash) > 0 {
		return fmt.Errorf("%w: showtime %d already runs this movie on the screen at %s between %s and %s",
			ErrConflict, clash[0].ID, model.ShortClock(clash[0].StartAt),
			model.FormatDay(clash[0].StartDate), model.FormatDay(clash[0].EndDate))
	}

	const q = `INSERT INTO showtimes (movie_id, cinema_id, screen_id, start_at, start_date, end_date, ticket_price_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, st.MovieID, st.CinemaID, st.ScreenID, st.StartAt,
		model.FormatDay(st.StartDate), model.FormatDay(st.EndDate), st.TicketPrice)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := scanShowtime(tx.QueryRowContext(ctx, "SELECT "+showtimeColumns+" FROM showtimes st WHERE st.id = ?", id))
	if err != nil {
		return err
	}
	*st = *got
	return nil
}

// FindOverlapping lists showtimes with the same key as st whose date range
// intersects st's.
func (r *ShowtimeRepo) FindOverlapping(ctx context.Context, st *model.Showtime) ([]model.Showtime, error) {
	return findOverlapping(ctx, r.db, st)
}

func findOverlapping(ctx context.Context, q querier, st *model.Showtime) ([]model.Showtime, error) {
	const where = ` WHERE st.movie_id = ? AND st.cinema_id = ? AND st.screen_id = ? AND st.start_at = ?
		AND st.start_date <= ? AND st.end_date >= ? AND st.id <> ? ORDER BY st.id`
	rows, err := q.QueryContext(ctx, "SELECT "+showtimeColumns+" FROM showtimes st"+where,
		st.MovieID, st.CinemaID, st.ScreenID, st.StartAt,
		model.FormatDay(st.EndDate), model.FormatDay(st.StartDate), st.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Showtime
	for rows.Next() {
		s, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// FindCovering returns the showtimes for (movie, cinema, screen, startAt)
// whose active range contains day, lowest id first, at most two. More than
// one result means the occurrence is ambiguous.
func (r *ShowtimeRepo) FindCovering(ctx context.Context, movieID, cinemaID, screenID uint64, day time.Time, startAt string) ([]model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes st
		WHERE st.movie_id = ? AND st.cinema_id = ? AND st.screen_id = ? AND st.start_at = ?
		  AND st.start_date <= ? AND st.end_date >= ?
		ORDER BY st.id LIMIT 2`
	d := model.FormatDay(day)
	rows, err := r.db.QueryContext(ctx, q, movieID, cinemaID, screenID, startAt, d, d)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Showtime
	for rows.Next() {
		s, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetByID returns ErrShowtimeNotFound when id does not exist.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.ShowtimeDetail, error) {
	list, err := r.details(ctx, "WHERE st.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrShowtimeNotFound
	}
	return &list[0], nil
}

func (r *ShowtimeRepo) details(ctx context.Context, where string, args ...any) ([]model.ShowtimeDetail, error) {
	q := "SELECT " + showtimeColumns + ", m.title, c.name, sc.name" + showtimeDetailFrom + where +
		" ORDER BY st.start_date, st.start_at, st.id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ShowtimeDetail
	for rows.Next() {
		var d model.ShowtimeDetail
		st, err := scanShowtime(rows, &d.MovieTitle, &d.CinemaName, &d.ScreenName)
		if err != nil {
			return nil, err
		}
		d.Showtime = *st
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByMovie returns the showtimes of a movie still running on or after day.
func (r *ShowtimeRepo) ListByMovie(ctx context.Context, movieID uint64, day time.Time) ([]model.ShowtimeDetail, error) {
	return r.details(ctx, "WHERE st.movie_id = ? AND st.end_date >= ?", movieID, model.FormatDay(day))
}

// ListAll returns every showtime with movie, cinema and screen names.
func (r *ShowtimeRepo) ListAll(ctx context.Context) ([]model.ShowtimeDetail, error) {
	return r.details(ctx, "")
}

// ListByOwner returns the showtimes of cinemas owned by ownerID.
func (r *ShowtimeRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.ShowtimeDetail, error) {
	return r.details(ctx, "WHERE c.owner_id = ?", ownerID)
}

// Delete removes a showtime unless a reservation was made for one of its
// occurrences.
func (r *ShowtimeRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer finishTx(tx, &err)

	st, err := scanShowtime(tx.QueryRowContext(ctx, "SELECT "+showtimeColumns+" FROM showtimes st WHERE st.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShowtimeNotFound
	}
	if err != nil {
		return err
	}
	booked, err := countRows(ctx, tx, `SELECT COUNT(*) FROM reservations
		WHERE movie_id = ? AND cinema_id = ? AND screen_id = ? AND start_at = ? AND show_date BETWEEN ? AND ?`,
		st.MovieID, st.CinemaID, st.ScreenID, st.StartAt, model.FormatDay(st.StartDate), model.FormatDay(st.EndDate))
	if err != nil {
		return err
	}
	if booked > 0 {
		return fmt.Errorf("%w: cannot delete showtime because it has %d reservation(s)", ErrValidation, booked)
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM showtimes WHERE id = ?", id)
	return err
}

// Count returns the number of showtimes, restricted to ownerID when non-nil.
func (r *ShowtimeRepo) Count(ctx context.Context, ownerID *uint64) (int, error) {
	if ownerID != nil {
		return countRows(ctx, r.db, `SELECT COUNT(*) FROM showtimes st JOIN cinemas c ON c.id = st.cinema_id
			WHERE c.owner_id = ?`, *ownerID)
	}
	return countRows(ctx, r.db, "SELECT COUNT(*) FROM showtimes")
}
