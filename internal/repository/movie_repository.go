package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/moviestore/internal/model"
)

const movieColumns = `id, title, image_url, language, genre, director, cast_list, description,
	duration_min, release_date, end_date, created_at`

// MovieRepo persists the movie catalog.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns the movie catalog over db.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

func scanMovie(s rowScanner) (*model.Movie, error) {
	var m model.Movie
	err := s.Scan(&m.ID, &m.Title, &m.ImageURL, &m.Language, &m.Genre, &m.Director, &m.Cast,
		&m.Description, &m.DurationMin, &m.ReleaseDate, &m.EndDate, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MovieRepo) list(ctx context.Context, where string, args ...any) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+movieColumns+" FROM movies "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Create inserts m and fills its ID and CreatedAt.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (title, image_url, language, genre, director, cast_list, description,
		duration_min, release_date, end_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.ImageURL, m.Language, m.Genre, m.Director, m.Cast,
		m.Description, m.DurationMin, model.FormatDay(m.ReleaseDate), model.FormatDay(m.EndDate))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = *got
	return nil
}

// GetByID returns ErrMovieNotFound when id does not exist.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	return m, err
}

// List returns the whole catalog, newest release first.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	return r.list(ctx, "ORDER BY release_date DESC, id")
}

// ListNowShowing returns movies whose exhibition window contains day.
func (r *MovieRepo) ListNowShowing(ctx context.Context, day time.Time) ([]model.Movie, error) {
	d := model.FormatDay(day)
	return r.list(ctx, "WHERE release_date <= ? AND end_date >= ? ORDER BY release_date DESC, id", d, d)
}

// ListComingSoon returns movies released after day.
func (r *MovieRepo) ListComingSoon(ctx context.Context, day time.Time) ([]model.Movie, error) {
	return r.list(ctx, "WHERE release_date > ? ORDER BY release_date, id", model.FormatDay(day))
}

// Update overwrites the editable fields. The image is changed with SetImage.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies SET title = ?, language = ?, genre = ?, director = ?, cast_list = ?,
		description = ?, duration_min = ?, release_date = ?, end_date = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Language, m.Genre, m.Director, m.Cast, m.Description,
		m.DurationMin, model.FormatDay(m.ReleaseDate), model.FormatDay(m.EndDate), m.ID)
	if err != nil {
		return err
	}
	return mustAffect(res, ErrMovieNotFound)
}

// SetImage stores the public URL of the movie's poster.
func (r *MovieRepo) SetImage(ctx context.Context, id uint64, url string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE movies SET image_url = ? WHERE id = ?", url, id)
	if err != nil {
		return err
	}
	return mustAffect(res, ErrMovieNotFound)
}

// Delete removes a movie that no showtime references. Otherwise it returns
// an ErrValidation naming the number of showtimes and leaves everything in
// place.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer finishTx(tx, &err)

	n, err := countRows(ctx, tx, "SELECT COUNT(*) FROM movies WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	shows, err := countRows(ctx, tx, "SELECT COUNT(*) FROM showtimes WHERE movie_id = ?", id)
	if err != nil {
		return err
	}
	if shows > 0 {
		return fmt.Errorf("%w: cannot delete movie because it has %d associated showtime(s); delete them first",
			ErrValidation, shows)
	}
	booked, err := countRows(ctx, tx, "SELECT COUNT(*) FROM reservations WHERE movie_id = ?", id)
	if err != nil {
		return err
	}
	if booked > 0 {
		return fmt.Errorf("%w: cannot delete movie because it has %d reservation(s)", ErrValidation, booked)
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id)
	return err
}

// Count returns the number of movies in the catalog.
func (r *MovieRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, "SELECT COUNT(*) FROM movies")
}

// mustAffect turns a zero-row UPDATE into notFound.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
