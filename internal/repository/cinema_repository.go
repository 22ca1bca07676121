package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/moviestore/internal/model"
)

const cinemaColumns = "id, owner_id, name, city, image_url, created_at"

// CinemaRepo persists venues.
type CinemaRepo struct {
	db *sql.DB
}

// NewCinemaRepo returns a repository over db.
func NewCinemaRepo(db *sql.DB) *CinemaRepo { return &CinemaRepo{db: db} }

func scanCinema(s rowScanner) (*model.Cinema, error) {
	var (
		c     model.Cinema
		owner sql.NullInt64
	)
	if err := s.Scan(&c.ID, &owner, &c.Name, &c.City, &c.ImageURL, &c.CreatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		id := uint64(owner.Int64)
		c.OwnerID = &id
	}
	return &c, nil
}

// Create inserts the cinema together with its default screen in a single
// transaction. The created screen is returned.
func (r *CinemaRepo) Create(ctx context.Context, c *model.Cinema) (screen *model.Screen, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer finishTx(tx, &err)

	var owner any
	if c.OwnerID != nil {
		owner = *c.OwnerID
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO cinemas (owner_id, name, city, image_url) VALUES (?, ?, ?, ?)",
		owner, c.Name, c.City, c.ImageURL)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	screen = &model.Screen{
		CinemaID:  uint64(id),
		Name:      model.DefaultScreenName,
		RowsCount: model.DefaultScreenRows,
		ColsCount: model.DefaultScreenCols,
	}
	if err = createScreen(ctx, tx, screen); err != nil {
		return nil, err
	}
	got, err := scanCinema(tx.QueryRowContext(ctx, "SELECT "+cinemaColumns+" FROM cinemas WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	*c = *got
	return screen, nil
}

// GetByID returns ErrCinemaNotFound when id does not exist.
func (r *CinemaRepo) GetByID(ctx context.Context, id uint64) (*model.Cinema, error) {
	c, err := scanCinema(r.db.QueryRowContext(ctx, "SELECT "+cinemaColumns+" FROM cinemas WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCinemaNotFound
	}
	return c, err
}

func (r *CinemaRepo) list(ctx context.Context, where string, args ...any) ([]model.Cinema, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+cinemaColumns+" FROM cinemas "+where+" ORDER BY name, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Cinema
	for rows.Next() {
		c, err := scanCinema(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ListAll returns every cinema ordered by name.
func (r *CinemaRepo) ListAll(ctx context.Context) ([]model.Cinema, error) {
	return r.list(ctx, "")
}

// ListByOwner returns the cinemas owned by ownerID.
func (r *CinemaRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Cinema, error) {
	return r.list(ctx, "WHERE owner_id = ?", ownerID)
}

// SetImage stores the public URL of the cinema's picture.
func (r *CinemaRepo) SetImage(ctx context.Context, id uint64, url string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE cinemas SET image_url = ? WHERE id = ?", url, id)
	if err != nil {
		return err
	}
	return mustAffect(res, ErrCinemaNotFound)
}

// Delete removes a cinema and its screens. It is refused while showtimes or
// reservations still point at the cinema.
func (r *CinemaRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer finishTx(tx, &err)

	n, err := countRows(ctx, tx, "SELECT COUNT(*) FROM cinemas WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCinemaNotFound
	}
	if err = refuseIfReferenced(ctx, tx, "cinema", "cinema_id", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM screens WHERE cinema_id = ?", id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM cinemas WHERE id = ?", id)
	return err
}

// Count returns the number of cinemas, restricted to ownerID when non-nil.
func (r *CinemaRepo) Count(ctx context.Context, ownerID *uint64) (int, error) {
	if ownerID != nil {
		return countRows(ctx, r.db, "SELECT COUNT(*) FROM cinemas WHERE owner_id = ?", *ownerID)
	}
	return countRows(ctx, r.db, "SELECT COUNT(*) FROM cinemas")
}

// refuseIfReferenced rejects deleting a cinema or screen that showtimes or
// reservations still reference through column.
func refuseIfReferenced(ctx context.Context, q querier, what, column string, id uint64) error {
	shows, err := countRows(ctx, q, "SELECT COUNT(*) FROM showtimes WHERE "+column+" = ?", id)
	if err != nil {
		return err
	}
	if shows > 0 {
		return fmt.Errorf("%w: cannot delete %s because it has %d associated showtime(s)", ErrValidation, what, shows)
	}
	booked, err := countRows(ctx, q, "SELECT COUNT(*) FROM reservations WHERE "+column+" = ?", id)
	if err != nil {
		return err
	}
	if booked > 0 {
		return fmt.Errorf("%w: cannot delete %s because it has %d reservation(s)", ErrValidation, what, booked)
	}
	return nil
}
