package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/moviestore/internal/model"
)

const screenColumns = "s.id, s.cinema_id, s.name, s.rows_count, s.cols_count, s.created_at"

// ScreenRepo persists the auditoriums of each cinema.
type ScreenRepo struct {
	db *sql.DB
}

// NewScreenRepo returns a repository over db.
func NewScreenRepo(db *sql.DB) *ScreenRepo { return &ScreenRepo{db: db} }

func scanScreen(s rowScanner) (*model.Screen, error) {
	var sc model.Screen
	if err := s.Scan(&sc.ID, &sc.CinemaID, &sc.Name, &sc.RowsCount, &sc.ColsCount, &sc.CreatedAt); err != nil {
		return nil, err
	}
	return &sc, nil
}

func createScreen(ctx context.Context, q querier, s *model.Screen) error {
	res, err := q.ExecContext(ctx, "INSERT INTO screens (cinema_id, name, rows_count, cols_count) VALUES (?, ?, ?, ?)",
		s.CinemaID, s.Name, s.RowsCount, s.ColsCount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := scanScreen(q.QueryRowContext(ctx, "SELECT "+screenColumns+" FROM screens s WHERE s.id = ?", id))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// Create inserts a screen for an existing cinema.
func (r *ScreenRepo) Create(ctx context.Context, s *model.Screen) error {
	n, err := countRows(ctx, r.db, "SELECT COUNT(*) FROM cinemas WHERE id = ?", s.CinemaID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCinemaNotFound
	}
	return createScreen(ctx, r.db, s)
}

// GetByID returns ErrScreenNotFound when id does not exist.
func (r *ScreenRepo) GetByID(ctx context.Context, id uint64) (*model.Screen, error) {
	s, err := scanScreen(r.db.QueryRowContext(ctx, "SELECT "+screenColumns+" FROM screens s WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScreenNotFound
	}
	return s, err
}

func (r *ScreenRepo) list(ctx context.Context, join string, args ...any) ([]model.Screen, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+screenColumns+" FROM screens s "+join+" ORDER BY s.cinema_id, s.name, s.id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Screen
	for rows.Next() {
		s, err := scanScreen(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListByCinema returns the screens of one cinema.
func (r *ScreenRepo) ListByCinema(ctx context.Context, cinemaID uint64) ([]model.Screen, error) {
	return r.list(ctx, "WHERE s.cinema_id = ?", cinemaID)
}

// ListAll returns every screen grouped by cinema.
func (r *ScreenRepo) ListAll(ctx context.Context) ([]model.Screen, error) {
	return r.list(ctx, "")
}

// ListByOwner returns the screens of every cinema owned by ownerID.
func (r *ScreenRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Screen, error) {
	return r.list(ctx, "JOIN cinemas c ON c.id = s.cinema_id WHERE c.owner_id = ?", ownerID)
}

// Delete removes a screen nothing references.
func (r *ScreenRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer finishTx(tx, &err)

	n, err := countRows(ctx, tx, "SELECT COUNT(*) FROM screens WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrScreenNotFound
	}
	if err = refuseIfReferenced(ctx, tx, "screen", "screen_id", id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM screens WHERE id = ?", id)
	return err
}
