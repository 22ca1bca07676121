// Package seed loads the demo accounts, movies, cinemas and showtimes into
// an empty database.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/repository"
	"github.com/iliyamo/moviestore/internal/utils"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

type seeder struct {
	users     *repository.UserRepo
	movies    *repository.MovieRepo
	cinemas   *repository.CinemaRepo
	screens   *repository.ScreenRepo
	showtimes *repository.ShowtimeRepo
	cost      int
	today     time.Time
}

// Run fills each table that is still empty. Tables that already hold rows
// are left alone, so running it twice is harmless.
func Run(ctx context.Context, db *sql.DB, bcryptCost int, now time.Time) error {
	s := &seeder{
		users:     repository.NewUserRepo(db),
		movies:    repository.NewMovieRepo(db),
		cinemas:   repository.NewCinemaRepo(db),
		screens:   repository.NewScreenRepo(db),
		showtimes: repository.NewShowtimeRepo(db),
		cost:      bcryptCost,
		today:     model.TruncateDay(now.UTC()),
	}
	for _, step := range []func(context.Context) error{s.seedUsers, s.seedMovies, s.seedCinemas, s.seedShowtimes} {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) seedUsers(ctx context.Context) error {
	n, err := s.users.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	hash, err := utils.HashPassword(DemoPassword, s.cost)
	if err != nil {
		return err
	}
	for _, u := range []model.User{
		{Name: "Super Admin", Username: "superadmin", Email: "superadmin@moviestore.local", Phone: "+15550000001", Role: model.RoleSuperAdmin},
		{Name: "Cinema Admin", Username: "admin", Email: "admin@moviestore.local", Phone: "+15550000002", Role: model.RoleAdmin},
		{Name: "Guest User", Username: "guest", Email: "guest@moviestore.local", Phone: "+15550000003", Role: model.RoleGuest},
	} {
		u.PasswordHash = hash
		if err := s.users.Create(ctx, &u); err != nil {
			return err
		}
	}
	log.Info().Int("count", 3).Msg("seed: users")
	return nil
}

func (s *seeder) seedMovies(ctx context.Context) error {
	n, err := s.movies.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, m := range []model.Movie{
		{
			Title: "The Hidden City", Language: "english", Genre: "thriller",
			Director: "A. Rivera", Cast: "M. Stone, K. Ali",
			Description: "A city-wide mystery unfolds over one night.", DurationMin: 124,
			ReleaseDate: s.today.AddDate(0, 0, -5), EndDate: s.today.AddDate(0, 0, 25),
		},
		{
			Title: "Orbit Dawn", Language: "english", Genre: "science fiction",
			Director: "C. Park", Cast: "D. Park, T. King",
			Description: "A rescue mission to a failing orbital colony.", DurationMin: 137,
			ReleaseDate: s.today.AddDate(0, 0, 6), EndDate: s.today.AddDate(0, 0, 45),
		},
	} {
		if err := s.movies.Create(ctx, &m); err != nil {
			return err
		}
	}
	log.Info().Int("count", 2).Msg("seed: movies")
	return nil
}

// seedCinemas creates two cinemas owned by "admin". Each gets its default
// screen; the first one also gets a smaller second screen.
func (s *seeder) seedCinemas(ctx context.Context) error {
	n, err := s.cinemas.Count(ctx, nil)
	if err != nil || n > 0 {
		return err
	}
	var owner *uint64
	admin, err := s.users.GetByLogin(ctx, "admin")
	switch {
	case err == nil:
		owner = &admin.ID
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	for i, c := range []model.Cinema{
		{Name: "Downtown Multiplex", City: "new york", OwnerID: owner},
		{Name: "Lakeside Cinema", City: "chicago", OwnerID: owner},
	} {
		if _, err := s.cinemas.Create(ctx, &c); err != nil {
			return err
		}
		if i == 0 {
			if err := s.screens.Create(ctx, &model.Screen{CinemaID: c.ID, Name: "Screen 2", RowsCount: 7, ColsCount: 9}); err != nil {
				return err
			}
		}
	}
	log.Info().Int("count", 2).Msg("seed: cinemas")
	return nil
}

// seedShowtimes schedules the first movie at 14:00 and 19:30 on the first
// screen of the first cinema for the next ten days.
func (s *seeder) seedShowtimes(ctx context.Context) error {
	n, err := s.showtimes.Count(ctx, nil)
	if err != nil || n > 0 {
		return err
	}
	movies, err := s.movies.List(ctx)
	if err != nil {
		return err
	}
	cinemas, err := s.cinemas.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(movies) == 0 || len(cinemas) == 0 {
		return nil
	}
	screens, err := s.screens.ListByCinema(ctx, cinemas[0].ID)
	if err != nil || len(screens) == 0 {
		return err
	}
	movie := movies[len(movies)-1]
	for _, m := range movies {
		if m.Title == "The Hidden City" {
			movie = m
		}
	}

	for _, slot := range []struct {
		at    string
		price uint32
	}{{"14:00:00", 1250}, {"19:30:00", 1400}} {
		st := &model.Showtime{
			MovieID:     movie.ID,
			CinemaID:    cinemas[0].ID,
			ScreenID:    screens[0].ID,
			StartAt:     slot.at,
			StartDate:   s.today,
			EndDate:     s.today.AddDate(0, 0, 10),
			TicketPrice: slot.price,
		}
		if err := s.showtimes.Create(ctx, st); err != nil {
			return err
		}
	}
	log.Info().Int("count", 2).Msg("seed: showtimes")
	return nil
}
