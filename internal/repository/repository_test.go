package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/testutil"
)

type fixture struct {
	db       *sql.DB
	movies   *MovieRepo
	cinemas  *CinemaRepo
	screens  *ScreenRepo
	shows    *ShowtimeRepo
	ledger   *ReservationRepo
	users    *UserRepo
	admin    *model.User
	movie    *model.Movie
	cinema   *model.Cinema
	screen   *model.Screen
	showtime *model.Showtime
	day      time.Time
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDay(s)
	require.NoError(t, err)
	return d
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	ctx := context.Background()
	f := &fixture{
		db:      db,
		movies:  NewMovieRepo(db),
		cinemas: NewCinemaRepo(db),
		screens: NewScreenRepo(db),
		shows:   NewShowtimeRepo(db),
		ledger:  NewReservationRepo(db),
		users:   NewUserRepo(db),
		day:     day(t, "2025-06-05"),
	}

	f.admin = &model.User{Name: "Admin", Username: "Admin", Email: "ADMIN@example.com", Phone: "+15550000002",
		PasswordHash: "x", Role: model.RoleAdmin}
	require.NoError(t, f.users.Create(ctx, f.admin))

	f.movie = &model.Movie{Title: "The Hidden City", Description: "A city under the city",
		ReleaseDate: day(t, "2025-06-01"), EndDate: day(t, "2025-06-30")}
	require.NoError(t, f.movies.Create(ctx, f.movie))

	f.cinema = &model.Cinema{OwnerID: &f.admin.ID, Name: "Downtown Multiplex", City: "New York"}
	screen, err := f.cinemas.Create(ctx, f.cinema)
	require.NoError(t, err)
	f.screen = screen

	f.showtime = &model.Showtime{MovieID: f.movie.ID, CinemaID: f.cinema.ID, ScreenID: screen.ID,
		StartAt: "14:00:00", StartDate: day(t, "2025-06-01"), EndDate: day(t, "2025-06-10"), TicketPrice: 1250}
	require.NoError(t, f.shows.Create(ctx, f.showtime))
	return f
}

func (f *fixture) reservation(seats ...string) *model.Reservation {
	return &model.Reservation{
		MovieID: f.movie.ID, CinemaID: f.cinema.ID, ScreenID: f.screen.ID,
		ShowDate: f.day, StartAt: "14:00:00", SeatLabels: model.JoinSeatLabels(seats),
		TicketPrice: 1250, Total: 1250 * uint32(len(seats)), Username: "guest", Phone: "+15550000003",
	}
}

func TestCinemaCreateAddsDefaultScreen(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, model.DefaultScreenName, f.screen.Name)
	assert.Equal(t, 8, f.screen.RowsCount)
	assert.Equal(t, 10, f.screen.ColsCount)
	assert.Equal(t, f.cinema.ID, f.screen.CinemaID)
	require.NotNil(t, f.cinema.OwnerID)
	assert.True(t, f.cinema.OwnedBy(f.admin.ID))

	owned, err := f.screens.ListByOwner(context.Background(), f.admin.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestUserCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.Equal(t, "admin", f.admin.Username)
	assert.Equal(t, "admin@example.com", f.admin.Email)

	dup := &model.User{Name: "Other", Username: "ADMIN", Email: "other@example.com", Phone: "+1999", PasswordHash: "x"}
	assert.ErrorIs(t, f.users.Create(ctx, dup), ErrUserExists)
	assert.ErrorIs(t, f.users.Create(ctx, dup), ErrConflict)

	got, err := f.users.GetByLogin(ctx, "Admin@Example.com")
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, got.ID)
	assert.Equal(t, model.RoleAdmin, got.Role)

	_, err = f.users.GetByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindCoveringMatchesDateRangeAndTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.shows.FindCovering(ctx, f.movie.ID, f.cinema.ID, f.screen.ID, day(t, "2025-06-10"), "14:00:00")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.showtime.ID, got[0].ID)
	assert.Equal(t, uint32(1250), got[0].TicketPrice)

	got, err = f.shows.FindCovering(ctx, f.movie.ID, f.cinema.ID, f.screen.ID, day(t, "2025-06-11"), "14:00:00")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.shows.FindCovering(ctx, f.movie.ID, f.cinema.ID, f.screen.ID, f.day, "19:30:00")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestShowtimeCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clash := &model.Showtime{MovieID: f.movie.ID, CinemaID: f.cinema.ID, ScreenID: f.screen.ID,
		StartAt: "14:00:00", StartDate: day(t, "2025-06-10"), EndDate: day(t, "2025-06-20"), TicketPrice: 900}
	assert.ErrorIs(t, f.shows.Create(ctx, clash), ErrConflict)

	later := &model.Showtime{MovieID: f.movie.ID, CinemaID: f.cinema.ID, ScreenID: f.screen.ID,
		StartAt: "14:00:00", StartDate: day(t, "2025-06-11"), EndDate: day(t, "2025-06-20"), TicketPrice: 900}
	require.NoError(t, f.shows.Create(ctx, later))

	evening := &model.Showtime{MovieID: f.movie.ID, CinemaID: f.cinema.ID, ScreenID: f.screen.ID,
		StartAt: "19:30:00", StartDate: day(t, "2025-06-01"), EndDate: day(t, "2025-06-10"), TicketPrice: 1400}
	require.NoError(t, f.shows.Create(ctx, evening))

	n, err := f.shows.Count(ctx, &f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCreateWithSeatsAndTakenSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.reservation("A1", "A2")
	require.NoError(t, f.ledger.CreateWithSeats(ctx, res, []string{"A1", "A2"}))
	assert.NotZero(t, res.ID)
	assert.Equal(t, "A1, A2", res.SeatLabels)
	assert.Equal(t, uint32(2500), res.Total)
	assert.Equal(t, "14:00:00", res.StartAt)
	assert.False(t, res.Paid)

	raw, err := f.ledger.SeatLabelsFor(ctx, f.screen.ID, f.day, "14:00:00")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1, A2"}, raw)

	other, err := f.ledger.SeatLabelsFor(ctx, f.screen.ID, f.day.AddDate(0, 0, 1), "14:00:00")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCreateWithSeatsRejectsTakenSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.CreateWithSeats(ctx, f.reservation("A1", "A2"), []string{"A1", "A2"}))

	err := f.ledger.CreateWithSeats(ctx, f.reservation("A3", "A2"), []string{"A3", "A2"})
	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.ErrorIs(t, err, ErrConflict)

	n, err := f.ledger.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeatUniqueKeyBacksTheLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.reservation("B5")
	require.NoError(t, f.ledger.CreateWithSeats(ctx, first, []string{"B5"}))

	// B7 is held in reservation_seats but absent from every seat_labels field,
	// as if a concurrent booking committed between the read and the write.
	_, err := f.db.Exec(`INSERT INTO reservation_seats (reservation_id, screen_id, show_date, start_at, seat_label)
		VALUES (?, ?, ?, ?, ?)`, first.ID, f.screen.ID, model.FormatDay(f.day), "14:00:00", "B7")
	require.NoError(t, err)

	err = f.ledger.CreateWithSeats(ctx, f.reservation("B7"), []string{"B7"})
	assert.ErrorIs(t, err, ErrSeatTaken)

	n, err := f.ledger.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeatLabelsAreCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.CreateWithSeats(ctx, f.reservation("A1"), []string{"A1"}))
	require.NoError(t, f.ledger.CreateWithSeats(ctx, f.reservation("a1"), []string{"a1"}))

	raw, err := f.ledger.SeatLabelsFor(ctx, f.screen.ID, f.day, "14:00:00")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "a1"}, raw)

	err = f.ledger.CreateWithSeats(ctx, f.reservation("a1"), []string{"a1"})
	assert.ErrorIs(t, err, ErrSeatTaken)
}

func TestReservationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.reservation("C1")
	require.NoError(t, f.ledger.CreateWithSeats(ctx, res, []string{"C1"}))

	require.NoError(t, f.ledger.SetQRPath(ctx, res.ID, "/uploads/qrcodes/reservation-1.png"))
	require.NoError(t, f.ledger.MarkPaid(ctx, res.ID))
	require.NoError(t, f.ledger.MarkCheckedIn(ctx, res.ID))

	got, err := f.ledger.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.True(t, got.CheckedIn)
	assert.Equal(t, "The Hidden City", got.MovieTitle)
	assert.Equal(t, "Downtown Multiplex", got.CinemaName)
	assert.Equal(t, "Screen 1", got.ScreenName)

	mine, err := f.ledger.ListByUsername(ctx, "guest")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	owned, err := f.ledger.ListByOwner(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	require.NoError(t, f.ledger.Delete(ctx, res.ID))
	_, err = f.ledger.GetByID(ctx, res.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	// released seat can be booked again
	require.NoError(t, f.ledger.CreateWithSeats(ctx, f.reservation("C1"), []string{"C1"}))
	assert.ErrorIs(t, f.ledger.MarkPaid(ctx, 999), ErrNotFound)
}

func TestMovieDeleteRefusedWhileShowtimesExist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.movies.Delete(ctx, f.movie.ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "1 associated showtime(s)")

	_, err = f.movies.GetByID(ctx, f.movie.ID)
	require.NoError(t, err)
	list, err := f.shows.ListByMovie(ctx, f.movie.ID, f.day)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.shows.Delete(ctx, f.showtime.ID))
	require.NoError(t, f.movies.Delete(ctx, f.movie.ID))
	assert.ErrorIs(t, f.movies.Delete(ctx, f.movie.ID), ErrMovieNotFound)
}

func TestShowtimeDeleteRefusedWithReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.CreateWithSeats(ctx, f.reservation("D4"), []string{"D4"}))

	assert.ErrorIs(t, f.shows.Delete(ctx, f.showtime.ID), ErrValidation)
	assert.ErrorIs(t, f.screens.Delete(ctx, f.screen.ID), ErrValidation)
	assert.ErrorIs(t, f.cinemas.Delete(ctx, f.cinema.ID), ErrValidation)
}

func TestCinemaDeleteTakesItsScreens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.shows.Delete(ctx, f.showtime.ID))

	require.NoError(t, f.cinemas.Delete(ctx, f.cinema.ID))
	_, err := f.screens.GetByID(ctx, f.screen.ID)
	assert.ErrorIs(t, err, ErrScreenNotFound)
	_, err = f.cinemas.GetByID(ctx, f.cinema.ID)
	assert.ErrorIs(t, err, ErrCinemaNotFound)
}

func TestMovieCatalogWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := &model.Movie{Title: "Orbit Dawn", ReleaseDate: day(t, "2025-07-01"), EndDate: day(t, "2025-07-31")}
	require.NoError(t, f.movies.Create(ctx, soon))

	now, err := f.movies.ListNowShowing(ctx, f.day)
	require.NoError(t, err)
	require.Len(t, now, 1)
	assert.Equal(t, "The Hidden City", now[0].Title)

	later, err := f.movies.ListComingSoon(ctx, f.day)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "Orbit Dawn", later[0].Title)
}

func TestRefreshTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tokens := NewTokenRepo(f.db)

	require.NoError(t, tokens.StoreRefresh(ctx, f.admin.ID, "live", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, f.admin.ID, "stale", time.Now().Add(-time.Hour)))

	uid, err := tokens.ValidateRefresh(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, uid)

	_, err = tokens.ValidateRefresh(ctx, "stale")
	assert.ErrorIs(t, err, ErrTokenRevoked)

	require.NoError(t, tokens.RevokeByHash(ctx, "live"))
	_, err = tokens.ValidateRefresh(ctx, "live")
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
