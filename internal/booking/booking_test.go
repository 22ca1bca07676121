package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/queue"
	"github.com/iliyamo/moviestore/internal/repository"
	"github.com/iliyamo/moviestore/internal/testutil"
	"github.com/iliyamo/moviestore/internal/ticket"
)

type rendererMock struct{ mock.Mock }

func (m *rendererMock) Render(ctx context.Context, d ticket.Data) (string, error) {
	args := m.Called(ctx, d)
	return args.String(0), args.Error(1)
}

type publisherMock struct{ mock.Mock }

func (m *publisherMock) PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type showtimesMock struct{ mock.Mock }

func (m *showtimesMock) FindCovering(ctx context.Context, movieID, cinemaID, screenID uint64, day time.Time, startAt string) ([]model.Showtime, error) {
	args := m.Called(ctx, movieID, cinemaID, screenID, day, startAt)
	list, _ := args.Get(0).([]model.Showtime)
	return list, args.Error(1)
}

type ledgerMock struct{ mock.Mock }

func (m *ledgerMock) SeatLabelsFor(ctx context.Context, screenID uint64, day time.Time, startAt string) ([]string, error) {
	args := m.Called(ctx, screenID, day, startAt)
	list, _ := args.Get(0).([]string)
	return list, args.Error(1)
}

func (m *ledgerMock) CreateWithSeats(ctx context.Context, res *model.Reservation, labels []string) error {
	return m.Called(ctx, res, labels).Error(0)
}

func (m *ledgerMock) SetQRPath(ctx context.Context, id uint64, path string) error {
	return m.Called(ctx, id, path).Error(0)
}

// env is a booking service over an in-memory database seeded with two
// cinemas, one showtime priced 12.50 at 14:00 from 2025-06-01 to 2025-06-10.
type env struct {
	svc      *Service
	ledger   *repository.ReservationRepo
	shows    *repository.ShowtimeRepo
	renderer *rendererMock
	guest    *model.User
	movie    *model.Movie
	cinema   *model.Cinema
	screen   *model.Screen
	otherScr *model.Screen
	showtime *model.Showtime
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewDB(t)
	users := repository.NewUserRepo(db)
	movies := repository.NewMovieRepo(db)
	cinemas := repository.NewCinemaRepo(db)
	screens := repository.NewScreenRepo(db)
	shows := repository.NewShowtimeRepo(db)
	ledger := repository.NewReservationRepo(db)

	e := &env{ledger: ledger, shows: shows, renderer: &rendererMock{}}
	e.guest = &model.User{Name: "Guest", Username: "guest", Email: "guest@moviestore.local", Phone: "+15550000003", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, e.guest))

	start, _ := model.ParseDay("2025-06-01")
	e.movie = &model.Movie{Title: "The Hidden City", ReleaseDate: start, EndDate: start.AddDate(0, 1, 0)}
	require.NoError(t, movies.Create(ctx, e.movie))

	e.cinema = &model.Cinema{Name: "Downtown Multiplex", City: "New York"}
	scr, err := cinemas.Create(ctx, e.cinema)
	require.NoError(t, err)
	e.screen = scr

	other := &model.Cinema{Name: "Lakeside Cinema", City: "Chicago"}
	e.otherScr, err = cinemas.Create(ctx, other)
	require.NoError(t, err)

	e.showtime = &model.Showtime{MovieID: e.movie.ID, CinemaID: e.cinema.ID, ScreenID: scr.ID, StartAt: "14:00:00",
		StartDate: start, EndDate: start.AddDate(0, 0, 9), TicketPrice: 1250}
	require.NoError(t, shows.Create(ctx, e.showtime))

	e.renderer.On("Render", mock.Anything, mock.Anything).Return("/uploads/qrcodes/ticket.png", nil).Maybe()
	e.svc = NewService(movies, cinemas, screens, shows, ledger, e.renderer, nil)
	return e
}

func (e *env) request(seats string) Request {
	return Request{MovieID: e.movie.ID, CinemaID: e.cinema.ID, ScreenID: e.screen.ID,
		Date: "2025-06-05", Time: "14:00", Seats: seats}
}

func (e *env) count(t *testing.T) int {
	n, err := e.ledger.Count(context.Background(), nil)
	require.NoError(t, err)
	return n
}

func TestBookPricesAndPersists(t *testing.T) {
	e := newEnv(t)
	got, err := e.svc.Book(context.Background(), e.guest, e.request("A1, A2"))
	require.NoError(t, err)

	assert.Equal(t, "A1, A2", got.SeatLabels)
	assert.Equal(t, uint32(1250), got.TicketPrice)
	assert.Equal(t, uint32(2500), got.Total)
	assert.Equal(t, "25.00", model.FormatCents(got.Total))
	assert.Equal(t, "guest", got.Username)
	assert.Equal(t, "+15550000003", got.Phone)
	assert.Equal(t, "/uploads/qrcodes/ticket.png", got.QRPath)
	assert.Equal(t, "Screen 1", got.ScreenName)

	stored, err := e.ledger.GetByID(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1, A2", stored.SeatLabels)
	assert.Equal(t, uint32(2500), stored.Total)
	assert.Equal(t, "/uploads/qrcodes/ticket.png", stored.QRPath)
}

func TestTakenSeatsIncludesNewBooking(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Book(ctx, e.guest, e.request("A1,A2"))
	require.NoError(t, err)
	_, err = e.svc.Book(ctx, e.guest, e.request(" B3 , A3,B3"))
	require.NoError(t, err)

	m, err := e.svc.SeatMap(ctx, e.cinema.ID, e.screen.ID, "2025-06-05", "14:00")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "A2", "B3", "A3"}, m.TakenSeats)
	assert.Equal(t, 8, m.RowsCount)
	assert.Equal(t, 10, m.ColsCount)

	other, err := e.svc.SeatMap(ctx, e.cinema.ID, e.screen.ID, "2025-06-06", "14:00")
	require.NoError(t, err)
	assert.Empty(t, other.TakenSeats)
}

func TestSeatSetsStayDisjoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	attempts := []string{"A1,A2", "A2,A3", "A3", "A3,A4", "B1, A1", "B1"}
	for _, seats := range attempts {
		_, err := e.svc.Book(ctx, e.guest, e.request(seats))
		if err != nil {
			assert.ErrorIs(t, err, repository.ErrConflict, seats)
		}
	}

	rows, err := e.ledger.SeatLabelsFor(ctx, e.screen.ID, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), "14:00:00")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1, A2", "A3", "B1"}, rows)

	seen := map[string]bool{}
	for _, raw := range rows {
		for _, l := range model.ParseSeatLabels(raw) {
			assert.False(t, seen[l], "seat %s booked twice", l)
			seen[l] = true
		}
	}
}

func TestBookConflictWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Book(ctx, e.guest, e.request("A1"))
	require.NoError(t, err)

	_, err = e.svc.Book(ctx, e.guest, e.request("C9, A1"))
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, 1, e.count(t))
}

func TestBookScreenMismatchWritesNothing(t *testing.T) {
	e := newEnv(t)
	req := e.request("A1")
	req.ScreenID = e.otherScr.ID

	_, err := e.svc.Book(context.Background(), e.guest, req)
	assert.ErrorIs(t, err, repository.ErrValidation)
	assert.Contains(t, err.Error(), "screen does not belong")
	assert.Zero(t, e.count(t))
}

func TestBookWithoutShowtimeIsNotFound(t *testing.T) {
	e := newEnv(t)
	cases := map[string]Request{
		"date outside range": func() Request { r := e.request("A1"); r.Date = "2025-06-11"; return r }(),
		"other start time":   func() Request { r := e.request("A1"); r.Time = "19:30"; return r }(),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.svc.Book(context.Background(), e.guest, req)
			assert.ErrorIs(t, err, repository.ErrNotFound)
			assert.ErrorIs(t, err, repository.ErrShowtimeNotFound)
		})
	}
	assert.Zero(t, e.count(t))
}

func TestBookRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Book(ctx, e.guest, e.request(" , ,"))
	assert.ErrorIs(t, err, repository.ErrValidation)

	bad := e.request("A1")
	bad.Date = "05/06/2025"
	_, err = e.svc.Book(ctx, e.guest, bad)
	assert.ErrorIs(t, err, repository.ErrValidation)

	missing := e.request("A1")
	missing.MovieID = 999
	_, err = e.svc.Book(ctx, e.guest, missing)
	assert.ErrorIs(t, err, repository.ErrMovieNotFound)

	_, err = e.svc.Book(ctx, nil, e.request("A1"))
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.Zero(t, e.count(t))
}

func TestSeatMapForeignScreenIsEmpty(t *testing.T) {
	e := newEnv(t)
	m, err := e.svc.SeatMap(context.Background(), e.cinema.ID, e.otherScr.ID, "2025-06-05", "14:00")
	require.NoError(t, err)
	assert.Equal(t, SeatMap{TakenSeats: []string{}}, m)

	m, err = e.svc.SeatMap(context.Background(), e.cinema.ID, 4040, "2025-06-05", "14:00")
	require.NoError(t, err)
	assert.Zero(t, m.RowsCount)
}

func TestBookKeepsReservationWhenTicketFails(t *testing.T) {
	e := newEnv(t)
	failing := &rendererMock{}
	failing.On("Render", mock.Anything, mock.Anything).Return("", errors.New("disk full"))
	e.svc.tickets = failing

	got, err := e.svc.Book(context.Background(), e.guest, e.request("E5"))
	require.NoError(t, err)
	assert.Empty(t, got.QRPath)
	assert.Equal(t, 1, e.count(t))

	e.svc.tickets = e.renderer
	require.NoError(t, e.svc.EnsureTicket(context.Background(), got))
	assert.Equal(t, "/uploads/qrcodes/ticket.png", got.QRPath)
}

func TestBookAmbiguousShowtimeWritesNothing(t *testing.T) {
	e := newEnv(t)
	shows := &showtimesMock{}
	two := []model.Showtime{*e.showtime, *e.showtime}
	two[1].ID++
	shows.On("FindCovering", mock.Anything, e.movie.ID, e.cinema.ID, e.screen.ID, mock.Anything, "14:00:00").Return(two, nil)
	ledger := &ledgerMock{}
	e.svc.showtimes = shows
	e.svc.ledger = ledger

	_, err := e.svc.Book(context.Background(), e.guest, e.request("A1"))
	assert.ErrorIs(t, err, repository.ErrValidation)
	assert.Contains(t, err.Error(), "ambiguous")
	ledger.AssertNotCalled(t, "CreateWithSeats", mock.Anything, mock.Anything, mock.Anything)
	shows.AssertExpectations(t)
}

func TestBookConflictNeverReachesLedgerWrite(t *testing.T) {
	e := newEnv(t)
	ledger := &ledgerMock{}
	ledger.On("SeatLabelsFor", mock.Anything, e.screen.ID, mock.Anything, "14:00:00").Return([]string{"A1, A2", "B4"}, nil)
	e.svc.ledger = ledger

	_, err := e.svc.Book(context.Background(), e.guest, e.request("B4,C1"))
	assert.ErrorIs(t, err, repository.ErrSeatTaken)
	ledger.AssertNotCalled(t, "CreateWithSeats", mock.Anything, mock.Anything, mock.Anything)
	ledger.AssertExpectations(t)
}

func TestBookPublishesConfirmation(t *testing.T) {
	e := newEnv(t)
	pub := &publisherMock{}
	pub.On("PublishReservationConfirmed", mock.Anything, mock.MatchedBy(func(ev queue.ReservationConfirmedEvent) bool {
		return ev.Username == "guest" && ev.TotalCents == 2500 && ev.StartAt == "14:00" &&
			ev.Date == "2025-06-05" && len(ev.Seats) == 2
	})).Return(errors.New("broker down")).Once()
	e.svc.events = pub
	e.svc.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }

	_, err := e.svc.Book(context.Background(), e.guest, e.request("A1,A2"))
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestBookRejectsTotalOverflow(t *testing.T) {
	e := newEnv(t)
	pricey := &model.Showtime{MovieID: e.movie.ID, CinemaID: e.cinema.ID, ScreenID: e.screen.ID, StartAt: "21:00:00",
		StartDate: e.showtime.StartDate, EndDate: e.showtime.EndDate, TicketPrice: 120000000}
	require.NoError(t, e.shows.Create(context.Background(), pricey))

	seats := make([]string, 40)
	for i := range seats {
		seats[i] = fmt.Sprintf("A%d", i+1)
	}
	req := e.request(strings.Join(seats, ","))
	req.Time = "21:00"
	_, err := e.svc.Book(context.Background(), e.guest, req)
	assert.ErrorIs(t, err, repository.ErrValidation)
	assert.Equal(t, 0, e.count(t))

	req.Seats = strings.Join(seats[:35], ",")
	got, err := e.svc.Book(context.Background(), e.guest, req)
	require.NoError(t, err)
	assert.Equal(t, uint32(4200000000), got.Total)
	assert.Equal(t, "42000000.00", model.FormatCents(got.Total))
}

func TestBookRejectsOversizedSeatLabel(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Book(context.Background(), e.guest, e.request("A1,"+strings.Repeat("B", model.MaxSeatLabelLen+1)))
	assert.ErrorIs(t, err, repository.ErrValidation)
	assert.Equal(t, 0, e.count(t))

	_, err = e.svc.Book(context.Background(), e.guest, e.request(strings.Repeat("C", model.MaxSeatLabelLen)))
	require.NoError(t, err)
}

func TestBookTreatsLabelCaseAsDistinctSeats(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Book(context.Background(), e.guest, e.request("A1"))
	require.NoError(t, err)
	_, err = e.svc.Book(context.Background(), e.guest, e.request("a1"))
	require.NoError(t, err)
	assert.Equal(t, 2, e.count(t))
}
