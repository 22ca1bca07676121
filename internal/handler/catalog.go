package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/repository"
)

// CatalogHandler serves the public, unauthenticated browsing endpoints.
type CatalogHandler struct {
	Movies    *repository.MovieRepo
	Cinemas   *repository.CinemaRepo
	Screens   *repository.ScreenRepo
	Showtimes *repository.ShowtimeRepo
	Now       func() time.Time
}

// NewCatalogHandler reads the clock from time.Now.
func NewCatalogHandler(movies *repository.MovieRepo, cinemas *repository.CinemaRepo,
	screens *repository.ScreenRepo, showtimes *repository.ShowtimeRepo) *CatalogHandler {
	return &CatalogHandler{Movies: movies, Cinemas: cinemas, Screens: screens, Showtimes: showtimes, Now: time.Now}
}

func (h *CatalogHandler) today() time.Time { return model.TruncateDay(h.Now().UTC()) }

// ListMovies handles GET /v1/movies?category=nowshowing|comingsoon. Any other
// category, or none, returns the whole catalog.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	category := strings.ToLower(strings.TrimSpace(c.QueryParam("category")))
	var (
		movies []model.Movie
		err    error
	)
	switch category {
	case "nowshowing":
		movies, err = h.Movies.ListNowShowing(ctx, h.today())
	case "comingsoon":
		movies, err = h.Movies.ListComingSoon(ctx, h.today())
	default:
		category = "all"
		movies, err = h.Movies.List(ctx)
	}
	if err != nil {
		return fail(c, err)
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return c.JSON(http.StatusOK, echo.Map{"category": category, "items": movies})
}

// GetMovie handles GET /v1/movies/:id with the showtimes still running.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	movie, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	showtimes, err := h.Showtimes.ListByMovie(ctx, id, h.today())
	if err != nil {
		return fail(c, err)
	}
	if showtimes == nil {
		showtimes = []model.ShowtimeDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"movie": movie, "showtimes": showtimes})
}

// ListCinemas handles GET /v1/cinemas.
func (h *CatalogHandler) ListCinemas(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	cinemas, err := h.Cinemas.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	if cinemas == nil {
		cinemas = []model.Cinema{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": cinemas})
}

// BookingOptions handles GET /book/:movieId: the movie with every cinema and
// screen it plays in and the running showtimes. A bookingError query
// parameter, set by a failed form submission, is echoed back.
func (h *CatalogHandler) BookingOptions(c echo.Context) error {
	id, err := paramID(c, "movieId")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	movie, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	showtimes, err := h.Showtimes.ListByMovie(ctx, id, h.today())
	if err != nil {
		return fail(c, err)
	}

	cinemaIDs := map[uint64]bool{}
	screenIDs := map[uint64]bool{}
	for _, st := range showtimes {
		cinemaIDs[st.CinemaID] = true
		screenIDs[st.ScreenID] = true
	}
	cinemas := []model.Cinema{}
	all, err := h.Cinemas.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	for _, cin := range all {
		if cinemaIDs[cin.ID] {
			cinemas = append(cinemas, cin)
		}
	}
	screens := []model.Screen{}
	allScreens, err := h.Screens.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	for _, s := range allScreens {
		if screenIDs[s.ID] {
			screens = append(screens, s)
		}
	}
	if showtimes == nil {
		showtimes = []model.ShowtimeDetail{}
	}

	out := echo.Map{"movie": movie, "cinemas": cinemas, "screens": screens, "showtimes": showtimes}
	if msg := c.QueryParam("bookingError"); msg != "" {
		out["bookingError"] = msg
	}
	return c.JSON(http.StatusOK, out)
}
