package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/model"
)

// ListCinemas handles GET /admin/cinemas, scoped to the caller's cinemas.
func (h *AdminHandler) ListCinemas(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	list, err := scoped(id,
		func() ([]model.Cinema, error) { return h.Cinemas.ListAll(ctx) },
		func(o uint64) ([]model.Cinema, error) { return h.Cinemas.ListByOwner(ctx, o) })
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

type cinemaReq struct {
	Name string `json:"name" form:"name" validate:"required,max=150"`
	City string `json:"city" form:"city" validate:"required,max=100"`
}

// CreateCinema handles POST /admin/cinemas. The caller becomes the owner and
// the cinema starts with a default screen.
func (h *AdminHandler) CreateCinema(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	var req cinemaReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	owner := id.UserID
	cinema := &model.Cinema{OwnerID: &owner, Name: strings.TrimSpace(req.Name), City: strings.TrimSpace(req.City)}

	ctx, cancel := timeout(c)
	defer cancel()
	screen, err := h.Cinemas.Create(ctx, cinema)
	if err != nil {
		return fail(c, err)
	}
	log.Info().Uint64("cinema_id", cinema.ID).Str("by", id.Username).Msg("cinema created")
	return c.JSON(http.StatusCreated, echo.Map{"cinema": cinema, "screen": screen})
}

// UploadCinemaImage handles POST /admin/cinemas/:id/image.
func (h *AdminHandler) UploadCinemaImage(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	cinemaID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if _, err := h.managedCinema(ctx, id, cinemaID); err != nil {
		return fail(c, err)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return fail(c, invalid("image file is required"))
	}
	url, err := h.Store.Save("cinemas", fh)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Cinemas.SetImage(ctx, cinemaID, url); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"imageUrl": url})
}

// DeleteCinema handles DELETE /admin/cinemas/:id. It is refused while
// showtimes or reservations reference the cinema.
func (h *AdminHandler) DeleteCinema(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	cinemaID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if _, err := h.managedCinema(ctx, id, cinemaID); err != nil {
		return fail(c, err)
	}
	if err := h.Cinemas.Delete(ctx, cinemaID); err != nil {
		return fail(c, err)
	}
	log.Info().Uint64("cinema_id", cinemaID).Str("by", id.Username).Msg("cinema deleted")
	return c.NoContent(http.StatusNoContent)
}

// ListScreens handles GET /admin/screens.
func (h *AdminHandler) ListScreens(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	list, err := scoped(id,
		func() ([]model.Screen, error) { return h.Screens.ListAll(ctx) },
		func(o uint64) ([]model.Screen, error) { return h.Screens.ListByOwner(ctx, o) })
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

type screenReq struct {
	CinemaID  uint64 `json:"cinemaId" form:"cinemaId" validate:"required"`
	Name      string `json:"name" form:"name" validate:"required,max=100"`
	RowsCount int    `json:"rowsCount" form:"rowsCount" validate:"gte=1,lte=50"`
	ColsCount int    `json:"colsCount" form:"colsCount" validate:"gte=1,lte=50"`
}

// CreateScreen handles POST /admin/screens for a cinema the caller manages.
func (h *AdminHandler) CreateScreen(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	var req screenReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if _, err := h.managedCinema(ctx, id, req.CinemaID); err != nil {
		return fail(c, err)
	}
	screen := &model.Screen{CinemaID: req.CinemaID, Name: strings.TrimSpace(req.Name), RowsCount: req.RowsCount, ColsCount: req.ColsCount}
	if err := h.Screens.Create(ctx, screen); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, screen)
}

// DeleteScreen handles DELETE /admin/screens/:id.
func (h *AdminHandler) DeleteScreen(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	screenID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	screen, err := h.Screens.GetByID(ctx, screenID)
	if err != nil {
		return fail(c, err)
	}
	if _, err := h.managedCinema(ctx, id, screen.CinemaID); err != nil {
		return fail(c, err)
	}
	if err := h.Screens.Delete(ctx, screenID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListShowtimes handles GET /admin/showtimes.
func (h *AdminHandler) ListShowtimes(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	list, err := scoped(id,
		func() ([]model.ShowtimeDetail, error) { return h.Showtimes.ListAll(ctx) },
		func(o uint64) ([]model.ShowtimeDetail, error) { return h.Showtimes.ListByOwner(ctx, o) })
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

type showtimeReq struct {
	MovieID     uint64 `json:"movieId" form:"movieId" validate:"required"`
	CinemaID    uint64 `json:"cinemaId" form:"cinemaId" validate:"required"`
	ScreenID    uint64 `json:"screenId" form:"screenId" validate:"required"`
	StartAt     string `json:"startAt" form:"startAt" validate:"required,clock"`
	StartDate   string `json:"startDate" form:"startDate" validate:"required,day"`
	EndDate     string `json:"endDate" form:"endDate" validate:"required,day"`
	TicketPrice string `json:"ticketPrice" form:"ticketPrice" validate:"required"` // decimal, e.g. "12.50"
}

// CreateShowtime handles POST /admin/showtimes. The screen must belong to
// the cinema and the slot must not overlap an existing showtime of the same
// movie, screen and start time.
func (h *AdminHandler) CreateShowtime(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	var req showtimeReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	startAt, _ := model.ParseClock(req.StartAt)
	startDate, _ := model.ParseDay(req.StartDate)
	endDate, _ := model.ParseDay(req.EndDate)
	if endDate.Before(startDate) {
		return fail(c, invalid("endDate must not be before startDate"))
	}
	price, err := model.ParseCents(req.TicketPrice)
	if err != nil {
		return fail(c, invalid("%v", err))
	}

	ctx, cancel := timeout(c)
	defer cancel()
	if _, err := h.Movies.GetByID(ctx, req.MovieID); err != nil {
		return fail(c, err)
	}
	if _, err := h.managedCinema(ctx, id, req.CinemaID); err != nil {
		return fail(c, err)
	}
	screen, err := h.Screens.GetByID(ctx, req.ScreenID)
	if err != nil {
		return fail(c, err)
	}
	if screen.CinemaID != req.CinemaID {
		return fail(c, invalid("screen does not belong to the selected cinema"))
	}

	st := &model.Showtime{
		MovieID:     req.MovieID,
		CinemaID:    req.CinemaID,
		ScreenID:    req.ScreenID,
		StartAt:     startAt,
		StartDate:   startDate,
		EndDate:     endDate,
		TicketPrice: price,
	}
	if err := h.Showtimes.Create(ctx, st); err != nil {
		return fail(c, err)
	}
	log.Info().Uint64("showtime_id", st.ID).Str("by", id.Username).Msg("showtime created")
	return c.JSON(http.StatusCreated, st)
}

// DeleteShowtime handles DELETE /admin/showtimes/:id. It is refused once a
// reservation exists for one of its occurrences.
func (h *AdminHandler) DeleteShowtime(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	showtimeID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	st, err := h.Showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return fail(c, err)
	}
	if _, err := h.managedCinema(ctx, id, st.CinemaID); err != nil {
		return fail(c, err)
	}
	if err := h.Showtimes.Delete(ctx, showtimeID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
