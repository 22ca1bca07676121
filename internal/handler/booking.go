package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/booking"
	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/repository"
)

// BookingHandler exposes the seat picker and the booking submission.
type BookingHandler struct {
	Booking *booking.Service
	Users   *repository.UserRepo
}

// NewBookingHandler panics when a dependency is missing.
func NewBookingHandler(svc *booking.Service, users *repository.UserRepo) *BookingHandler {
	if svc == nil || users == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Booking: svc, Users: users}
}

type seatQuery struct {
	CinemaID uint64 `query:"cinemaId" validate:"required"`
	ScreenID uint64 `query:"screenId" validate:"required"`
	Date     string `query:"date" validate:"required,day"`
	Time     string `query:"time" validate:"required,clock"`
}

type bookReq struct {
	MovieID    uint64 `json:"movieId" form:"movieId"`
	CinemaID   uint64 `json:"cinemaId" form:"cinemaId" validate:"required"`
	ScreenID   uint64 `json:"screenId" form:"screenId" validate:"required"`
	Date       string `json:"date" form:"date" validate:"required,day"`
	Time       string `json:"time" form:"time" validate:"required,clock"`
	SeatLabels string `json:"seatLabels" form:"seatLabels" validate:"required"`
}

// Seats handles GET /book/seats. A screen outside the given cinema yields
// an empty map rather than an error.
func (h *BookingHandler) Seats(c echo.Context) error {
	var q seatQuery
	if err := bind(c, &q); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	m, err := h.Booking.SeatMap(ctx, q.CinemaID, q.ScreenID, q.Date, q.Time)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func isFormPost(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm)
}

// Book handles POST /book. JSON clients get 201 with the reservation; form
// submissions are redirected to the payment page, or back to the booking
// page with a bookingError message.
func (h *BookingHandler) Book(c echo.Context) error {
	var req bookReq
	res, err := h.book(c, &req)
	if !isFormPost(c) || req.MovieID == 0 {
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, res)
	}
	if err == nil {
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/payment/%d", res.ID))
	}

	msg := err.Error()
	if statusOf(err) == http.StatusInternalServerError {
		log.Error().Err(err).Uint64("movie_id", req.MovieID).Msg("booking failed")
		msg = "Unable to complete reservation."
	}
	return c.Redirect(http.StatusSeeOther,
		fmt.Sprintf("/book/%d?bookingError=%s", req.MovieID, url.QueryEscape(msg)))
}

func (h *BookingHandler) book(c echo.Context, req *bookReq) (*model.ReservationDetail, error) {
	if err := bind(c, req); err != nil {
		return nil, err
	}
	if req.MovieID == 0 {
		return nil, invalid("movieId is required")
	}
	id, err := caller(c)
	if err != nil {
		return nil, err
	}
	ctx, cancel := timeout(c)
	defer cancel()

	user, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return h.Booking.Book(ctx, user, booking.Request{
		MovieID:  req.MovieID,
		CinemaID: req.CinemaID,
		ScreenID: req.ScreenID,
		Date:     req.Date,
		Time:     req.Time,
		Seats:    req.SeatLabels,
	})
}
