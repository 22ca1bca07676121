package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/authz"
	"github.com/iliyamo/moviestore/internal/mail"
	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/repository"
	"github.com/iliyamo/moviestore/internal/ticket"
)

// Inviter sends reservation invitations; *mail.Mailer implements it.
type Inviter interface {
	Invite(ctx context.Context, inv mail.Invitation) (int, error)
}

// TicketEnsurer renders a missing QR ticket; *booking.Service implements it.
type TicketEnsurer interface {
	EnsureTicket(ctx context.Context, d *model.ReservationDetail) error
}

var _ Inviter = (*mail.Mailer)(nil)

// ReservationHandler serves the customer side of a reservation after it was
// booked: dashboard, payment, check-in and invitations.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo
	Cinemas      *repository.CinemaRepo
	Users        *repository.UserRepo
	Tickets      TicketEnsurer
	Mailer       Inviter
}

// NewReservationHandler panics when a dependency is missing.
func NewReservationHandler(res *repository.ReservationRepo, cinemas *repository.CinemaRepo,
	users *repository.UserRepo, tickets TicketEnsurer, mailer Inviter) *ReservationHandler {
	if res == nil || cinemas == nil || users == nil || tickets == nil || mailer == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: res, Cinemas: cinemas, Users: users, Tickets: tickets, Mailer: mailer}
}

// load returns reservation :id when the caller booked it, or manages its
// cinema when staffOK is set.
func (h *ReservationHandler) load(ctx context.Context, c echo.Context, staffOK bool) (*model.ReservationDetail, authz.Identity, error) {
	id, err := caller(c)
	if err != nil {
		return nil, id, err
	}
	resID, err := paramID(c, "id")
	if err != nil {
		return nil, id, err
	}
	res, err := h.Reservations.GetByID(ctx, resID)
	if err != nil {
		return nil, id, err
	}
	if res.Username == id.Username {
		return res, id, nil
	}
	if staffOK && id.IsStaff() {
		cinema, err := h.Cinemas.GetByID(ctx, res.CinemaID)
		if err != nil {
			return nil, id, err
		}
		if authz.CanManageCinema(id, cinema) {
			return res, id, nil
		}
	}
	return nil, id, fmt.Errorf("%w: reservation %d belongs to another user", repository.ErrForbidden, resID)
}

// Dashboard handles GET /mydashboard: the caller's profile and reservations.
// Tickets whose QR image is missing are rendered on the way.
func (h *ReservationHandler) Dashboard(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	user, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		return fail(c, err)
	}
	list, err := h.Reservations.ListByUsername(ctx, user.Username)
	if err != nil {
		return fail(c, err)
	}
	for i := range list {
		if err := h.Tickets.EnsureTicket(ctx, &list[i]); err != nil {
			log.Warn().Err(err).Uint64("reservation_id", list[i].ID).Msg("ticket render failed")
		}
	}
	if list == nil {
		list = []model.ReservationDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user, "reservations": list})
}

// Payment handles GET /payment/:id.
func (h *ReservationHandler) Payment(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	res, _, err := h.load(ctx, c, true)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": res,
		"ticketPrice": model.FormatCents(res.TicketPrice),
		"total":       model.FormatCents(res.Total),
	})
}

// ConfirmPayment handles POST /payment/:id/confirm. Confirming twice is a
// no-op.
func (h *ReservationHandler) ConfirmPayment(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	res, id, err := h.load(ctx, c, true)
	if err != nil {
		return fail(c, err)
	}
	if !res.Paid {
		if err := h.Reservations.MarkPaid(ctx, res.ID); err != nil {
			return fail(c, err)
		}
		res.Paid = true
		log.Info().Uint64("reservation_id", res.ID).Str("by", id.Username).Msg("payment confirmed")
	}
	return c.JSON(http.StatusOK, res)
}

// CheckIn handles POST /reservations/:id/checkin for the booker or the
// cinema's staff.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	res, _, err := h.load(ctx, c, true)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Reservations.MarkCheckedIn(ctx, res.ID); err != nil {
		return fail(c, err)
	}
	res.CheckedIn = true
	return c.JSON(http.StatusOK, res)
}

// PublicCheckIn handles GET /checkin/:id, the link sent in invitations. It
// needs no login.
func (h *ReservationHandler) PublicCheckIn(c echo.Context) error {
	resID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	res, err := h.Reservations.GetByID(ctx, resID)
	if err != nil {
		return fail(c, err)
	}
	if !res.CheckedIn {
		if err := h.Reservations.MarkCheckedIn(ctx, res.ID); err != nil {
			return fail(c, err)
		}
		res.CheckedIn = true
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservationId": res.ID,
		"movieTitle":    res.MovieTitle,
		"cinemaName":    res.CinemaName,
		"screenName":    res.ScreenName,
		"date":          model.FormatDay(res.ShowDate),
		"time":          model.ShortClock(res.StartAt),
		"seatLabels":    res.SeatLabels,
		"checkedIn":     res.CheckedIn,
	})
}

type inviteReq struct {
	Emails string `json:"emails" form:"emails" validate:"required"`
}

type recipient struct {
	Email string `json:"email" validate:"email"`
}

// Invite handles POST /reservations/:id/invite. Only the booker may invite.
func (h *ReservationHandler) Invite(c echo.Context) error {
	var req inviteReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	recipients := mail.ParseRecipients(req.Emails)
	if len(recipients) == 0 {
		return fail(c, invalid("at least one email address is required"))
	}
	for _, addr := range recipients {
		if err := c.Validate(recipient{Email: addr}); err != nil {
			return fail(c, invalid("%q is not a valid email address", addr))
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 4*requestTimeout)
	defer cancel()
	res, id, err := h.load(ctx, c, false)
	if err != nil {
		return fail(c, err)
	}
	host := id.Username
	if u, err := h.Users.GetByID(ctx, id.UserID); err == nil && u.Name != "" {
		host = u.Name
	}
	if err := h.Tickets.EnsureTicket(ctx, res); err != nil {
		log.Warn().Err(err).Uint64("reservation_id", res.ID).Msg("ticket render failed")
	}

	sent, err := h.Mailer.Invite(ctx, mail.Invitation{
		Host:       host,
		Recipients: recipients,
		Ticket:     ticket.FromDetail(*res),
		QRPath:     res.QRPath,
	})
	if err != nil {
		status := statusOf(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Uint64("reservation_id", res.ID).Msg("invite failed")
			msg = "unable to send invitations"
		}
		return c.JSON(status, echo.Map{"error": msg, "sent": sent})
	}
	return c.JSON(http.StatusOK, echo.Map{"sent": sent})
}
