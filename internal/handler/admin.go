package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/authz"
	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/repository"
	"github.com/iliyamo/moviestore/internal/storage"
)

// AdminHandler bundles the repositories behind the /admin routes. Every
// route is reachable by ADMIN and SUPERADMIN; mutations of a cinema or
// anything inside it additionally pass authz.CanManageCinema.
type AdminHandler struct {
	Users        *repository.UserRepo
	Movies       *repository.MovieRepo
	Cinemas      *repository.CinemaRepo
	Screens      *repository.ScreenRepo
	Showtimes    *repository.ShowtimeRepo
	Reservations *repository.ReservationRepo
	Store        *storage.Store
}

// NewAdminHandler panics when a dependency is missing.
func NewAdminHandler(users *repository.UserRepo, movies *repository.MovieRepo, cinemas *repository.CinemaRepo,
	screens *repository.ScreenRepo, showtimes *repository.ShowtimeRepo, reservations *repository.ReservationRepo,
	store *storage.Store) *AdminHandler {
	if users == nil || movies == nil || cinemas == nil || screens == nil || showtimes == nil || reservations == nil || store == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Users:        users,
		Movies:       movies,
		Cinemas:      cinemas,
		Screens:      screens,
		Showtimes:    showtimes,
		Reservations: reservations,
		Store:        store,
	}
}

// managedCinema loads a cinema and checks the caller may manage it.
func (h *AdminHandler) managedCinema(ctx context.Context, id authz.Identity, cinemaID uint64) (*model.Cinema, error) {
	cinema, err := h.Cinemas.GetByID(ctx, cinemaID)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageCinema(id, cinema) {
		return nil, fmt.Errorf("%w: you don't have permission to manage cinema %d", repository.ErrForbidden, cinemaID)
	}
	return cinema, nil
}

// scoped lists every row for a superadmin and the caller's own rows otherwise.
func scoped[T any](id authz.Identity, all func() ([]T, error), owned func(uint64) ([]T, error)) ([]T, error) {
	var (
		out []T
		err error
	)
	if owner := id.OwnerScope(); owner != nil {
		out, err = owned(*owner)
	} else {
		out, err = all()
	}
	if out == nil {
		out = []T{}
	}
	return out, err
}

// Dashboard handles GET /admin/dashboard. Venue counts follow the caller's
// scope; user and movie counts are global.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	owner := id.OwnerScope()
	counts := map[string]int{}
	if counts["users"], err = h.Users.Count(ctx); err != nil {
		return fail(c, err)
	}
	if counts["movies"], err = h.Movies.Count(ctx); err != nil {
		return fail(c, err)
	}
	if counts["cinemas"], err = h.Cinemas.Count(ctx, owner); err != nil {
		return fail(c, err)
	}
	if counts["showtimes"], err = h.Showtimes.Count(ctx, owner); err != nil {
		return fail(c, err)
	}
	if counts["reservations"], err = h.Reservations.Count(ctx, owner); err != nil {
		return fail(c, err)
	}
	screens, err := scoped(id,
		func() ([]model.Screen, error) { return h.Screens.ListAll(ctx) },
		func(o uint64) ([]model.Screen, error) { return h.Screens.ListByOwner(ctx, o) })
	if err != nil {
		return fail(c, err)
	}
	counts["screens"] = len(screens)
	return c.JSON(http.StatusOK, echo.Map{"role": id.Role, "counts": counts})
}

// ListReservations handles GET /admin/reservations.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	list, err := scoped(id,
		func() ([]model.ReservationDetail, error) { return h.Reservations.ListAll(ctx) },
		func(o uint64) ([]model.ReservationDetail, error) { return h.Reservations.ListByOwner(ctx, o) })
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// DeleteReservation handles DELETE /admin/reservations/:id and frees its seats.
func (h *AdminHandler) DeleteReservation(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
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
	if _, err := h.managedCinema(ctx, id, res.CinemaID); err != nil {
		return fail(c, err)
	}
	if err := h.Reservations.Delete(ctx, resID); err != nil {
		return fail(c, err)
	}
	log.Info().Uint64("reservation_id", resID).Str("by", id.Username).Msg("reservation deleted")
	return c.NoContent(http.StatusNoContent)
}

// ListUsers handles GET /admin/users (superadmin only).
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

type roleReq struct {
	Role string `json:"role" form:"role" validate:"required,oneof=GUEST ADMIN SUPERADMIN"`
}

// UpdateUserRole handles PUT /admin/users/:id/role (superadmin only).
func (h *AdminHandler) UpdateUserRole(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	userID, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req roleReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.Users.UpdateRole(ctx, userID, model.Role(req.Role)); err != nil {
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	log.Info().Uint64("user_id", userID).Str("role", req.Role).Str("by", id.Username).Msg("role changed")
	return c.JSON(http.StatusOK, u)
}
