package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/moviestore/internal/handler"
	"github.com/iliyamo/moviestore/internal/middleware"
	"github.com/iliyamo/moviestore/internal/model"
)

// RegisterCustomer registers the routes of a signed-in user of any role:
// booking, the personal dashboard, payment, check-in and invitations.
// Ownership of a reservation is checked in the handlers.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, r *handler.ReservationHandler,
	a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	signedIn := func(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		return append([]echo.MiddlewareFunc{
			middleware.JWTAuth(jwtSecret),
			middleware.RequireRole(model.RoleGuest, model.RoleAdmin, model.RoleSuperAdmin),
		}, extra...)
	}
	// Registered route by route: a group with an empty prefix would also
	// answer unknown paths with 401.
	e.POST("/book", b.Book, signedIn(limiter)...)
	e.GET("/mydashboard", r.Dashboard, signedIn()...)
	e.POST("/profile/image", a.UploadImage, signedIn()...)
	e.GET("/payment/:id", r.Payment, signedIn()...)
	e.POST("/payment/:id/confirm", r.ConfirmPayment, signedIn()...)
	e.POST("/reservations/:id/checkin", r.CheckIn, signedIn()...)
	e.POST("/reservations/:id/invite", r.Invite, signedIn(limiter)...)
}
