package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/moviestore/internal/handler"
	"github.com/iliyamo/moviestore/internal/middleware"
	"github.com/iliyamo/moviestore/internal/model"
)

// RegisterAdmin registers the /admin routes for ADMIN and SUPERADMIN.
// Cinema ownership is enforced per request by the handlers; user management
// is limited to SUPERADMIN here.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin),
	)
	g.GET("/dashboard", h.Dashboard)

	g.GET("/movies", h.ListMovies)
	g.POST("/movies", h.CreateMovie)
	g.PUT("/movies/:id", h.UpdateMovie)
	g.POST("/movies/:id/image", h.UploadMovieImage)
	g.DELETE("/movies/:id", h.DeleteMovie)

	g.GET("/cinemas", h.ListCinemas)
	g.POST("/cinemas", h.CreateCinema)
	g.POST("/cinemas/:id/image", h.UploadCinemaImage)
	g.DELETE("/cinemas/:id", h.DeleteCinema)

	g.GET("/screens", h.ListScreens)
	g.POST("/screens", h.CreateScreen)
	g.DELETE("/screens/:id", h.DeleteScreen)

	g.GET("/showtimes", h.ListShowtimes)
	g.POST("/showtimes", h.CreateShowtime)
	g.DELETE("/showtimes/:id", h.DeleteShowtime)

	g.GET("/reservations", h.ListReservations)
	g.DELETE("/reservations/:id", h.DeleteReservation)

	su := g.Group("/users", middleware.RequireRole(model.RoleSuperAdmin))
	su.GET("", h.ListUsers)
	su.PUT("/:id/role", h.UpdateUserRole)
}
