// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/moviestore/internal/config"
	"github.com/iliyamo/moviestore/internal/handler"
	"github.com/iliyamo/moviestore/internal/middleware"
	"github.com/iliyamo/moviestore/internal/storage"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Catalog     *handler.CatalogHandler
	Booking     *handler.BookingHandler
	Reservation *handler.ReservationHandler
	Admin       *handler.AdminHandler
}

// Options carries the settings of the shared middleware.
type Options struct {
	JWTSecret string
	UploadDir string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client // may be nil
}

// New builds the Echo instance with every route registered.
func New(h Handlers, opt Options, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(logger))

	limiter := middleware.NewTokenBucket(opt.RateLimit, opt.Redis)
	cache := middleware.NewRedisCache(opt.Cache, opt.Redis)

	e.GET("/healthz", h.Health.Health)
	e.Static(storage.PublicPrefix, opt.UploadDir)

	RegisterPublic(e, h.Catalog, h.Booking, h.Reservation, cache)
	RegisterAuth(e, h.Auth, opt.JWTSecret, limiter)
	RegisterCustomer(e, h.Booking, h.Reservation, h.Auth, opt.JWTSecret, limiter)
	RegisterAdmin(e, h.Admin, opt.JWTSecret)
	return e
}

// RegisterPublic registers the unauthenticated routes. Catalog reads go
// through the response cache; the seat map never does.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, b *handler.BookingHandler,
	r *handler.ReservationHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/movies", cat.ListMovies, cache)
	e.GET("/v1/movies/:id", cat.GetMovie, cache)
	e.GET("/v1/cinemas", cat.ListCinemas, cache)
	e.GET("/book/:movieId", cat.BookingOptions)
	e.GET("/book/seats", b.Seats)
	e.GET("/checkin/:id", r.PublicCheckIn)
}

// RegisterAuth registers account routes. Logout works with either a refresh
// token in the body or a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	me := e.Group("/v1/me", middleware.JWTAuth(jwtSecret))
	me.GET("", a.Me)
	me.POST("/image", a.UploadImage)
}
