// Package handler contains the Echo handlers of the JSON API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/moviestore/internal/authz"
	"github.com/iliyamo/moviestore/internal/middleware"
	"github.com/iliyamo/moviestore/internal/repository"
	"github.com/iliyamo/moviestore/internal/storage"
)

const requestTimeout = 5 * time.Second

// statusOf maps an error kind onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrValidation),
		errors.Is(err, storage.ErrNotImage),
		errors.Is(err, storage.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrExternal):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": msg}. Internal errors are logged and hidden.
func fail(c echo.Context, err error) error {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("route", c.Path()).Msg("request failed")
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", repository.ErrValidation, fmt.Sprintf(format, args...))
}

func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, invalid("invalid %s", name)
	}
	return id, nil
}

func timeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// caller returns the identity set by JWTAuth. Routes that call it are
// always behind that middleware.
func caller(c echo.Context) (authz.Identity, error) {
	id, ok := middleware.Identity(c)
	if !ok {
		return authz.Identity{}, fmt.Errorf("%w: login required", repository.ErrForbidden)
	}
	return id, nil
}

// bind decodes the request into dst and runs the registered validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return invalid("invalid request body")
	}
	return c.Validate(dst)
}
