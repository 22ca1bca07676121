// Package middleware contains the Echo middleware of the HTTP API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/moviestore/internal/authz"
	"github.com/iliyamo/moviestore/internal/model"
	"github.com/iliyamo/moviestore/internal/utils"
)

// JWTAuth requires a valid Bearer access token and stores the caller's
// authz.Identity on the context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, status, msg := authenticate(c, secret)
			if status != 0 {
				return c.JSON(status, echo.Map{"error": msg})
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalJWT attaches the identity when a valid token is present and lets
// anonymous requests through unchanged.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, status, _ := authenticate(c, secret); status == 0 {
				SetIdentity(c, id)
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, secret string) (authz.Identity, int, string) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return authz.Identity{}, http.StatusUnauthorized, "missing bearer token"
	}
	claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return authz.Identity{}, http.StatusUnauthorized, "invalid token"
	}
	uid, err := claims.UserID()
	if err != nil || uid == 0 {
		return authz.Identity{}, http.StatusUnauthorized, "invalid claims"
	}
	role := model.Role(claims.Role)
	if !role.Valid() {
		return authz.Identity{}, http.StatusUnauthorized, "invalid claims"
	}
	return authz.Identity{UserID: uid, Username: claims.Username, Role: role}, 0, ""
}
