package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/moviestore/internal/authz"
)

const identityKey = "identity"

// Identity returns the caller placed on the context by JWTAuth.
func Identity(c echo.Context) (authz.Identity, bool) {
	id, ok := c.Get(identityKey).(authz.Identity)
	return id, ok
}

// SetIdentity is used by JWTAuth and by tests that bypass token parsing.
func SetIdentity(c echo.Context, id authz.Identity) {
	c.Set(identityKey, id)
}

// userKey renders the caller for rate limit and log keys; "anon" without a
// token.
func userKey(c echo.Context) string {
	if id, ok := Identity(c); ok && id.UserID != 0 {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
