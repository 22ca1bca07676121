// Package repository is the MySQL persistence layer: the movie catalog, the
// showtime registry, the reservation ledger, users and refresh tokens.
//
// Failures are reported with a small set of sentinel kinds that handlers map
// onto HTTP status codes. Entity-specific errors wrap a kind, so callers test
// with errors.Is against either.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound: a referenced row does not exist (404).
	ErrNotFound = errors.New("not found")
	// ErrValidation: malformed input or a refused deletion (400).
	ErrValidation = errors.New("invalid request")
	// ErrConflict: the write collides with existing state, e.g. a taken seat (409).
	ErrConflict = errors.New("conflict")
	// ErrForbidden: the caller may not act on the resource (403).
	ErrForbidden = errors.New("forbidden")
	// ErrExternal: a collaborator such as the mail relay failed (502).
	ErrExternal = errors.New("external service error")
)

var (
	ErrMovieNotFound       = fmt.Errorf("movie %w", ErrNotFound)
	ErrCinemaNotFound      = fmt.Errorf("cinema %w", ErrNotFound)
	ErrScreenNotFound      = fmt.Errorf("screen %w", ErrNotFound)
	ErrShowtimeNotFound    = fmt.Errorf("showtime %w", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)

	ErrUserExists   = fmt.Errorf("%w: username, email or phone already registered", ErrConflict)
	ErrSeatTaken    = fmt.Errorf("%w: one or more selected seats are already reserved", ErrConflict)
	ErrTokenRevoked = fmt.Errorf("refresh token %w", ErrNotFound)
)

// isDuplicateKey recognises unique-constraint violations from MySQL (1062)
// and from SQLite used in tests.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
