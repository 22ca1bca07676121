package model

import "time"

// Default grid for the screen created together with a new cinema.
const (
	DefaultScreenName = "Screen 1"
	DefaultScreenRows = 8
	DefaultScreenCols = 10
)

// Screen is an auditorium inside a cinema. RowsCount and ColsCount describe
// the seating grid shown to clients; seat labels are not checked against it.
type Screen struct {
	ID        uint64    `json:"id"`        // screens.id
	CinemaID  uint64    `json:"cinemaId"`  // screens.cinema_id
	Name      string    `json:"name"`      // screens.name
	RowsCount int       `json:"rowsCount"` // screens.rows_count
	ColsCount int       `json:"colsCount"` // screens.cols_count
	CreatedAt time.Time `json:"createdAt"` // screens.created_at
}
