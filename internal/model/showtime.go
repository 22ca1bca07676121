package model

import "time"

// Showtime is a recurring daily slot: the movie plays on Screen at StartAt
// on every day of [StartDate, EndDate]. A concrete occurrence is the triple
// (screen, date, start time).
type Showtime struct {
	ID          uint64    `json:"id"`          // showtimes.id
	MovieID     uint64    `json:"movieId"`     // showtimes.movie_id
	CinemaID    uint64    `json:"cinemaId"`    // showtimes.cinema_id
	ScreenID    uint64    `json:"screenId"`    // showtimes.screen_id
	StartAt     string    `json:"startAt"`     // showtimes.start_at, canonical HH:MM:SS
	StartDate   time.Time `json:"startDate"`   // showtimes.start_date
	EndDate     time.Time `json:"endDate"`     // showtimes.end_date
	TicketPrice uint32    `json:"ticketPrice"` // showtimes.ticket_price_cents
	CreatedAt   time.Time `json:"createdAt"`   // showtimes.created_at
}

// Covers reports whether day is inside the active range.
func (s Showtime) Covers(day time.Time) bool {
	d := TruncateDay(day)
	return !s.StartDate.After(d) && !s.EndDate.Before(d)
}

// ShowtimeDetail is a showtime joined with the names clients display.
type ShowtimeDetail struct {
	Showtime
	MovieTitle string `json:"movieTitle"`
	CinemaName string `json:"cinemaName"`
	ScreenName string `json:"screenName"`
}
