package model

import "time"

// SeatSeparator joins seat labels in Reservation.SeatLabels.
const SeatSeparator = ", "

// Reservation is a booking for one occurrence. TicketPrice is copied from the
// matched showtime at booking time and Total = TicketPrice * seat count; both
// are in cents.
type Reservation struct {
	ID          uint64    `json:"id"`          // reservations.id
	MovieID     uint64    `json:"movieId"`     // reservations.movie_id
	CinemaID    uint64    `json:"cinemaId"`    // reservations.cinema_id
	ScreenID    uint64    `json:"screenId"`    // reservations.screen_id
	ShowDate    time.Time `json:"date"`        // reservations.show_date
	StartAt     string    `json:"startAt"`     // reservations.start_at
	SeatLabels  string    `json:"seatLabels"`  // reservations.seat_labels
	TicketPrice uint32    `json:"ticketPrice"` // reservations.ticket_price_cents
	Total       uint32    `json:"total"`       // reservations.total_cents
	Username    string    `json:"username"`    // reservations.username
	Phone       string    `json:"phone"`       // reservations.phone
	Paid        bool      `json:"paid"`        // reservations.paid
	CheckedIn   bool      `json:"checkedIn"`   // reservations.checked_in
	QRPath      string    `json:"qrPath"`      // reservations.qr_path
	CreatedAt   time.Time `json:"createdAt"`   // reservations.created_at
}

// ReservationDetail carries the display names the dashboards and the ticket
// need alongside the reservation row.
type ReservationDetail struct {
	Reservation
	MovieTitle string `json:"movieTitle"`
	CinemaName string `json:"cinemaName"`
	ScreenName string `json:"screenName"`
}
