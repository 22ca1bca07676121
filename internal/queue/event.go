// Package queue publishes and consumes reservation events over RabbitMQ.
package queue

// ReservationQueue is the durable queue carrying ReservationConfirmedEvent.
const ReservationQueue = "reservation.confirmed"

// ReservationConfirmedEvent is published after a booking commits. It carries
// enough to audit the booking without reading the database.
type ReservationConfirmedEvent struct {
	ReservationID uint64   `json:"reservation_id"`
	Username      string   `json:"username"`
	MovieID       uint64   `json:"movie_id"`
	MovieTitle    string   `json:"movie_title"`
	CinemaID      uint64   `json:"cinema_id"`
	CinemaName    string   `json:"cinema_name"`
	ScreenID      uint64   `json:"screen_id"`
	ScreenName    string   `json:"screen_name"`
	Date          string   `json:"date"`
	StartAt       string   `json:"start_at"`
	Seats         []string `json:"seats"`
	TotalCents    uint32   `json:"total_cents"`
	ConfirmedAt   string   `json:"confirmed_at"`
}
