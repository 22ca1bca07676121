package model

import "time"

// Movie is a catalog entry. ReleaseDate and EndDate bound the exhibition
// window; a movie is deleted only when no showtime references it.
type Movie struct {
	ID          uint64    `json:"id"`          // movies.id
	Title       string    `json:"title"`       // movies.title
	ImageURL    string    `json:"imageUrl"`    // movies.image_url
	Language    string    `json:"language"`    // movies.language
	Genre       string    `json:"genre"`       // movies.genre
	Director    string    `json:"director"`    // movies.director
	Cast        string    `json:"cast"`        // movies.cast_list
	Description string    `json:"description"` // movies.description
	DurationMin int       `json:"durationMin"` // movies.duration_min
	ReleaseDate time.Time `json:"releaseDate"` // movies.release_date
	EndDate     time.Time `json:"endDate"`     // movies.end_date
	CreatedAt   time.Time `json:"createdAt"`   // movies.created_at
}

// NowShowing reports whether day falls inside the exhibition window.
func (m Movie) NowShowing(day time.Time) bool {
	d := TruncateDay(day)
	return !m.ReleaseDate.After(d) && !m.EndDate.Before(d)
}

// ComingSoon reports whether the movie has not been released yet on day.
func (m Movie) ComingSoon(day time.Time) bool {
	return m.ReleaseDate.After(TruncateDay(day))
}
