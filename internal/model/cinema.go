package model

import "time"

// Cinema is a venue. OwnerID is nil only for rows created before any admin
// existed.
type Cinema struct {
	ID        uint64    `json:"id"`        // cinemas.id
	OwnerID   *uint64   `json:"ownerId"`   // cinemas.owner_id (nullable)
	Name      string    `json:"name"`      // cinemas.name
	City      string    `json:"city"`      // cinemas.city
	ImageURL  string    `json:"imageUrl"`  // cinemas.image_url
	CreatedAt time.Time `json:"createdAt"` // cinemas.created_at
}

// OwnedBy reports whether userID owns the cinema.
func (c Cinema) OwnedBy(userID uint64) bool {
	return c.OwnerID != nil && *c.OwnerID == userID
}
