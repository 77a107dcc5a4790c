package catalog

import "time"

// Artwork is a published portfolio piece. Records live in the "art"
// collection in insertion order; id and createdAt are fixed at creation.
type Artwork struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	IsActive    bool      `json:"isActive"`
}

// Draft carries the caller-supplied fields for a new artwork. IsActive is a
// pointer so an omitted value can default to true.
type Draft struct {
	Title       string
	Category    string
	Image       string
	Description string
	IsActive    *bool
}

// Patch describes a partial update. Nil fields are left untouched on the
// stored record; id and createdAt are never patchable.
type Patch struct {
	Title       *string
	Category    *string
	Image       *string
	Description *string
	IsActive    *bool
}

func (p Patch) apply(artwork *Artwork) {
	if p.Title != nil {
		artwork.Title = *p.Title
	}
	if p.Category != nil {
		artwork.Category = *p.Category
	}
	if p.Image != nil {
		artwork.Image = *p.Image
	}
	if p.Description != nil {
		artwork.Description = *p.Description
	}
	if p.IsActive != nil {
		artwork.IsActive = *p.IsActive
	}
}
