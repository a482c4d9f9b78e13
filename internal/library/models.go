// Package library is the media registry: it owns the single reference
// video slot and the ordered pool of raw footage.
package library

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleReference Role = "reference"
	RoleRaw       Role = "raw"
)

func (r Role) Valid() bool {
	return r == RoleReference || r == RoleRaw
}

// Category tags a raw video with the part of the wedding it covers.
type Category string

const (
	CategoryMakingOfBride Category = "making_of_bride"
	CategoryMakingOfGroom Category = "making_of_groom"
	CategoryCeremony      Category = "ceremony"
	CategoryDecoration    Category = "decoration"
	CategoryParty         Category = "party"
	CategoryUnknown       Category = "unknown"
)

// Categories returns every valid category, the known ones first.
func Categories() []Category {
	return []Category{
		CategoryMakingOfBride,
		CategoryMakingOfGroom,
		CategoryCeremony,
		CategoryDecoration,
		CategoryParty,
		CategoryUnknown,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryMakingOfBride, CategoryMakingOfGroom, CategoryCeremony,
		CategoryDecoration, CategoryParty, CategoryUnknown:
		return true
	default:
		return false
	}
}

// MediaItem is one registered video. The locator is an opaque handle
// (typically a file:// URI) the runtime can resolve to bytes.
type MediaItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Locator   string    `json:"locator"`
	Role      Role      `json:"role"`
	SizeBytes int64     `json:"size_bytes"`
	Category  Category  `json:"category,omitempty"`
	DurationS float64   `json:"duration_s,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewID() string {
	return uuid.NewString()
}
