// internal/domain/listing/listing.go

package listing

import (
	"fmt"
	"time"
)

// Type identifies the property category of a listing
type Type string

const (
	TypeApartment Type = "apartment"
	TypeHouse     Type = "house"
)

// ValidType reports whether t is one of the known property categories
func ValidType(t Type) bool {
	return t == TypeApartment || t == TypeHouse
}

// Listing represents a property record in the catalog
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Beds        int       `json:"beds"`
	Baths       float64   `json:"baths"`
	Sqft        float64   `json:"sqft"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	Type        Type      `json:"type"`
	Featured    bool      `json:"featured"`
	Address     string    `json:"address"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	OldPrice    *float64  `json:"oldPrice,omitempty"`
	Features    []string  `json:"features"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FillDefaults normalizes a decoded listing so that every field the catalog
// guarantees is present: slices are never nil, the category is never empty
// and coordinates default to 0,0 rather than being absent.
func (l *Listing) FillDefaults() {
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.Features == nil {
		l.Features = []string{}
	}
	if l.Type == "" {
		l.Type = TypeApartment
	}
}

// Validate checks the field constraints for a new listing
func (l Listing) Validate() error {
	if l.Title == "" {
		return fmt.Errorf("listing title is required")
	}
	if l.Price < 0 {
		return fmt.Errorf("listing price must be non-negative")
	}
	if !ValidType(l.Type) {
		return fmt.Errorf("unknown listing type %q", l.Type)
	}
	return nil
}

// Patch is a partial update to a listing. Nil fields are left untouched.
// SetImages replaces the whole image sequence; callers appending images merge
// against the current sequence before setting it.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Beds        *int      `json:"beds,omitempty"`
	Baths       *float64  `json:"baths,omitempty"`
	Sqft        *float64  `json:"sqft,omitempty"`
	Description *string   `json:"description,omitempty"`
	SetImages   *[]string `json:"images,omitempty"`
	VideoURL    *string   `json:"videoUrl,omitempty"`
	Type        *Type     `json:"type,omitempty"`
	Featured    *bool     `json:"featured,omitempty"`
	Address     *string   `json:"address,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	OldPrice    *float64  `json:"oldPrice,omitempty"`
	Features    *[]string `json:"features,omitempty"`
}

// IsEmpty reports whether the patch modifies nothing
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Price == nil && p.Beds == nil && p.Baths == nil &&
		p.Sqft == nil && p.Description == nil && p.SetImages == nil &&
		p.VideoURL == nil && p.Type == nil && p.Featured == nil &&
		p.Address == nil && p.Lat == nil && p.Lng == nil &&
		p.OldPrice == nil && p.Features == nil
}

// PatchOp pairs a listing identity with the partial update to apply to it
type PatchOp struct {
	ID    string `json:"id"`
	Patch Patch  `json:"fields"`
}
