// internal/service/catalog/service.go

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"casaview/internal/adapter/media"
	"casaview/internal/domain/listing"
	"casaview/internal/service/geo"
)

// Store is the persistence surface the catalog needs
type Store interface {
	Insert(ctx context.Context, l *listing.Listing) error
	Get(ctx context.Context, id string) (listing.Listing, error)
	List(ctx context.Context) ([]listing.Listing, error)
	ListFeatured(ctx context.Context, limit int) ([]listing.Listing, error)
	ApplyPatch(ctx context.Context, id string, p listing.Patch) error
	ApplyPatches(ctx context.Context, ops []listing.PatchOp) error
	Delete(ctx context.Context, id string) error
}

// MediaStore is the image storage surface the catalog needs
type MediaStore interface {
	UploadAll(ctx context.Context, listingID string, files []media.File) []media.Result
	DeleteByURL(ctx context.Context, url string) error
	OwnsURL(url string) bool
}

// Geocoder resolves an address to coordinates and never fails outward
type Geocoder interface {
	Resolve(ctx context.Context, address string) geo.Point
}

// Publisher emits change events. *nats.Conn satisfies this.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ServiceConfig contains catalog service configuration
type ServiceConfig struct {
	ChangeSubject string
}

// Service orchestrates listing writes: geocoding, image uploads, persistence
// and change notification
type Service struct {
	store    Store
	media    MediaStore
	geocoder Geocoder
	pub      Publisher
	config   ServiceConfig
}

// NewService creates a new catalog service
func NewService(store Store, mediaStore MediaStore, geocoder Geocoder, pub Publisher, config ServiceConfig) *Service {
	return &Service{
		store:    store,
		media:    mediaStore,
		geocoder: geocoder,
		pub:      pub,
		config:   config,
	}
}

// NewListing carries the admin-supplied fields for a new listing. Identity
// and coordinates are assigned by the service.
type NewListing struct {
	Title       string       `json:"title"`
	Price       float64      `json:"price"`
	Beds        int          `json:"beds"`
	Baths       float64      `json:"baths"`
	Sqft        float64      `json:"sqft"`
	Description string       `json:"description"`
	VideoURL    string       `json:"videoUrl"`
	Type        listing.Type `json:"type"`
	Featured    bool         `json:"featured"`
	Address     string       `json:"address"`
	OldPrice    *float64     `json:"oldPrice"`
	Features    []string     `json:"features"`
}

// changeEvent is the payload published on every successful write
type changeEvent struct {
	Op   string    `json:"op"`
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
}

// Create resolves the address, persists the listing with an empty image
// sequence, then uploads any supplied files under the new identity and
// patches the resulting URLs in. Returns the stored listing.
func (s *Service) Create(ctx context.Context, input NewListing, files []media.File) (listing.Listing, error) {
	point := s.geocoder.Resolve(ctx, input.Address)

	l := listing.Listing{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Price:       input.Price,
		Beds:        input.Beds,
		Baths:       input.Baths,
		Sqft:        input.Sqft,
		Description: input.Description,
		Images:      []string{},
		VideoURL:    input.VideoURL,
		Type:        input.Type,
		Featured:    input.Featured,
		Address:     input.Address,
		Lat:         point.Lat,
		Lng:         point.Lng,
		OldPrice:    input.OldPrice,
		Features:    input.Features,
	}
	l.FillDefaults()

	if err := l.Validate(); err != nil {
		return listing.Listing{}, fmt.Errorf("invalid listing: %w", err)
	}

	if err := s.store.Insert(ctx, &l); err != nil {
		return listing.Listing{}, fmt.Errorf("failed to add listing: %w", err)
	}

	// Images go up after the document exists so its identity keys the
	// storage folder
	if len(files) > 0 {
		results := s.media.UploadAll(ctx, l.ID, files)
		urls := media.SuccessfulURLs(results)
		if len(urls) < len(files) {
			log.Printf("catalog: %d of %d images failed to upload for listing %s", len(files)-len(urls), len(files), l.ID)
		}

		if len(urls) > 0 {
			patch := listing.Patch{SetImages: &urls}
			if err := s.store.ApplyPatch(ctx, l.ID, patch); err != nil {
				return l, fmt.Errorf("failed to attach images to listing: %w", err)
			}
			l.Images = urls
		}
	}

	s.publishChange("create", l.ID)

	return l, nil
}

// Update applies a partial update. An address change re-resolves
// coordinates; supplied files are uploaded and their URLs appended to the
// existing image sequence.
func (s *Service) Update(ctx context.Context, id string, patch listing.Patch, files []media.File) error {
	if patch.Address != nil {
		point := s.geocoder.Resolve(ctx, *patch.Address)
		patch.Lat = &point.Lat
		patch.Lng = &point.Lng
	}

	if len(files) > 0 {
		results := s.media.UploadAll(ctx, id, files)
		urls := media.SuccessfulURLs(results)
		if len(urls) < len(files) {
			log.Printf("catalog: %d of %d images failed to upload for listing %s", len(files)-len(urls), len(files), id)
		}

		if len(urls) > 0 {
			base := []string{}
			if patch.SetImages != nil {
				base = *patch.SetImages
			} else {
				current, err := s.store.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to update listing: %w", err)
				}
				base = current.Images
			}

			merged := append(append([]string{}, base...), urls...)
			patch.SetImages = &merged
		}
	}

	if err := s.store.ApplyPatch(ctx, id, patch); err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}

	s.publishChange("update", id)

	return nil
}

// Delete best-effort removes the listing's stored images, then the record.
// Individual image deletions failing never block the record delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	for _, url := range l.Images {
		if !s.media.OwnsURL(url) {
			continue
		}
		if err := s.media.DeleteByURL(ctx, url); err != nil {
			log.Printf("catalog: failed to delete image %s: %v", url, err)
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	s.publishChange("delete", id)

	return nil
}

// BatchUpdate applies a set of partial updates as one atomic commit
func (s *Service) BatchUpdate(ctx context.Context, ops []listing.PatchOp) error {
	if err := s.store.ApplyPatches(ctx, ops); err != nil {
		return fmt.Errorf("batch update failed: %w", err)
	}

	s.publishChange("batch", "")

	return nil
}

// Listing returns one listing by identity
func (s *Service) Listing(ctx context.Context, id string) (listing.Listing, error) {
	return s.store.Get(ctx, id)
}

// Listings returns the full set, newest first
func (s *Service) Listings(ctx context.Context) ([]listing.Listing, error) {
	return s.store.List(ctx)
}

// Featured returns featured listings, newest first
func (s *Service) Featured(ctx context.Context, limit int) ([]listing.Listing, error) {
	return s.store.ListFeatured(ctx, limit)
}

// publishChange emits a change event; delivery failures are logged, never
// surfaced, since the write itself already succeeded
func (s *Service) publishChange(op, id string) {
	if s.pub == nil {
		return
	}

	payload, err := json.Marshal(changeEvent{Op: op, ID: id, Time: time.Now()})
	if err != nil {
		log.Printf("catalog: failed to marshal change event: %v", err)
		return
	}

	if err := s.pub.Publish(s.config.ChangeSubject, payload); err != nil {
		log.Printf("catalog: failed to publish change event: %v", err)
	}
}
