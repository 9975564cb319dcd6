// internal/adapter/storage/listing_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"casaview/internal/domain/listing"
)

// ErrNotFound reports a listing identity with no row behind it
var ErrNotFound = errors.New("listing not found")

// listingColumns is the select list shared by every read query
const listingColumns = `
	id, title, price, beds, baths, sqft, description,
	images, video_url, type, featured, address, lat, lng,
	old_price, features, created_at, updated_at
`

// ListingStore implements storage for listings
type ListingStore struct {
	db *pgxpool.Pool
}

// NewListingStore creates a new listing store
func NewListingStore(db *pgxpool.Pool) *ListingStore {
	return &ListingStore{
		db: db,
	}
}

// Insert saves a new listing. Creation and update timestamps are assigned
// by the database and written back into the struct.
func (s *ListingStore) Insert(ctx context.Context, l *listing.Listing) error {
	query := `
		INSERT INTO listings (
			id, title, price, beds, baths, sqft, description,
			images, video_url, type, featured, address, lat, lng,
			old_price, features, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14,
			$15, $16, now(), now()
		)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRow(
		ctx,
		query,
		l.ID,
		l.Title,
		l.Price,
		l.Beds,
		l.Baths,
		l.Sqft,
		l.Description,
		l.Images,
		l.VideoURL,
		string(l.Type),
		l.Featured,
		l.Address,
		l.Lat,
		l.Lng,
		l.OldPrice,
		l.Features,
	).Scan(&l.CreatedAt, &l.UpdatedAt)

	if err != nil {
		return fmt.Errorf("error inserting listing: %w", err)
	}

	return nil
}

// Get retrieves a listing by ID
func (s *ListingStore) Get(ctx context.Context, id string) (listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	l, err := scanListing(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return listing.Listing{}, ErrNotFound
		}
		return listing.Listing{}, fmt.Errorf("error querying listing: %w", err)
	}

	return l, nil
}

// List returns every listing, newest first
func (s *ListingStore) List(ctx context.Context) ([]listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// ListFeatured returns featured listings, newest first
func (s *ListingStore) ListFeatured(ctx context.Context, limit int) ([]listing.Listing, error) {
	if limit <= 0 {
		limit = 6
	}

	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE featured = true
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// ApplyPatch applies a partial update to one listing. Only set fields are
// written; updated_at is always stamped.
func (s *ListingStore) ApplyPatch(ctx context.Context, id string, p listing.Patch) error {
	query, args := buildPatchUpdate(id, p)

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ApplyPatches applies a set of partial updates as a single transaction
func (s *ListingStore) ApplyPatches(ctx context.Context, ops []listing.PatchOp) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting batch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		query, args := buildPatchUpdate(op.ID, op.Patch)

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("error updating listing %s in batch: %w", op.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("listing %s in batch: %w", op.ID, ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing batch: %w", err)
	}

	return nil
}

// Delete removes a listing row
func (s *ListingStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// buildPatchUpdate renders a Patch into an UPDATE statement touching only
// the set fields. updated_at is stamped unconditionally.
func buildPatchUpdate(id string, p listing.Patch) (string, []interface{}) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{}
	argIndex := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	if p.Beds != nil {
		add("beds", *p.Beds)
	}
	if p.Baths != nil {
		add("baths", *p.Baths)
	}
	if p.Sqft != nil {
		add("sqft", *p.Sqft)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.SetImages != nil {
		add("images", *p.SetImages)
	}
	if p.VideoURL != nil {
		add("video_url", *p.VideoURL)
	}
	if p.Type != nil {
		add("type", string(*p.Type))
	}
	if p.Featured != nil {
		add("featured", *p.Featured)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.Lat != nil {
		add("lat", *p.Lat)
	}
	if p.Lng != nil {
		add("lng", *p.Lng)
	}
	if p.OldPrice != nil {
		add("old_price", *p.OldPrice)
	}
	if p.Features != nil {
		add("features", *p.Features)
	}

	query := fmt.Sprintf(
		"UPDATE listings SET %s WHERE id = $%d",
		strings.Join(sets, ", "),
		argIndex,
	)
	args = append(args, id)

	return query, args
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanListing decodes one row into a listing, filling the defaults the
// catalog guarantees
func scanListing(row rowScanner) (listing.Listing, error) {
	var l listing.Listing
	var videoURL *string
	var listingType string

	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Price,
		&l.Beds,
		&l.Baths,
		&l.Sqft,
		&l.Description,
		&l.Images,
		&videoURL,
		&listingType,
		&l.Featured,
		&l.Address,
		&l.Lat,
		&l.Lng,
		&l.OldPrice,
		&l.Features,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return listing.Listing{}, err
	}

	if videoURL != nil {
		l.VideoURL = *videoURL
	}
	l.Type = listing.Type(listingType)
	l.FillDefaults()

	return l, nil
}

func collectListings(rows pgx.Rows) ([]listing.Listing, error) {
	var listings []listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning listing: %w", err)
		}
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	return listings, nil
}
